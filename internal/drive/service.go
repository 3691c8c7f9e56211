package drive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"camellia/internal/config"
	"camellia/internal/models"
	"camellia/internal/repository"
	"camellia/internal/worker"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType  = "application/vnd.google-apps.folder"
	tokenCheckEvery = 30 * time.Minute
	publicURLTTL    = models.PublicURLCacheTTL * time.Second
)

// Service wraps the Google Drive API for gallery uploads: one folder per
// image category under the configured root, public-read files, cached public
// URLs.
type Service struct {
	files       *drive.Service
	tokenSource oauth2.TokenSource
	rootFolder  string
	cache       repository.CacheRepository
	logger      zerolog.Logger

	folderCache map[string]string
	cacheMu     sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewService builds a Drive client from a service-account credentials file
// and starts the background token watcher. Call Stop on shutdown.
func NewService(ctx context.Context, cfg config.DriveConfig, cache repository.CacheRepository, logger *zerolog.Logger) (*Service, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tokenSource := jwtConfig.TokenSource(ctx)
	client := oauth2.NewClient(ctx, tokenSource)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	s := &Service{
		files:       srv,
		tokenSource: tokenSource,
		rootFolder:  cfg.RootFolderID,
		cache:       cache,
		logger:      logger.With().Str("component", "drive").Logger(),
		folderCache: make(map[string]string),
		done:        make(chan struct{}),
	}

	go s.watchToken()

	return s, nil
}

// Stop terminates the background token watcher.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// watchToken periodically verifies the cached OAuth token and forces a
// refresh through the token source when it went stale.
func (s *Service) watchToken() {
	ticker := time.NewTicker(tokenCheckEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			token, err := s.tokenSource.Token()
			if err != nil {
				s.logger.Error().Err(err).Msg("token refresh failed")
				continue
			}
			if !token.Valid() {
				s.logger.Warn().Msg("token reported invalid after refresh")
				continue
			}
			s.logger.Debug().Time("expiry", token.Expiry).Msg("drive token valid")
		}
	}
}

// ensureFolder resolves (or creates) the per-category folder and memoizes
// its id.
func (s *Service) ensureFolder(ctx context.Context, category string) (string, error) {
	s.cacheMu.Lock()
	if id, ok := s.folderCache[category]; ok {
		s.cacheMu.Unlock()
		return id, nil
	}
	s.cacheMu.Unlock()

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", category, folderMimeType)
	if s.rootFolder != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.rootFolder)
	}

	list, err := s.files.Files.List().Q(query).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list folders: %w", err)
	}

	var folderID string
	if len(list.Files) > 0 {
		folderID = list.Files[0].Id
	} else {
		folder := &drive.File{Name: category, MimeType: folderMimeType}
		if s.rootFolder != "" {
			folder.Parents = []string{s.rootFolder}
		}
		created, err := s.files.Files.Create(folder).Fields("id").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("create folder: %w", err)
		}
		folderID = created.Id
		s.logger.Info().Str("category", category).Str("folder_id", folderID).Msg("created drive folder")
	}

	s.cacheMu.Lock()
	s.folderCache[category] = folderID
	s.cacheMu.Unlock()
	return folderID, nil
}

// UploadFile stores the payload in the category folder, makes it world
// readable and returns the file id and public URL. The URL is cached for
// 24 hours.
func (s *Service) UploadFile(ctx context.Context, category, fileName string, data []byte) (string, string, error) {
	folderID, err := s.ensureFolder(ctx, category)
	if err != nil {
		return "", "", err
	}

	file := &drive.File{Name: fileName, Parents: []string{folderID}}
	created, err := s.files.Files.Create(file).
		Media(bytes.NewReader(data)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", "", fmt.Errorf("upload file: %w", err)
	}

	_, err = s.files.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("set public permission: %w", err)
	}

	url := publicURL(created.Id)
	if s.cache != nil {
		if err := s.cache.SetURL(ctx, fileName, url, publicURLTTL); err != nil {
			s.logger.Warn().Err(err).Str("file", fileName).Msg("cache public url failed")
		}
	}

	return created.Id, url, nil
}

// DeleteFile removes a Drive file and drops its cached URL.
func (s *Service) DeleteFile(ctx context.Context, fileID, fileName string) error {
	if err := s.files.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete drive file: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.DeleteURL(ctx, fileName)
	}
	return nil
}

func publicURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=view&id=%s", fileID)
}

// driveClient is what Uploader needs from the Drive side; *Service satisfies
// it and tests substitute a fake.
type driveClient interface {
	UploadFile(ctx context.Context, category, fileName string, data []byte) (string, string, error)
	DeleteFile(ctx context.Context, fileID, fileName string) error
}

// UploadResult records where an accepted image ended up.
type UploadResult struct {
	FileName    string
	URL         string
	Backend     string
	DriveFileID string
	Width       int
	Height      int
}

// Uploader validates and processes gallery images, pushes them to Drive with
// retries and falls back to local disk when Drive is unavailable.
type Uploader struct {
	drive  driveClient
	local  *LocalStore
	opts   ImageOptions
	retry  worker.RetryPolicy
	logger zerolog.Logger
}

func NewUploader(driveSvc *Service, local *LocalStore, cfg config.DriveConfig, logger *zerolog.Logger) *Uploader {
	u := &Uploader{
		local: local,
		opts: ImageOptions{
			MinWidth:  cfg.MinWidth,
			MinHeight: cfg.MinHeight,
			MaxWidth:  cfg.MaxUploadWidth,
			MinAspect: 0.4,
			MaxAspect: 2.5,
		},
		retry: worker.RetryPolicy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: time.Second,
		},
		logger: logger.With().Str("component", "uploader").Logger(),
	}
	// A nil *Service must stay a nil interface so the local fallback kicks in.
	if driveSvc != nil {
		u.drive = driveSvc
	}
	return u
}

// Upload processes the image and stores it, preferring Drive. The returned
// result records the backend that actually holds the bytes.
func (u *Uploader) Upload(ctx context.Context, category, fileName string, data []byte) (*UploadResult, error) {
	processed, width, height, err := ProcessImage(data, u.opts)
	if err != nil {
		return nil, err
	}

	if u.drive != nil {
		var fileID, url string
		err := u.retry.Do(ctx, func() error {
			var uploadErr error
			fileID, url, uploadErr = u.drive.UploadFile(ctx, category, fileName, processed)
			return uploadErr
		})
		if err == nil {
			return &UploadResult{
				FileName:    fileName,
				URL:         url,
				Backend:     models.BackendDrive,
				DriveFileID: fileID,
				Width:       width,
				Height:      height,
			}, nil
		}
		u.logger.Error().Err(err).Str("file", fileName).Msg("drive upload failed, falling back to local storage")
	}

	url, err := u.local.Save(fileName, processed)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		FileName: fileName,
		URL:      url,
		Backend:  models.BackendLocal,
		Width:    width,
		Height:   height,
	}, nil
}

// Delete removes the stored bytes from whichever backend holds them.
func (u *Uploader) Delete(ctx context.Context, img *models.Image) error {
	switch img.StorageBackend {
	case models.BackendDrive:
		if u.drive == nil {
			return fmt.Errorf("drive backend not configured")
		}
		return u.drive.DeleteFile(ctx, img.DriveFileID, img.FileName)
	case models.BackendLocal:
		return u.local.Delete(img.FileName)
	}
	return fmt.Errorf("unknown storage backend %q", img.StorageBackend)
}
