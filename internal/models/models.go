package models

import "time"

// Service is a bookable salon service from the catalog.
type Service struct {
	ID              int64     `json:"id"`
	CategoryID      int64     `json:"category_id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description" yaml:"description"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Price           float64   `json:"price" yaml:"price"`
	ImageURL        string    `json:"image_url,omitempty" yaml:"image_url"`
	IsActive        bool      `json:"is_active" yaml:"is_active"`
	SortOrder       int64     `json:"sort_order" yaml:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" yaml:"name"`
	Slug      string    `json:"slug" yaml:"slug"`
	SortOrder int64     `json:"sort_order" yaml:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// Image is a gallery photo. StorageBackend records where the bytes actually
// live so the admin can clean up either backend later.
type Image struct {
	ID             int64     `json:"id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	URL            string    `json:"url"`
	StorageBackend string    `json:"storage_backend"` // drive, local
	DriveFileID    string    `json:"drive_file_id,omitempty"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	SortOrder      int64     `json:"sort_order"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Review struct {
	ID         int64     `json:"id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// DayOverride marks a calendar day explicitly open or closed, overriding the
// regular weekly schedule. Closed overrides block the whole day.
type DayOverride struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// DateOnly renders the override day as an ISO date.
func (o *DayOverride) DateOnly() string {
	return o.Date.Format("2006-01-02")
}
