package database

import "camellia/internal/models"

// ListParams carries the common list filters used by the paginated queries.
type ListParams struct {
	Page       int
	PerPage    int
	Status     string
	CategoryID int64
}

// Normalize clamps page numbers and page sizes to sane values.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = models.DefaultPerPage
	}
	if p.PerPage > models.MaxPerPage {
		p.PerPage = models.MaxPerPage
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}
