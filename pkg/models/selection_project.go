package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectStatusInProgress = "in-progress"
	ProjectStatusCompleted  = "completed"
)

// Photo is one gallery item inside a selection project. The URL points at a
// cloud-hosted image (usually a Google Drive share link); selection state and
// client comments are stored alongside it.
type Photo struct {
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
	Comment  string `json:"comment"`
}

// SelectionProject is a client gallery awaiting selection and comments.
// Clients access it via the short access code; admins manage it by ID.
type SelectionProject struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	ClientName string    `db:"client_name" json:"client_name"`
	Phone      string    `db:"phone"       json:"phone"`
	AccessCode string    `db:"access_code" json:"access_code"`
	Title      string    `db:"title"       json:"title"`
	CoverImage string    `db:"cover_image" json:"cover_image,omitempty"`
	Status     string    `db:"status"      json:"status"`
	Photos     []Photo   `db:"photos"      json:"photos"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}
