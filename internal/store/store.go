package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/proofpick/proofpick/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface for selection projects. All database
// operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateProject(ctx context.Context, p *models.SelectionProject) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.SelectionProject, error)
	GetProjectByAccessCode(ctx context.Context, code string) (*models.SelectionProject, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.SelectionProject, error)
	UpdateProject(ctx context.Context, p *models.SelectionProject) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

// ProjectFilter narrows ListProjects. Zero value lists everything, newest first.
type ProjectFilter struct {
	Phone string
}
