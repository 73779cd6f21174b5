package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proofpick/proofpick/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. Photos live as
// a jsonb column on the project row and are always written whole, which
// keeps photo order stable and updates last-write-wins.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const projectColumns = `id, client_name, phone, access_code, title, cover_image, status, photos, created_at, updated_at`

func (s *PostgresStore) CreateProject(ctx context.Context, p *models.SelectionProject) error {
	photos, err := marshalPhotos(p.Photos)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = s.pool.Exec(ctx,
		`INSERT INTO selection_projects (id, client_name, phone, access_code, title, cover_image, status, photos, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ClientName, p.Phone, p.AccessCode, p.Title, p.CoverImage, p.Status, photos, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.SelectionProject, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM selection_projects WHERE id = $1`, id)
	return scanProject(row)
}

func (s *PostgresStore) GetProjectByAccessCode(ctx context.Context, code string) (*models.SelectionProject, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM selection_projects WHERE access_code = $1`, code)
	return scanProject(row)
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]*models.SelectionProject, error) {
	query := `SELECT ` + projectColumns + ` FROM selection_projects`
	args := []any{}
	if filter.Phone != "" {
		query += ` WHERE phone = $1`
		args = append(args, filter.Phone)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.SelectionProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) UpdateProject(ctx context.Context, p *models.SelectionProject) error {
	photos, err := marshalPhotos(p.Photos)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE selection_projects
		 SET client_name = $2, phone = $3, title = $4, cover_image = $5, status = $6, photos = $7, updated_at = $8
		 WHERE id = $1`,
		p.ID, p.ClientName, p.Phone, p.Title, p.CoverImage, p.Status, photos, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM selection_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.SelectionProject, error) {
	var p models.SelectionProject
	var photos []byte
	err := row.Scan(&p.ID, &p.ClientName, &p.Phone, &p.AccessCode, &p.Title,
		&p.CoverImage, &p.Status, &photos, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &p.Photos); err != nil {
			return nil, fmt.Errorf("decode photos: %w", err)
		}
	}
	return &p, nil
}

func marshalPhotos(photos []models.Photo) ([]byte, error) {
	if photos == nil {
		photos = []models.Photo{}
	}
	b, err := json.Marshal(photos)
	if err != nil {
		return nil, fmt.Errorf("encode photos: %w", err)
	}
	return b, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
