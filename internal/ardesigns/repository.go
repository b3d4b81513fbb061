package ardesigns

import (
	"context"

	"github.com/google/uuid"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/database"
)

// Repository reads AR designs. The table is reference data maintained outside the API.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an AR design repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// FindByID returns an AR design, or nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ArDesign, error) {
	var d models.ArDesign
	err := r.db.QueryRow(ctx, `SELECT id, url, created_at FROM ar_designs WHERE id = $1`, id).
		Scan(&d.ID, &d.URL, &d.CreatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByIDs returns the AR designs among ids that exist.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ArDesign, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT id, url, created_at FROM ar_designs WHERE id = ANY($1)`, ids)
}

// FindAll returns every AR design, oldest first.
func (r *Repository) FindAll(ctx context.Context) ([]models.ArDesign, error) {
	return r.list(ctx, `SELECT id, url, created_at FROM ar_designs ORDER BY created_at, id`)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.ArDesign, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ArDesign{}
	for rows.Next() {
		var d models.ArDesign
		if err := rows.Scan(&d.ID, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
