package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
	"github.com/expo-directory/backend/pkg/database"
)

// Repository handles exhibitor account persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an exhibitor repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// GetByID returns an exhibitor by ID, or nil when there is none.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Exhibitor, error) {
	const q = `SELECT id, name, password_hash, created_at, updated_at FROM exhibitors WHERE id = $1`
	return r.getOne(ctx, q, id)
}

// GetByName returns an exhibitor by its unique name, or nil when there is none.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.Exhibitor, error) {
	const q = `SELECT id, name, password_hash, created_at, updated_at FROM exhibitors WHERE name = $1`
	return r.getOne(ctx, q, name)
}

// Create inserts a new exhibitor. A taken name is a Conflict.
func (r *Repository) Create(ctx context.Context, name, passwordHash string) (*models.Exhibitor, error) {
	const q = `INSERT INTO exhibitors (id, name, password_hash) VALUES ($1, $2, $3)
		RETURNING id, name, password_hash, created_at, updated_at`
	var e models.Exhibitor
	err := r.db.QueryRow(ctx, q, uuid.New(), name, passwordHash).
		Scan(&e.ID, &e.Name, &e.Password, &e.CreatedAt, &e.UpdatedAt)
	if database.IsUniqueViolation(err, "exhibitors_name_key") {
		return nil, apperr.Conflict("auth.Create", "exhibitor name already registered")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*models.Exhibitor, error) {
	var e models.Exhibitor
	err := r.db.QueryRow(ctx, q, arg).Scan(&e.ID, &e.Name, &e.Password, &e.CreatedAt, &e.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
