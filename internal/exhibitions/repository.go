package exhibitions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
	"github.com/expo-directory/backend/pkg/database"
)

const exhibitionColumns = `e.id, e.exhibitor_id, e.exhibition_information_id, e.is_draft, e.is_published, e.published_at, e.created_at, e.updated_at`

// ExhibitionRepo persists exhibitions in Postgres.
type ExhibitionRepo struct {
	db database.DBTX
}

// NewExhibitionRepo creates an exhibition repository on db.
func NewExhibitionRepo(db database.DBTX) *ExhibitionRepo {
	return &ExhibitionRepo{db: db}
}

// Save inserts or fully replaces an exhibition.
func (r *ExhibitionRepo) Save(ctx context.Context, ex *models.Exhibition) error {
	const q = `INSERT INTO exhibitions (id, exhibitor_id, exhibition_information_id, is_draft, is_published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			exhibition_information_id = EXCLUDED.exhibition_information_id,
			is_draft = EXCLUDED.is_draft,
			is_published = EXCLUDED.is_published,
			published_at = EXCLUDED.published_at,
			updated_at = EXCLUDED.updated_at`
	isDraft, isPublished := ex.State.Flags()
	_, err := r.db.Exec(ctx, q, ex.ID, ex.ExhibitorID, ex.InformationID, isDraft, isPublished, ex.PublishedAt, ex.CreatedAt, ex.UpdatedAt)
	if database.IsUniqueViolation(err, "exhibitions_exhibitor_id_key") {
		return apperr.Conflict("exhibitions.Save", "exhibitor already has an exhibition")
	}
	return err
}

// FindByID returns an exhibition by ID, or nil.
func (r *ExhibitionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Exhibition, error) {
	q := `SELECT ` + exhibitionColumns + ` FROM exhibitions e WHERE e.id = $1`
	return scanOneExhibition(r.db.QueryRow(ctx, q, id))
}

// FindByExhibitorID returns the exhibitor's exhibition, or nil.
func (r *ExhibitionRepo) FindByExhibitorID(ctx context.Context, exhibitorID uuid.UUID) (*models.Exhibition, error) {
	q := `SELECT ` + exhibitionColumns + ` FROM exhibitions e WHERE e.exhibitor_id = $1`
	return scanOneExhibition(r.db.QueryRow(ctx, q, exhibitorID))
}

// Delete removes an exhibition by ID.
func (r *ExhibitionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM exhibitions WHERE id = $1`, id)
	return err
}

// FindPublished returns one page of published exhibitions, newest publication first.
func (r *ExhibitionRepo) FindPublished(ctx context.Context, filter ListFilter) (PublishedPage, error) {
	where, args := publishedWhere(filter)

	var total int
	countQ := `SELECT COUNT(*) FROM exhibitions e
		JOIN exhibition_informations i ON i.id = e.exhibition_information_id` + where
	if err := r.db.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return PublishedPage{}, fmt.Errorf("count published: %w", err)
	}

	args = append(args, filter.PerPage, filter.Offset())
	listQ := fmt.Sprintf(`SELECT %s FROM exhibitions e
		JOIN exhibition_informations i ON i.id = e.exhibition_information_id%s
		ORDER BY e.published_at DESC, e.id
		LIMIT $%d OFFSET $%d`, exhibitionColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, listQ, args...)
	if err != nil {
		return PublishedPage{}, err
	}
	defer rows.Close()

	page := PublishedPage{Total: total}
	for rows.Next() {
		ex, err := scanExhibition(rows)
		if err != nil {
			return PublishedPage{}, err
		}
		page.Items = append(page.Items, *ex)
	}
	return page, rows.Err()
}

// FindPublishedByID returns a published exhibition that has information, or nil.
func (r *ExhibitionRepo) FindPublishedByID(ctx context.Context, id uuid.UUID) (*models.Exhibition, error) {
	q := `SELECT ` + exhibitionColumns + ` FROM exhibitions e
		WHERE e.id = $1 AND e.is_published = 1 AND e.exhibition_information_id IS NOT NULL`
	return scanOneExhibition(r.db.QueryRow(ctx, q, id))
}

// FindCategoryCounts counts published exhibitions per category. Empty categories are omitted.
func (r *ExhibitionRepo) FindCategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	const q = `SELECT i.category, COUNT(*) FROM exhibitions e
		JOIN exhibition_informations i ON i.id = e.exhibition_information_id
		WHERE e.is_published = 1
		GROUP BY i.category`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []models.CategoryCount
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func publishedWhere(filter ListFilter) (string, []any) {
	conds := []string{"e.is_published = 1"}
	var args []any
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		conds = append(conds, fmt.Sprintf("i.category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(i.title ILIKE $%d OR i.location ILIKE $%d OR i.exhibitor_name ILIKE $%d)", n, n, n))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanOneExhibition(row pgx.Row) (*models.Exhibition, error) {
	ex, err := scanExhibition(row)
	if database.IsNoRows(err) {
		return nil, nil
	}
	return ex, err
}

func scanExhibition(row pgx.Row) (*models.Exhibition, error) {
	var ex models.Exhibition
	var isDraft, isPublished int16
	if err := row.Scan(&ex.ID, &ex.ExhibitorID, &ex.InformationID, &isDraft, &isPublished, &ex.PublishedAt, &ex.CreatedAt, &ex.UpdatedAt); err != nil {
		return nil, err
	}
	state, err := models.StateFromFlags(isDraft, isPublished)
	if err != nil {
		return nil, fmt.Errorf("exhibition %s: %w", ex.ID, err)
	}
	ex.State = state
	return &ex, nil
}

// InformationRepo persists exhibition information in Postgres.
type InformationRepo struct {
	db database.DBTX
}

// NewInformationRepo creates an information repository on db.
func NewInformationRepo(db database.DBTX) *InformationRepo {
	return &InformationRepo{db: db}
}

// Save inserts or fully replaces an information record, image included.
func (r *InformationRepo) Save(ctx context.Context, info *models.ExhibitionInformation) error {
	const q = `INSERT INTO exhibition_informations
		(id, exhibitor_id, exhibitor_name, title, category, location, price, required_time, comment, ar_design_id, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			exhibitor_name = EXCLUDED.exhibitor_name,
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			location = EXCLUDED.location,
			price = EXCLUDED.price,
			required_time = EXCLUDED.required_time,
			comment = EXCLUDED.comment,
			ar_design_id = EXCLUDED.ar_design_id,
			image = EXCLUDED.image,
			updated_at = EXCLUDED.updated_at`
	var image []byte
	if info.HasImage() {
		image = info.Image
	}
	_, err := r.db.Exec(ctx, q, info.ID, info.ExhibitorID, info.ExhibitorName, info.Title, string(info.Category), info.Location,
		info.Price, info.RequiredTime, info.Comment, info.ArDesignID, image, info.CreatedAt, info.UpdatedAt)
	if database.IsUniqueViolation(err, "exhibition_informations_exhibitor_id_key") {
		return apperr.Conflict("exhibitions.SaveInformation", "exhibition information already exists for this exhibitor")
	}
	return err
}

// FindByID returns an information record with its image, or nil.
func (r *InformationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ExhibitionInformation, error) {
	const q = `SELECT id, exhibitor_id, exhibitor_name, title, category, location, price, required_time, comment, ar_design_id, image, created_at, updated_at
		FROM exhibition_informations WHERE id = $1`
	return scanOneInformation(r.db.QueryRow(ctx, q, id))
}

// FindByExhibitorID returns the exhibitor's information record with its image, or nil.
func (r *InformationRepo) FindByExhibitorID(ctx context.Context, exhibitorID uuid.UUID) (*models.ExhibitionInformation, error) {
	const q = `SELECT id, exhibitor_id, exhibitor_name, title, category, location, price, required_time, comment, ar_design_id, image, created_at, updated_at
		FROM exhibition_informations WHERE exhibitor_id = $1`
	return scanOneInformation(r.db.QueryRow(ctx, q, exhibitorID))
}

// FindByIDs returns the listed records without image blobs.
func (r *InformationRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ExhibitionInformation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT id, exhibitor_id, exhibitor_name, title, category, location, price, required_time, comment, ar_design_id,
		COALESCE(octet_length(image), 0), created_at, updated_at
		FROM exhibition_informations WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ExhibitionInformation
	for rows.Next() {
		var info models.ExhibitionInformation
		if err := rows.Scan(&info.ID, &info.ExhibitorID, &info.ExhibitorName, &info.Title, &info.Category, &info.Location,
			&info.Price, &info.RequiredTime, &info.Comment, &info.ArDesignID, &info.ImageSize, &info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, info)
	}
	return list, rows.Err()
}

// Delete removes an information record by ID.
func (r *InformationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM exhibition_informations WHERE id = $1`, id)
	return err
}

func scanOneInformation(row pgx.Row) (*models.ExhibitionInformation, error) {
	var info models.ExhibitionInformation
	err := row.Scan(&info.ID, &info.ExhibitorID, &info.ExhibitorName, &info.Title, &info.Category, &info.Location,
		&info.Price, &info.RequiredTime, &info.Comment, &info.ArDesignID, &info.Image, &info.CreatedAt, &info.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.ImageSize = len(info.Image)
	return &info, nil
}
