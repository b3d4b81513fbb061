package exhibitions

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expo-directory/backend/internal/ardesigns"
	"github.com/expo-directory/backend/internal/auth"
	"github.com/expo-directory/backend/pkg/database"
)

// PgStore is the Postgres Store. Outside a transaction it runs on the pool.
type PgStore struct {
	pool *pgxpool.Pool
	db   database.DBTX
	inTx bool
}

// NewPgStore creates a Store backed by pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

func (s *PgStore) Exhibitions() ExhibitionRepository { return NewExhibitionRepo(s.db) }
func (s *PgStore) Informations() InformationRepository { return NewInformationRepo(s.db) }
func (s *PgStore) ArDesigns() ArDesignRepository { return ardesigns.NewRepository(s.db) }
func (s *PgStore) Exhibitors() ExhibitorRepository { return auth.NewRepository(s.db) }

// WithinTx runs fn in a transaction that commits when fn returns nil. Nested calls
// join the enclosing transaction.
func (s *PgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PgStore{pool: s.pool, db: tx, inTx: true})
	})
}
