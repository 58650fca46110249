package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/dmitrijs2005/imagegen/internal/dbx"
)

// SQLiteTokenStore keeps the token and the time it was last validated
// under common.TokenKey and common.TokenValidatedAtKey. Both keys are
// written and removed together in one transaction.
type SQLiteTokenStore struct {
	db *sql.DB
}

var _ TokenStorage = (*SQLiteTokenStore)(nil)

func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

func (s *SQLiteTokenStore) Load(ctx context.Context) (string, error) {
	v, err := NewSQLiteRepository(s.db).Get(ctx, common.TokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *SQLiteTokenStore) Save(ctx context.Context, token string, validatedAt time.Time) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.TokenKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, common.TokenValidatedAtKey, []byte(validatedAt.UTC().Format(time.RFC3339)))
	})
}

func (s *SQLiteTokenStore) Remove(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, common.TokenKey); err != nil {
			return err
		}
		return repo.Delete(ctx, common.TokenValidatedAtKey)
	})
}

// ValidatedAt returns when the stored token last passed the identity check,
// or the zero time if unknown.
func (s *SQLiteTokenStore) ValidatedAt(ctx context.Context) (time.Time, error) {
	v, err := NewSQLiteRepository(s.db).Get(ctx, common.TokenValidatedAtKey)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", common.TokenValidatedAtKey, err)
	}
	return t, nil
}
