package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type SecretSQLStore struct {
	db *sql.DB
}

func NewSecretSQLStore(db *sql.DB) *SecretSQLStore {
	return &SecretSQLStore{db}
}

func (store *SecretSQLStore) UpsertSecret(ctx context.Context, name, encrypted string) error {
	query := `insert into secrets (name, value, updated_on)
	values ($1, $2, $3)
	on conflict (name) do update
	set value = excluded.value,
		updated_on = excluded.updated_on`
	_, err := store.db.ExecContext(ctx, query, name, encrypted, time.Now().UTC())
	return err
}

func (store *SecretSQLStore) ReadSecret(ctx context.Context, name string) (*Secret, error) {
	s := new(Secret)
	query := "select * from secrets where name = $1"
	if err := sqlscan.Get(ctx, store.db, s, query, name); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SecretSQLStore) DeleteSecret(ctx context.Context, name string) error {
	return execOne(ctx, store.db, "delete from secrets where name = $1", name)
}

func (store *SecretSQLStore) ListSecrets(ctx context.Context) ([]Secret, error) {
	secrets := make([]Secret, 0)
	if err := sqlscan.Select(ctx, store.db, &secrets, "select * from secrets order by name"); err != nil {
		return nil, err
	}
	return secrets, nil
}
