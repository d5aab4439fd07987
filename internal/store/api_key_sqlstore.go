package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

func NewAPIKeySQLStore(db *sql.DB) *APIKeySQLStore {
	return &APIKeySQLStore{db}
}

type APIKeySQLStore struct {
	db *sql.DB
}

func (store *APIKeySQLStore) CreateAPIKey(ctx context.Context, hash, description string) (*APIKey, error) {
	key := &APIKey{Hash: hash, Description: description}
	query := `insert into api_keys (hash, description) values ($1, $2) returning id, created_on`
	if err := sqlscan.Get(ctx, store.db, key, query, hash, description); err != nil {
		return nil, err
	}
	return key, nil
}

func (store *APIKeySQLStore) ReadAPIKeyByID(ctx context.Context, id int64) (*APIKey, error) {
	key := new(APIKey)
	query := `select * from api_keys where id = $1`
	if err := sqlscan.Get(ctx, store.db, key, query, id); err != nil {
		return nil, err
	}
	return key, nil
}

func (store *APIKeySQLStore) DeleteAPIKey(ctx context.Context, id int64) error {
	return execOne(ctx, store.db, `delete from api_keys where id = $1`, id)
}

func (store *APIKeySQLStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	keys := make([]APIKey, 0)
	if err := sqlscan.Select(ctx, store.db, &keys, `select * from api_keys order by id`); err != nil {
		return nil, err
	}
	return keys, nil
}
