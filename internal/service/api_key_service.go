package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/haatos/simple-build/internal/security"
	"github.com/haatos/simple-build/internal/store"
)

type UUIDGenerator interface {
	GenerateUUID() string
}

func NewUUIDGen() *UUIDGen {
	return &UUIDGen{}
}

type UUIDGen struct{}

func (ug *UUIDGen) GenerateUUID() string {
	return uuid.NewString()
}

type APIKeyServicer interface {
	CreateAPIKey(context.Context, string) (*store.APIKey, string, error)
	VerifyAPIKey(context.Context, string) (*store.APIKey, error)
	DeleteAPIKey(context.Context, int64) error
	ListAPIKeys(context.Context) ([]store.APIKey, error)
}

// APIKeyService issues trigger keys of the form "<id>.<secret>". Only a
// bcrypt hash of the secret part is stored.
type APIKeyService struct {
	store         store.APIKeyStore
	uuidGenerator UUIDGenerator
}

func NewAPIKeyService(store store.APIKeyStore, uuidGenerator UUIDGenerator) *APIKeyService {
	return &APIKeyService{store, uuidGenerator}
}

// CreateAPIKey returns the stored key and the plaintext token, which is not
// recoverable afterwards.
func (s *APIKeyService) CreateAPIKey(ctx context.Context, description string) (*store.APIKey, string, error) {
	secret := s.uuidGenerator.GenerateUUID()
	hash, err := security.HashAPIKey(secret)
	if err != nil {
		return nil, "", err
	}
	key, err := s.store.CreateAPIKey(ctx, hash, description)
	if err != nil {
		return nil, "", err
	}
	return key, fmt.Sprintf("%d.%s", key.ID, secret), nil
}

func (s *APIKeyService) VerifyAPIKey(ctx context.Context, token string) (*store.APIKey, error) {
	idPart, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return nil, ErrInvalidAPIKey
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, ErrInvalidAPIKey
	}
	key, err := s.store.ReadAPIKeyByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}
	if !security.CompareAPIKey(key.Hash, secret) {
		return nil, ErrInvalidAPIKey
	}
	return key, nil
}

func (s *APIKeyService) DeleteAPIKey(ctx context.Context, id int64) error {
	return s.store.DeleteAPIKey(ctx, id)
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context) ([]store.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}
