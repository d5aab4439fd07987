package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/haatos/simple-build/internal/security"
	"github.com/haatos/simple-build/internal/store"
)

var secretNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SecretService keeps secrets encrypted at rest. It resolves build
// requirements after the environment.
type SecretService struct {
	store     store.SecretStore
	encrypter security.Encrypter
}

func NewSecretService(store store.SecretStore, encrypter security.Encrypter) *SecretService {
	return &SecretService{store, encrypter}
}

func (s *SecretService) SetSecret(ctx context.Context, name, value string) error {
	if !secretNamePattern.MatchString(name) {
		return ErrInvalidSecret
	}
	encrypted, err := s.encrypter.EncryptAES(value)
	if err != nil {
		return err
	}
	return s.store.UpsertSecret(ctx, name, encrypted)
}

func (s *SecretService) DeleteSecret(ctx context.Context, name string) error {
	return s.store.DeleteSecret(ctx, name)
}

// ListSecretNames never returns values.
func (s *SecretService) ListSecretNames(ctx context.Context) ([]string, error) {
	secrets, err := s.store.ListSecrets(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		names = append(names, secret.Name)
	}
	return names, nil
}

func (s *SecretService) Lookup(ctx context.Context, name string) (string, bool, error) {
	secret, err := s.store.ReadSecret(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	value, err := s.encrypter.DecryptAES(secret.Value)
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}
