package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/haatos/simple-build/internal/security"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newEncrypter(t *testing.T) *security.AESEncrypter {
	t.Helper()
	key, err := security.GenerateRandomKey(32)
	require.NoError(t, err)
	return security.NewAESEncrypter([]byte(key))
}

func TestSecretService_SetSecret(t *testing.T) {
	t.Run("success - value is stored encrypted", func(t *testing.T) {
		// arrange
		enc := newEncrypter(t)
		mockStore := new(MockSecretStore)
		var stored string
		mockStore.On("UpsertSecret", mock.Anything, settings.OctopusAPIKey, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { stored = args.String(2) }).
			Return(nil)
		svc := NewSecretService(mockStore, enc)

		// act
		err := svc.SetSecret(context.Background(), settings.OctopusAPIKey, "API-123")

		// assert
		require.NoError(t, err)
		assert.NotContains(t, stored, "API-123")
		plain, err := enc.DecryptAES(stored)
		require.NoError(t, err)
		assert.Equal(t, "API-123", string(plain))
	})

	t.Run("failure - invalid name", func(t *testing.T) {
		svc := NewSecretService(new(MockSecretStore), newEncrypter(t))

		err := svc.SetSecret(context.Background(), "bad name", "v")

		assert.ErrorIs(t, err, ErrInvalidSecret)
	})
}

func TestSecretService_Lookup(t *testing.T) {
	enc := newEncrypter(t)
	cipherText, err := enc.EncryptAES("key-material")
	require.NoError(t, err)

	t.Run("success - decrypted value", func(t *testing.T) {
		mockStore := new(MockSecretStore)
		mockStore.On("ReadSecret", mock.Anything, settings.DropSSHPrivateKey).
			Return(&store.Secret{Name: settings.DropSSHPrivateKey, Value: cipherText}, nil)
		svc := NewSecretService(mockStore, enc)

		value, ok, err := svc.Lookup(context.Background(), settings.DropSSHPrivateKey)

		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "key-material", value)
	})

	t.Run("success - missing secret is not an error", func(t *testing.T) {
		mockStore := new(MockSecretStore)
		mockStore.On("ReadSecret", mock.Anything, settings.NuGetAPIKey).Return(nil, sql.ErrNoRows)
		svc := NewSecretService(mockStore, enc)

		_, ok, err := svc.Lookup(context.Background(), settings.NuGetAPIKey)

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("failure - store error", func(t *testing.T) {
		mockStore := new(MockSecretStore)
		mockStore.On("ReadSecret", mock.Anything, settings.NuGetAPIKey).Return(nil, errors.New("disk I/O error"))
		svc := NewSecretService(mockStore, enc)

		_, _, err := svc.Lookup(context.Background(), settings.NuGetAPIKey)

		assert.Error(t, err)
	})

	t.Run("success - environment wins over the store in a chain", func(t *testing.T) {
		mockStore := new(MockSecretStore)
		svc := NewSecretService(mockStore, enc)
		chain := settings.ChainSecrets{
			settings.NewEnvSecretsFrom(func(string) (string, bool) { return "from-env", true }),
			svc,
		}

		values, err := settings.Require(context.Background(), chain, settings.OctopusAPIKey)

		assert.NoError(t, err)
		assert.Equal(t, "from-env", values[settings.OctopusAPIKey])
		mockStore.AssertNotCalled(t, "ReadSecret", mock.Anything, mock.Anything)
	})
}

func TestSecretService_ListSecretNames(t *testing.T) {
	mockStore := new(MockSecretStore)
	mockStore.On("ListSecrets", mock.Anything).Return([]store.Secret{
		{Name: settings.NuGetAPIKey, Value: "cipher"},
		{Name: settings.OctopusAPIKey, Value: "cipher"},
	}, nil)
	svc := NewSecretService(mockStore, newEncrypter(t))

	names, err := svc.ListSecretNames(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{settings.NuGetAPIKey, settings.OctopusAPIKey}, names)
}
