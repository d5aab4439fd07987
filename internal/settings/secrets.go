package settings

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Secrets and server addresses consumed by the release targets.
const (
	NuGetSourceURL     = "NUGET_SOURCE_URL"
	NuGetAPIKey        = "NUGET_API_KEY"
	OctopusServerURL   = "OCTOPUS_SERVER_URL"
	OctopusAPIKey      = "OCTOPUS_API_KEY"
	OctopusProjectName = "OCTOPUS_PROJECT_NAME"
	DropSSHPrivateKey  = "DROP_SSH_PRIVATE_KEY"
)

type SecretResolver interface {
	Lookup(ctx context.Context, name string) (string, bool, error)
}

type MissingSecretError struct {
	Name string
}

func (e *MissingSecretError) Error() string {
	return fmt.Sprintf(
		"required variable %s is not set: export it or store it with 'simplebuild secret set %s'",
		e.Name, e.Name,
	)
}

// EnvSecrets resolves secrets from the process environment. Blank values
// count as unset.
type EnvSecrets struct {
	lookup func(string) (string, bool)
}

func NewEnvSecrets() *EnvSecrets {
	return &EnvSecrets{lookup: os.LookupEnv}
}

func NewEnvSecretsFrom(lookup func(string) (string, bool)) *EnvSecrets {
	return &EnvSecrets{lookup: lookup}
}

func (s *EnvSecrets) Lookup(_ context.Context, name string) (string, bool, error) {
	value, ok := s.lookup(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

// ChainSecrets asks each resolver in turn and returns the first hit.
type ChainSecrets []SecretResolver

func (c ChainSecrets) Lookup(ctx context.Context, name string) (string, bool, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		value, ok, err := r.Lookup(ctx, name)
		if err != nil {
			return "", false, err
		}
		if ok {
			return value, true, nil
		}
	}
	return "", false, nil
}

// Require resolves every name or fails on the first missing one.
func Require(ctx context.Context, r SecretResolver, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	for _, name := range names {
		if r == nil {
			return nil, &MissingSecretError{Name: name}
		}
		value, ok, err := r.Lookup(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("err resolving %s: %w", name, err)
		}
		if !ok {
			return nil, &MissingSecretError{Name: name}
		}
		values[name] = value
	}
	return values, nil
}
