package cli

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/haatos/simple-build/internal/build"
	"github.com/haatos/simple-build/internal/security"
	"github.com/haatos/simple-build/internal/service"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/store"
	"github.com/haatos/simple-build/internal/tool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// app wires the services a command needs. The database is opened on first
// use only.
type app struct {
	settings   *settings.AppSettings
	logger     *logrus.Logger
	definition *build.Definition
	// executor replaces the process executor in tests.
	executor tool.Executor

	db      *sql.DB
	dialect store.Dialect
}

func newApp(flags *pflag.FlagSet, logOut io.Writer) (*app, error) {
	s, err := settings.NewSettings(flags)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	logger := settings.NewLogger(s.LogLevel, s.LogFormat, logOut)
	def, err := build.LoadDefinition(s.BuildFilePath())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid build definition", err)
	}
	return &app{settings: s, logger: logger, definition: def}, nil
}

func (a *app) openDB() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, dialect, err := store.InitDatabase(a.settings.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	a.db, a.dialect = db, dialect
	return db, nil
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) secretService() (*service.SecretService, error) {
	if a.settings.SecretKey == "" {
		return nil, service.ErrSecretStoreOff
	}
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return service.NewSecretService(
		store.NewSecretSQLStore(db),
		security.NewAESEncrypter([]byte(a.settings.SecretKey)),
	), nil
}

func (a *app) apiKeyService() (*service.APIKeyService, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return service.NewAPIKeyService(store.NewAPIKeySQLStore(db), service.NewUUIDGen()), nil
}

// secrets resolves requirements from the environment first, then from the
// encrypted store when a secret key is configured.
func (a *app) secrets() (settings.SecretResolver, error) {
	chain := settings.ChainSecrets{settings.NewEnvSecrets()}
	if a.settings.SecretKey == "" {
		return chain, nil
	}
	svc, err := a.secretService()
	if err != nil {
		return nil, fmt.Errorf("err opening secret store: %w", err)
	}
	return append(chain, svc), nil
}

func (a *app) runStore() (store.RunStore, error) {
	if !a.settings.History {
		return new(store.NopRunStore), nil
	}
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return store.NewRunSQLStore(db), nil
}

func (a *app) buildEnv() build.Env {
	exec := a.executor
	if exec == nil {
		exec = tool.NewProcessExecutor(a.logger)
	}
	return build.Env{
		Root:            a.settings.Root,
		Definition:      a.definition,
		Configuration:   a.settings.Configuration,
		ServerBuild:     a.settings.ServerBuild,
		TestPartition:   a.settings.TestPartition,
		VersionOverride: a.settings.Version,
		Executor:        exec,
		Dropper:         service.NewDropService(a.logger),
		Logger:          a.logger,
	}
}

func (a *app) buildService() (*service.BuildService, error) {
	secrets, err := a.secrets()
	if err != nil {
		return nil, err
	}
	runStore, err := a.runStore()
	if err != nil {
		return nil, err
	}
	return service.NewBuildService(a.buildEnv(), secrets, runStore, a.logger), nil
}
