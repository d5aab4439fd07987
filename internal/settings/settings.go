package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/haatos/simple-build/internal"
	"github.com/haatos/simple-build/internal/partition"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SIMPLEBUILD"

// Flag and viper keys.
const (
	KeyRoot          = "root"
	KeyBuildFile     = "build-file"
	KeyConfiguration = "configuration"
	KeyTestPartition = "test-partition"
	KeyLogLevel      = "log-level"
	KeyLogFormat     = "log-format"
	KeyDatabaseURL   = "db-url"
	KeyPort          = "port"
	KeySecretKey     = "secret-key"
	KeyHistory       = "history"
	KeyQueueSize     = "queue-size"
	KeyVersion       = "version"
)

type AppSettings struct {
	Root          string
	BuildFile     string
	Configuration Configuration
	ServerBuild   bool
	TestPartition partition.Partition
	LogLevel      string
	LogFormat     string
	DatabaseURL   string
	Port          string
	SecretKey     string
	History       bool
	QueueSize     int
	Version       string
}

// BindFlags registers the flags shared by every command.
func BindFlags(flags *pflag.FlagSet) {
	flags.String(KeyRoot, ".", "repository root")
	flags.String(KeyBuildFile, internal.BuildFile, "build definition file, relative to the root")
	flags.StringP(KeyConfiguration, "c", "", "build configuration (Debug or Release); defaults to Debug locally and Release on a server build")
	flags.String(KeyTestPartition, "", "test partition to run, as k/n")
	flags.String(KeyLogLevel, "info", "log level (debug, info, warn, error)")
	flags.String(KeyLogFormat, "text", "log format (text or json)")
	flags.String(KeyDatabaseURL, "", "run history database (sqlite file: URL or postgres:// URL)")
	flags.Bool(KeyHistory, true, "record runs in the history database")
}

// NewSettings merges flags, SIMPLEBUILD_* environment variables, the .env
// file and defaults, in that order of precedence.
func NewSettings(flags *pflag.FlagSet) (*AppSettings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyBuildFile, internal.BuildFile)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyPort, ":8080")
	v.SetDefault(KeyHistory, true)
	v.SetDefault(KeyQueueSize, 3)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	root, err := filepath.Abs(v.GetString(KeyRoot))
	if err != nil {
		return nil, err
	}

	serverBuild := IsServerBuild(os.LookupEnv)
	configuration := DefaultConfiguration(serverBuild)
	if raw := v.GetString(KeyConfiguration); raw != "" {
		configuration, err = ParseConfiguration(raw)
		if err != nil {
			return nil, err
		}
	}

	testPartition, err := partition.Parse(v.GetString(KeyTestPartition))
	if err != nil {
		return nil, err
	}

	settings := &AppSettings{
		Root:          root,
		BuildFile:     v.GetString(KeyBuildFile),
		Configuration: configuration,
		ServerBuild:   serverBuild,
		TestPartition: testPartition,
		LogLevel:      strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:     strings.ToLower(v.GetString(KeyLogFormat)),
		DatabaseURL:   v.GetString(KeyDatabaseURL),
		Port:          v.GetString(KeyPort),
		SecretKey:     v.GetString(KeySecretKey),
		History:       v.GetBool(KeyHistory),
		QueueSize:     v.GetInt(KeyQueueSize),
		Version:       v.GetString(KeyVersion),
	}
	if !strings.HasPrefix(settings.Port, ":") {
		settings.Port = ":" + settings.Port
	}
	if settings.DatabaseURL == "" {
		settings.DatabaseURL = "file:" + filepath.ToSlash(
			filepath.Join(root, internal.StateDir, "history.db"),
		)
	}
	if settings.QueueSize < 1 {
		settings.QueueSize = 1
	}

	switch settings.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", settings.LogFormat)
	}

	return settings, nil
}

// BuildFilePath resolves the build definition relative to the root.
func (as *AppSettings) BuildFilePath() string {
	if filepath.IsAbs(as.BuildFile) {
		return as.BuildFile
	}
	return filepath.Join(as.Root, as.BuildFile)
}

var dotenvLine = regexp.MustCompile(`^[^0-9#][A-Z0-9_]+=.+$`)

// ReadDotenv loads KEY=VALUE lines into the environment. Variables that are
// already set win over the file. A missing file is not an error.
func ReadDotenv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("err opening dotenv: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !dotenvLine.MatchString(line) {
			continue
		}
		name, value, _ := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
