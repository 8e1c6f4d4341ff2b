// Config loading for the funnel CLI.
package cli

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/funnel/internal/paths"
	"github.com/mesh-intelligence/funnel/internal/session"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "FUNNEL"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyFixtures     = "fixtures"
	cfgKeySessionStore = "session.store"
	cfgKeyRedisURL     = "session.redis_url"
	cfgKeyRedisKey     = "session.redis_key"
	cfgKeySessionTTL   = "session.ttl"
	cfgKeySecret       = "session.secret"
	cfgKeyLogLevel     = "log.level"
)

// Fixture settings other than a file path.
const (
	fixturesDemo = "demo"
	fixturesNone = "none"
)

// configFile is the document written to config.yaml on first run.
type configFile struct {
	Backend  string        `yaml:"backend"`
	DataDir  string        `yaml:"data_dir,omitempty"`
	Fixtures string        `yaml:"fixtures"`
	Session  sessionConfig `yaml:"session"`
	Log      logConfig     `yaml:"log"`
}

type sessionConfig struct {
	Store    string `yaml:"store"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
	TTL      string `yaml:"ttl"`
	Secret   string `yaml:"secret"`
}

type logConfig struct {
	Level string `yaml:"level"`
}

// settings are the resolved configuration values of one invocation.
type settings struct {
	ConfigDir    string
	Backend      string
	DataDir      string
	Fixtures     string
	SessionStore string
	RedisURL     string
	RedisKey     string
	SessionTTL   time.Duration
	Secret       string
	LogLevel     string
}

func defaultConfig() (configFile, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return configFile{}, fmt.Errorf("generate session secret: %w", err)
	}
	return configFile{
		Backend:  types.BackendSQLite,
		Fixtures: fixturesDemo,
		Session: sessionConfig{
			Store:    types.SessionStoreFile,
			RedisURL: "redis://localhost:6379/0",
			RedisKey: session.DefaultRedisKey,
			TTL:      types.DefaultSessionTTL.String(),
			Secret:   hex.EncodeToString(secret),
		},
		Log: logConfig{Level: "warn"},
	}, nil
}

// loadSettings reads config.yaml from configDir, writing a default file on
// first run, applies FUNNEL_* environment overrides and resolves the data
// directory.
func loadSettings(configDir, dataDirFlag string) (settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return settings{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt)); err != nil {
		return settings{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyFixtures, fixturesDemo)
	v.SetDefault(cfgKeySessionStore, types.SessionStoreFile)
	v.SetDefault(cfgKeyRedisKey, session.DefaultRedisKey)
	v.SetDefault(cfgKeySessionTTL, types.DefaultSessionTTL)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	s := settings{
		ConfigDir:    configDir,
		Backend:      v.GetString(cfgKeyBackend),
		DataDir:      dataDir,
		Fixtures:     v.GetString(cfgKeyFixtures),
		SessionStore: v.GetString(cfgKeySessionStore),
		RedisURL:     v.GetString(cfgKeyRedisURL),
		RedisKey:     v.GetString(cfgKeyRedisKey),
		SessionTTL:   v.GetDuration(cfgKeySessionTTL),
		Secret:       v.GetString(cfgKeySecret),
		LogLevel:     v.GetString(cfgKeyLogLevel),
	}
	if s.Fixtures != fixturesDemo && s.Fixtures != fixturesNone && s.Fixtures != "" && !filepath.IsAbs(s.Fixtures) {
		s.Fixtures = filepath.Join(configDir, s.Fixtures)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg, err := defaultConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# funnel configuration; FUNNEL_<KEY> environment variables override these values.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o600)
}
