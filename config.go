package ideabase

import (
	"strings"

	"github.com/autom8ter/ideabase/auth"
	"github.com/autom8ter/ideabase/blob"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/util"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config configures an ideabase server
type Config struct {
	// Port is the port the http server listens on
	Port int `json:"port" validate:"required,gt=0"`
	// LogLevel is one of error, warn, info, debug
	LogLevel string `json:"log_level"`
	// Store selects and configures the document store provider
	Store StoreConfig `json:"store"`
	// Retry controls retries of transient store failures
	Retry RetryPolicy `json:"retry"`
	// Collections are the collections queries may target
	Collections []string `json:"collections" validate:"min=1"`
	// Blob configures file storage
	Blob blob.Config `json:"blob"`
	// Session configures session verification
	Session auth.Config `json:"session"`
}

// StoreConfig selects a document store provider
type StoreConfig struct {
	// Provider is the registered provider name (mongodb or badger)
	Provider string `json:"provider" validate:"required"`
	// MongoURI is the mongodb connection string
	MongoURI string `json:"mongodb_uri"`
	// MongoDatabase is the mongodb database name
	MongoDatabase string `json:"mongodb_db"`
	// MaxPoolSize is the mongodb connection pool size
	MaxPoolSize uint64 `json:"max_pool_size"`
	// StoragePath is the badger storage directory. Empty means in memory.
	StoragePath string `json:"storage_path"`
}

// Params returns the provider params for store.Open
func (s StoreConfig) Params() map[string]any {
	switch s.Provider {
	case "mongodb":
		params := map[string]any{
			"uri":      s.MongoURI,
			"database": s.MongoDatabase,
		}
		if s.MaxPoolSize > 0 {
			params["max_pool_size"] = s.MaxPoolSize
		}
		return params
	default:
		return map[string]any{
			"storage_path": s.StoragePath,
		}
	}
}

var configDefaults = map[string]any{
	"port":                  8080,
	"log_level":             "info",
	"store.provider":        "mongodb",
	"store.mongodb_db":      "ideabase",
	"store.mongodb_uri":     "",
	"store.max_pool_size":   20,
	"store.storage_path":    "",
	"retry.attempts":        DefaultRetryPolicy.Attempts,
	"retry.backoff":         DefaultRetryPolicy.Backoff.String(),
	"collections":           strings.Join(DefaultCollections, ","),
	"blob.endpoint":         "",
	"blob.access_key":       "",
	"blob.secret_key":       "",
	"blob.region":           "",
	"blob.use_ssl":          false,
	"blob.bucket":           "idea-files",
	"blob.public_base_url":  "",
	"blob.max_file_size_mb": 50,
	"session.secret":        "",
	"session.cookie":        "session",
}

// aliases are unprefixed environment variables accepted for convenience
var configAliases = map[string]string{
	"store.mongodb_uri": "MONGODB_URI",
	"store.mongodb_db":  "MONGODB_DB",
}

// LoadConfig loads configuration from a .env file (if present) and environment variables carrying the prefix.
// Nested keys are separated by underscores: IDEABASE_STORE_PROVIDER sets store.provider.
func LoadConfig(prefix string) (*Config, error) {
	_ = godotenv.Load()
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k, val := range configDefaults {
		v.SetDefault(k, val)
		if err := v.BindEnv(k); err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to bind %s", k)
		}
	}
	for k, env := range configAliases {
		if err := v.BindEnv(k, strings.ToUpper(strings.TrimSuffix(prefix, "_"))+"_"+strings.ToUpper(strings.ReplaceAll(k, ".", "_")), env); err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to bind %s", k)
		}
	}
	var cfg Config
	if err := util.Decode(v.AllSettings(), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the config
func (c *Config) Validate() error {
	if err := util.ValidateStruct(c); err != nil {
		return errors.Wrap(err, errors.Validation, "invalid config")
	}
	if c.Store.Provider == "mongodb" && c.Store.MongoURI == "" {
		return errors.New(errors.Validation, "empty required config: store.mongodb_uri")
	}
	if c.Retry.Attempts < 1 {
		return errors.New(errors.Validation, "retry.attempts must be at least 1")
	}
	return nil
}
