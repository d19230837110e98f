package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	KeyDatabase         = "jnosql.document.database"
	KeyCouchDBPort      = "jnosql.couchdb.port"
	KeyCouchDBPassword  = "jnosql.couchdb.password"
	KeyCouchDBUsername  = "jnosql.couchdb.username"
	KeyArangoDBHost     = "jnosql.arangodb.host"
	KeyArangoDBPassword = "jnosql.arangodb.password"
)

var (
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Reader resolves typed values from the application configuration.
type Reader interface {
	RequiredString(key string) (string, error)
	RequiredInt(key string) (int, error)
	// OptionalString never fails, the second return value reports presence.
	OptionalString(key string) (string, bool)
}

// ViperReader reads application properties, with environment variables taking
// precedence: JNOSQL_COUCHDB_PORT overrides jnosql.couchdb.port.
type ViperReader struct {
	v *viper.Viper
}

func newViper() (*viper.Viper, error) {
	codecs, err := propertiesCodecRegistry()
	if err != nil {
		return nil, fmt.Errorf("could not register properties codec: %w", err)
	}

	v := viper.NewWithOptions(
		viper.WithCodecRegistry(codecs),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_")),
	)
	v.SetConfigType(propertiesFormat)
	v.AutomaticEnv()
	return v, nil
}

// NewFileReader loads the properties file at path. A missing file is not an
// error, every key is then resolved from the environment only.
func NewFileReader(path string) (*ViperReader, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not read %s: %w", path, err)
		}
	}
	return &ViperReader{v: v}, nil
}

// NewReader loads properties from r.
func NewReader(r io.Reader) (*ViperReader, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("could not read properties: %w", err)
	}
	return &ViperReader{v: v}, nil
}

func (r *ViperReader) lookup(key string) (any, bool) {
	if !r.v.IsSet(key) {
		return nil, false
	}
	val := r.v.Get(key)
	if val == nil {
		return nil, false
	}
	return val, true
}

// RequiredString fails with ErrMissingConfiguration for blank values too.
func (r *ViperReader) RequiredString(key string) (string, error) {
	val, ok := r.lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingConfiguration, key)
	}
	s, err := cast.ToStringE(val)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, key, err)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingConfiguration, key)
	}
	return s, nil
}

func (r *ViperReader) RequiredInt(key string) (int, error) {
	val, ok := r.lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingConfiguration, key)
	}
	if s, isString := val.(string); isString {
		val = strings.TrimSpace(s)
		if val == "" {
			return 0, fmt.Errorf("%w: %s is empty", ErrMissingConfiguration, key)
		}
	}
	i, err := cast.ToIntE(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, key, err)
	}
	return i, nil
}

func (r *ViperReader) OptionalString(key string) (string, bool) {
	val, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(val)
	if err != nil {
		return "", false
	}
	return s, true
}
