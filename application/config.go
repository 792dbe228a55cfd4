package application

import (
	"fmt"
	"io/ioutil"

	"github.com/botvault-sys/botvault-go/crypto/sign"
	"github.com/botvault-sys/botvault-go/utils"
)

// AppConfig provides an abstraction of the
// underlying encoding format for the configs.
type AppConfig interface {
	Load(file, encoding string) error
	Save() error
	GetPath() string
}

// CommonConfig is the generic type used to specify the configuration of
// any kind of BotVault application-level executable (e.g. the vault
// server, a client etc.). It contains some common configuration
// values including the file path, logger configuration, and config
// loader.
type CommonConfig struct {
	Path     string
	Logger   *LoggerConfig `toml:"logger"`
	Encoding string
	loader   ConfigLoader
}

// NewCommonConfig initializes an application's config file path,
// its loader for the given encoding, and the logger configuration.
// Note: This constructor must be called in each Load() method
// implementation of an AppConfig.
func NewCommonConfig(file, encoding string, logger *LoggerConfig) *CommonConfig {
	return &CommonConfig{
		Path:     file,
		Logger:   logger,
		Encoding: encoding,
		loader:   newConfigLoader(encoding),
	}
}

// GetLoader returns the config's loader.
func (conf *CommonConfig) GetLoader() ConfigLoader {
	return conf.loader
}

// LoadSigningPubKey loads a public signing key at the given path
// specified in the given config file. Auditors use it to verify the
// server's audit trail out of band.
// If there is any parsing error or the key is malformed,
// LoadSigningPubKey() returns an error with a nil key.
func LoadSigningPubKey(path, file string) (sign.PublicKey, error) {
	signPath := utils.ResolvePath(path, file)
	signPubKey, err := ioutil.ReadFile(signPath)
	if err != nil {
		return nil, fmt.Errorf("Cannot read signing key: %v", err)
	}
	if len(signPubKey) != sign.PublicKeySize {
		return nil, fmt.Errorf("Signing public-key must be 32 bytes (got %d)", len(signPubKey))
	}
	return signPubKey, nil
}

// LoadSigningKey loads a private signing key at the given path
// specified in the given config file. The server signs its audit
// trail with this key.
func LoadSigningKey(path, file string) (sign.PrivateKey, error) {
	signPath := utils.ResolvePath(path, file)
	signKey, err := ioutil.ReadFile(signPath)
	if err != nil {
		return nil, fmt.Errorf("Cannot read signing key: %v", err)
	}
	if len(signKey) != sign.PrivateKeySize {
		return nil, fmt.Errorf("Signing key must be 64 bytes (got %d)", len(signKey))
	}
	return signKey, nil
}
