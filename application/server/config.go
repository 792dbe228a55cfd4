package server

import (
	"github.com/botvault-sys/botvault-go/application"
	"github.com/botvault-sys/botvault-go/utils"
)

// An Address describes a server's connection.
// It makes the server connections configurable so that the public
// submission endpoint, the reviewer endpoint and the game engine's
// endpoint can be separated, e.g. the reviewer and engine endpoints
// bound to a unix socket or an internal interface only.
//
// Accepting submitter, reviewer or engine requests has to be specified
// explicitly for each connection; an address with no flag set serves
// nothing. Game results must never be writable from a public address,
// so AllowEngine stays off there.
type Address struct {
	*application.ServerAddress
	AllowSubmission bool `toml:"allow_submission,omitempty"`
	AllowReview     bool `toml:"allow_review,omitempty"`
	AllowEngine     bool `toml:"allow_engine,omitempty"`
}

// A Config contains configuration values
// which are read at initialization time from
// a TOML format configuration file.
type Config struct {
	*application.CommonConfig
	// DataDir is the directory holding every durable store: the
	// submission table, the pending-artifact database, the encrypted
	// custody vault and the admin table.
	DataDir string `toml:"data_dir"`
	// Policies contains the server's access policies configuration.
	Policies *Policies `toml:"policies"`
	// SMTP configures outgoing submission notifications; omit it to
	// disable email delivery.
	SMTP *application.SMTPConfig `toml:"smtp,omitempty"`
	// Addresses contains the server's connections configuration.
	Addresses []*Address `toml:"addresses"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new server configuration with the given
// server addresses, logger configuration, data directory and access
// policies.
func NewConfig(file, encoding string, addrs []*Address,
	logConfig *application.LoggerConfig, dataDir string,
	policies *Policies, smtp *application.SMTPConfig) *Config {
	return &Config{
		CommonConfig: application.NewCommonConfig(file, encoding, logConfig),
		DataDir:      dataDir,
		Policies:     policies,
		SMTP:         smtp,
		Addresses:    addrs,
	}
}

// Load initializes a server configuration from the corresponding
// config file. It reads the audit signing key into the Config instance
// and updates the data directory and the path of the TLS certificate
// files of each Address to absolute paths.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	if err := conf.GetLoader().Decode(conf); err != nil {
		return err
	}

	signKey, err := application.LoadSigningKey(conf.Policies.SignKeyPath, file)
	if err != nil {
		return err
	}
	conf.Policies.signKey = signKey

	conf.DataDir = utils.ResolvePath(conf.DataDir, file)
	// also update path for TLS cert files
	for _, addr := range conf.Addresses {
		if addr.TLSCertPath != "" {
			addr.TLSCertPath = utils.ResolvePath(addr.TLSCertPath, file)
		}
		if addr.TLSKeyPath != "" {
			addr.TLSKeyPath = utils.ResolvePath(addr.TLSKeyPath, file)
		}
	}
	// logger config
	if conf.Logger != nil && conf.Logger.Path != "" {
		conf.Logger.Path = utils.ResolvePath(conf.Logger.Path, file)
	}
	return nil
}

// Save writes a server's configuration.
func (conf *Config) Save() error {
	return conf.GetLoader().Encode(conf)
}

// GetPath returns the server's configuration file path.
func (conf *Config) GetPath() string {
	return conf.Path
}
