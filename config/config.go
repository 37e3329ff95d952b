package config

import (
	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
)

type HDF5Config struct {
	H5Dump string `toml:"h5dump"`
	H5Ls   string `toml:"h5ls"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config carries everything the validator binary needs besides the file to
// check: where the HDF5 command line tools live and how to log.
type Config struct {
	Log  LogConfig  `toml:"Log"`
	HDF5 HDF5Config `toml:"HDF5"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "error",
		},
		HDF5: HDF5Config{
			H5Dump: "h5dump",
			H5Ls:   "h5ls",
		},
	}
}

// Load reads a TOML configuration file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	conf := Default()
	if path == "" {
		return conf, nil
	}
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, errors.Wrapf(err, "cannot load config file '%s'", path)
	}
	return conf, nil
}
