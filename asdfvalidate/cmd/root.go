package cmd

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/cobra"

	"github.com/asdf-archive/asdfvalidate/config"
)

// all flags of all commands go here
var persistentFlagConfigFile string
var persistentFlagLoglevel string

var conf *config.Config

var rootCmd = &cobra.Command{
	Use:     "asdfvalidate [path to ASDF file]",
	Short:   "asdfvalidate checks ASDF seismic data files for format conformance",
	Long:    "Validator for the ASDF seismic data file format.\nChecks the header structure against the versioned ASDF schema plus the\nconsistency rules the schema cannot express.",
	Example: "asdfvalidate ./example.h5",
	Args:    cobra.ExactArgs(1),
	RunE:    validate,
}

func initConfig() error {
	var err error
	conf, err = config.Load(persistentFlagConfigFile)
	if err != nil {
		return errors.Wrap(err, "cannot initialize config")
	}
	if persistentFlagLoglevel != "" {
		conf.Log.Level = persistentFlagLoglevel
	}
	return nil
}

func newLogger() (zerolog.Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	level, err := zerolog.ParseLevel(conf.Log.Level)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid log level '%s'", conf.Log.Level)
	}
	var out = os.Stderr
	if conf.Log.File != "" {
		fh, err := os.OpenFile(conf.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "cannot open logfile '%s'", conf.Log.File)
		}
		out = fh
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out}).
		Level(level).
		With().Timestamp().Logger()
	return logger, nil
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&persistentFlagConfigFile, "config", "", "config file (TOML)")
	rootCmd.PersistentFlags().StringVar(&persistentFlagLoglevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the validator. Any failure goes to stderr with exit code 1;
// a successful run prints the confirmation on stdout.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
