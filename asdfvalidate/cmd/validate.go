package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asdf-archive/asdfvalidate/data/specs"
	"github.com/asdf-archive/asdfvalidate/pkg/asdf"
	"github.com/asdf-archive/asdfvalidate/pkg/hdf5"
	"github.com/asdf-archive/asdfvalidate/pkg/subdoc"
)

func validate(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	registry, err := asdf.NewSchemaRegistry(specs.Versions)
	if err != nil {
		return err
	}

	source := hdf5.NewTools(conf.HDF5.H5Dump, conf.HDF5.H5Ls, logger)
	validator := asdf.NewValidator(source, registry, asdf.Delegates{
		QuakeML:    subdoc.NewQuakeML(),
		StationXML: subdoc.NewStationXML(),
		Provenance: subdoc.NewSeisProv(),
	}, logger)
	validator.SetWarningSink(func(message string) {
		fmt.Fprintln(cmd.ErrOrStderr(), "WARNING:", message)
	})

	if err := validator.Validate(args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Valid ASDF File!")
	return nil
}
