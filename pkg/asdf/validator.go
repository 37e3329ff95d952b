package asdf

import (
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
)

// FormatMarker is the expected value of the file_format attribute.
const FormatMarker = "ASDF"

// Validator runs the full pipeline over one container file: basic file
// checks, format marker checks, header normalization, structural schema
// validation and the semantic cross-field checks. The first fatal condition
// terminates the run with a single diagnostic.
type Validator struct {
	source    HeaderSource
	schemas   *SchemaRegistry
	rules     *Rules
	delegates Delegates
	logger    zerolog.Logger
	warn      func(message string)
}

func NewValidator(source HeaderSource, schemas *SchemaRegistry, delegates Delegates, logger zerolog.Logger) *Validator {
	v := &Validator{
		source:    source,
		schemas:   schemas,
		rules:     DefaultRules(),
		delegates: delegates,
		logger:    logger,
	}
	v.warn = func(message string) {
		v.logger.Warn().Msg(message)
	}
	return v
}

// SetRules replaces the default normalization tables, e.g. for a schema
// version with different dump conventions.
func (v *Validator) SetRules(rules *Rules) {
	v.rules = rules
}

// SetWarningSink redirects non-fatal findings. Warnings never change the
// outcome of a run.
func (v *Validator) SetWarningSink(fn func(message string)) {
	v.warn = fn
}

// Validate checks a single container file. A nil return means the file is a
// valid ASDF file; any error is terminal and carries the one diagnostic of
// the run.
func (v *Validator) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newValidationError(PathNotFound, "Path '%s' does not exist.", path)
		}
		return errors.Wrapf(err, "cannot stat '%s'", path)
	}
	if !info.Mode().IsRegular() {
		return newValidationError(NotAFile, "Path '%s' is not a file.", path)
	}
	if !v.source.IsContainerFile(path) {
		return newValidationError(NotAContainerFile, "Not an HDF5 file.")
	}

	fileFormat, err := v.source.ReadStringAttribute(path, "file_format")
	if err != nil {
		return newValidationError(AttributeMissingOrMalformed,
			"cannot read 'file_format' attribute: %v", err)
	}
	if fileFormat != FormatMarker {
		return newValidationError(UnsupportedFormatMarker,
			"'file_format' attribute in file is '%s' but must be '%s'.", fileFormat, FormatMarker)
	}
	version, err := v.source.ReadStringAttribute(path, "file_format_version")
	if err != nil {
		return newValidationError(AttributeMissingOrMalformed,
			"cannot read 'file_format_version' attribute: %v", err)
	}
	if !v.schemas.Has(version) {
		return newValidationError(UnknownSchemaVersion,
			"Format version %s not known to validator. Known versions:\n\t%s",
			version, strings.Join(v.schemas.Versions(), ", "))
	}

	tmpdir, err := os.MkdirTemp("", "tmp_asdf_validate_")
	if err != nil {
		return errors.Wrap(err, "cannot create temporary folder")
	}
	// The temporary extraction folder goes away on every exit path.
	defer func() {
		if err := os.RemoveAll(tmpdir); err != nil {
			v.logger.Error().Err(err).Str("folder", tmpdir).Msg("cannot remove temporary folder")
		}
	}()

	raw, err := v.source.ExtractHeader(path)
	if err != nil {
		return errors.Wrapf(err, "cannot extract header of '%s'", path)
	}
	header, ok := v.rules.Normalize(raw).(map[string]any)
	if !ok {
		return newValidationError(StructuralValidationFailure,
			"header of '%s' is not a group tree", path)
	}

	v.logger.Debug().Str("version", version).Msg("validating header structure")
	if err := v.schemas.Validate(version, header); err != nil {
		return err
	}
	return v.validateSemantics(path, header, tmpdir)
}
