package asdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SchemaRegistry holds the compiled structural schemas by format version.
// Every schema document is validated against the Draft-4 meta schema at
// construction; a registry is read-only afterwards and safe to share
// between concurrent validation runs.
type SchemaRegistry struct {
	schemas map[string]*jsonschema.Schema
}

// NewSchemaRegistry compiles the given schema documents. A document that
// does not satisfy the Draft-4 meta schema is a configuration defect, not
// an input file problem, and yields a SchemaSelfInvalid error.
func NewSchemaRegistry(documents map[string][]byte) (*SchemaRegistry, error) {
	registry := &SchemaRegistry{
		schemas: make(map[string]*jsonschema.Schema, len(documents)),
	}
	for version, document := range documents {
		name := fmt.Sprintf("asdf_%s.json", version)
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft4
		if err := compiler.AddResource(name, bytes.NewReader(document)); err != nil {
			return nil, &ValidationError{
				Code:    SchemaSelfInvalid,
				Message: fmt.Sprintf("structural schema for version %s is not parseable: %v", version, err),
			}
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, &ValidationError{
				Code:    SchemaSelfInvalid,
				Message: fmt.Sprintf("structural schema for version %s does not satisfy the Draft-4 meta schema: %v", version, err),
			}
		}
		registry.schemas[version] = schema
	}
	return registry, nil
}

// Has reports whether a schema for the given format version is registered.
func (r *SchemaRegistry) Has(version string) bool {
	_, ok := r.schemas[version]
	return ok
}

// Versions returns the known format versions in sorted order.
func (r *SchemaRegistry) Versions() []string {
	versions := maps.Keys(r.schemas)
	slices.Sort(versions)
	return versions
}

// Validate runs the structural schema for the given version over a
// normalized header tree.
func (r *SchemaRegistry) Validate(version string, header map[string]any) error {
	schema, ok := r.schemas[version]
	if !ok {
		return newValidationError(UnknownSchemaVersion,
			"Format version %s not known to validator. Known versions:\n\t%s",
			version, strings.Join(r.Versions(), ", "))
	}
	// Round-trip through JSON so the schema library sees exactly the value
	// kinds it expects.
	data, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "cannot marshal normalized header")
	}
	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return errors.Wrap(err, "cannot unmarshal normalized header")
	}
	if err := schema.Validate(document); err != nil {
		return newValidationError(StructuralValidationFailure,
			"header does not conform to the ASDF %s schema:\n%v", version, err)
	}
	return nil
}
