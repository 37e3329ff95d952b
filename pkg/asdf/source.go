package asdf

import "io"

// HeaderSource reads structural metadata and embedded documents out of a
// container file. The production implementation shells out to the HDF5
// command line tools; tests use a canned double.
type HeaderSource interface {
	// IsContainerFile reports whether path is a readable container file.
	IsContainerFile(path string) bool
	// ExtractHeader returns the raw, un-normalized header tree of the file.
	ExtractHeader(path string) (map[string]any, error)
	// ExtractDatasetBytes dumps the raw bytes of a dataset to outputPath.
	ExtractDatasetBytes(path string, datasetPath string, outputPath string) error
	// ReadStringAttribute reads a scalar string attribute.
	ReadStringAttribute(path string, attributePath string) (string, error)
	// ReadFloatAttribute reads a scalar numeric attribute.
	ReadFloatAttribute(path string, attributePath string) (float64, error)
}

// Report is the outcome of a sub-document delegate run.
type Report struct {
	Valid  bool
	Errors []string
}

// SubdocumentValidator checks one embedded document (event description,
// station metadata or provenance record) extracted from the container.
type SubdocumentValidator interface {
	Validate(r io.Reader) (*Report, error)
}

// Delegates bundles the sub-document validators the semantic stage hands
// extracted documents to.
type Delegates struct {
	QuakeML    SubdocumentValidator
	StationXML SubdocumentValidator
	Provenance SubdocumentValidator
}
