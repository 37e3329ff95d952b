package asdf

import (
	"io"
	"os"

	"emperror.dev/errors"
)

// fakeSource is the canned header source the engine tests run against, so
// no HDF5 toolchain is needed.
type fakeSource struct {
	container bool
	header    map[string]any
	strings   map[string]string
	floats    map[string]float64
	documents map[string][]byte
}

func (s *fakeSource) IsContainerFile(path string) bool {
	return s.container
}

func (s *fakeSource) ExtractHeader(path string) (map[string]any, error) {
	if s.header == nil {
		return nil, errors.New("no header")
	}
	return s.header, nil
}

func (s *fakeSource) ExtractDatasetBytes(path string, datasetPath string, outputPath string) error {
	document, ok := s.documents[datasetPath]
	if !ok {
		return errors.Errorf("no dataset '%s'", datasetPath)
	}
	return os.WriteFile(outputPath, document, 0o644)
}

func (s *fakeSource) ReadStringAttribute(path string, attributePath string) (string, error) {
	value, ok := s.strings[attributePath]
	if !ok {
		return "", errors.Errorf("Could not find attribute '%s' in file.", attributePath)
	}
	return value, nil
}

func (s *fakeSource) ReadFloatAttribute(path string, attributePath string) (float64, error) {
	value, ok := s.floats[attributePath]
	if !ok {
		return 0, errors.Errorf("Could not find attribute '%s' in file.", attributePath)
	}
	return value, nil
}

type fakeDelegate struct {
	report *Report
}

func (d *fakeDelegate) Validate(r io.Reader) (*Report, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return d.report, nil
}

func validDelegate() *fakeDelegate {
	return &fakeDelegate{report: &Report{Valid: true}}
}

func invalidDelegate(messages ...string) *fakeDelegate {
	return &fakeDelegate{report: &Report{Valid: false, Errors: messages}}
}

func allValidDelegates() Delegates {
	return Delegates{
		QuakeML:    validDelegate(),
		StationXML: validDelegate(),
		Provenance: validDelegate(),
	}
}
