// Package hdf5 implements the header source on top of the HDF5 command
// line utilities. Only the metadata dump is ever read, never the sample
// data itself.
package hdf5

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/clbanning/mxj/v2"
	"github.com/rs/zerolog"

	"github.com/asdf-archive/asdfvalidate/pkg/asdf"
)

func init() {
	// The header dump is XML; keep the attribute marker the rest of the
	// pipeline expects.
	mxj.SetAttrPrefix("@")
}

var trailingPadding = regexp.MustCompile(`(\\0+)+$`)

// Tools shells out to h5dump and h5ls.
type Tools struct {
	h5dump string
	h5ls   string
	logger zerolog.Logger
}

var _ asdf.HeaderSource = (*Tools)(nil)

func NewTools(h5dump string, h5ls string, logger zerolog.Logger) *Tools {
	if h5dump == "" {
		h5dump = "h5dump"
	}
	if h5ls == "" {
		h5ls = "h5ls"
	}
	return &Tools{h5dump: h5dump, h5ls: h5ls, logger: logger}
}

func (t *Tools) run(name string, args ...string) (stdout []byte, stderr []byte, err error) {
	t.logger.Debug().Str("tool", name).Strs("args", args).Msg("running")
	cmd := exec.Command(name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// IsContainerFile probes the file with h5ls. If the listing fails it is no
// HDF5 file.
func (t *Tools) IsContainerFile(path string) bool {
	_, _, err := t.run(t.h5ls, path)
	return err == nil
}

// ExtractHeader dumps the metadata-only XML header of the file and parses
// it into a raw tree rooted at the root group.
func (t *Tools) ExtractHeader(path string) (map[string]any, error) {
	stdout, stderr, err := t.run(t.h5dump, "-H", "-u", path)
	if len(stderr) > 0 {
		return nil, errors.Errorf("stderr when running h5dump: %s", string(stderr))
	}
	if err != nil {
		return nil, errors.Wrap(err, "running h5dump")
	}
	return ParseHeader(stdout)
}

// ParseHeader turns the XML header dump into the raw tree handed to the
// normalizer.
func ParseHeader(dump []byte) (map[string]any, error) {
	tree, err := mxj.NewMapXml(dump)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse header dump")
	}
	file, ok := tree["HDF5-File"].(map[string]any)
	if !ok {
		return nil, errors.New("header dump carries no HDF5-File element")
	}
	root, ok := file["RootGroup"].(map[string]any)
	if !ok {
		return nil, errors.New("header dump carries no RootGroup element")
	}
	return root, nil
}

// ExtractDatasetBytes dumps the raw bytes of one dataset to outputPath.
func (t *Tools) ExtractDatasetBytes(path string, datasetPath string, outputPath string) error {
	outputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return errors.Wrapf(err, "cannot resolve '%s'", outputPath)
	}
	if _, err := os.Stat(filepath.Dir(outputPath)); err != nil {
		return errors.Errorf("Folder '%s' does not exist.", filepath.Dir(outputPath))
	}
	_, stderr, err := t.run(t.h5dump, "-d", datasetPath, "-b", "-o", outputPath, path)
	if err != nil {
		return errors.Wrapf(err, "cannot dump dataset '%s': %s", datasetPath, string(stderr))
	}
	return nil
}

// readAttribute reads the raw textual form of a scalar attribute.
func (t *Tools) readAttribute(path string, attributePath string) (string, error) {
	stdout, stderr, _ := t.run(t.h5dump, "-e", "-a", attributePath, path)
	if strings.Contains(strings.ToLower(string(stderr)), "unable to open attribute") {
		return "", errors.Errorf("Could not find attribute '%s' in file.", attributePath)
	}
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "(0):") {
			continue
		}
		return strings.TrimSpace(line[len("(0):"):]), nil
	}
	return "", errors.Errorf("Problem decoding attribute '%s' in file.", attributePath)
}

// ReadStringAttribute reads a scalar string attribute, stripping the
// quoting and any trailing zero padding of the dump output.
func (t *Tools) ReadStringAttribute(path string, attributePath string) (string, error) {
	raw, err := t.readAttribute(path, attributePath)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(raw, `"`) || !strings.HasSuffix(raw, `"`) {
		return "", errors.Errorf("Problem decoding attribute '%s' in file.", attributePath)
	}
	return trailingPadding.ReplaceAllString(raw[1:len(raw)-1], ""), nil
}

// ReadFloatAttribute reads a scalar numeric attribute.
func (t *Tools) ReadFloatAttribute(path string, attributePath string) (float64, error) {
	raw, err := t.readAttribute(path, attributePath)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "attribute '%s' is not a number", attributePath)
	}
	return value, nil
}
