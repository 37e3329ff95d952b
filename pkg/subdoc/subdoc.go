// Package subdoc holds the validators for the XML documents embedded in an
// ASDF container: the QuakeML event description, the StationXML station
// metadata and the SEIS-PROV provenance records. Each checks the document
// for well-formedness and the expected root element; deeper grammar
// validation stays behind the delegate interface and can be swapped in.
package subdoc

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/asdf-archive/asdfvalidate/pkg/asdf"
)

// DocumentChecker validates one embedded XML document kind.
type DocumentChecker struct {
	kind      string
	root      string
	namespace string
}

var _ asdf.SubdocumentValidator = (*DocumentChecker)(nil)

// NewQuakeML returns the checker for event description documents.
func NewQuakeML() *DocumentChecker {
	return &DocumentChecker{
		kind:      "QuakeML",
		root:      "quakeml",
		namespace: "http://quakeml.org/xmlns/quakeml/1.2",
	}
}

// NewStationXML returns the checker for station metadata documents.
func NewStationXML() *DocumentChecker {
	return &DocumentChecker{
		kind:      "StationXML",
		root:      "FDSNStationXML",
		namespace: "http://www.fdsn.org/xml/station/1",
	}
}

// NewSeisProv returns the checker for provenance documents.
func NewSeisProv() *DocumentChecker {
	return &DocumentChecker{
		kind:      "SEIS-PROV",
		root:      "document",
		namespace: "http://www.w3.org/ns/prov#",
	}
}

// Validate reads the whole document. Syntax errors and an unexpected root
// element are document flaws, not engine failures, so they land in the
// report.
func (c *DocumentChecker) Validate(r io.Reader) (*asdf.Report, error) {
	decoder := xml.NewDecoder(r)
	var root *xml.Name
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &asdf.Report{
				Valid:  false,
				Errors: []string{fmt.Sprintf("%s document is not well-formed XML: %v", c.kind, err)},
			}, nil
		}
		if start, ok := token.(xml.StartElement); ok && root == nil {
			name := start.Name
			root = &name
		}
	}
	if root == nil {
		return &asdf.Report{
			Valid:  false,
			Errors: []string{fmt.Sprintf("%s document contains no elements", c.kind)},
		}, nil
	}
	if root.Local != c.root || root.Space != c.namespace {
		return &asdf.Report{
			Valid: false,
			Errors: []string{fmt.Sprintf(
				"root element is {%s}%s but must be {%s}%s",
				root.Space, root.Local, c.namespace, c.root)},
		}, nil
	}
	return &asdf.Report{Valid: true}, nil
}
