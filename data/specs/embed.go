// Package specs ships the versioned ASDF structural schemas
// (JSON-Schema Draft 4) the validator checks header trees against.
package specs

import (
	_ "embed"
)

//go:embed ASDF_0.0.2.json
var ASDF_0_0_2 []byte

// Versions maps every known file_format_version to its schema document.
var Versions = map[string][]byte{
	"0.0.2": ASDF_0_0_2,
}
