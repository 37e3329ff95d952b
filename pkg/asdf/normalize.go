package asdf

import (
	"strconv"
	"strings"

	"emperror.dev/errors"
)

// CoerceFunc converts the raw string form of a scalar field into a typed
// value. A returned error leaves the original string in place.
type CoerceFunc func(value string) (any, error)

// Rules holds the immutable normalization tables. Normalization itself is a
// total function: malformed values pass through unconverted and failure is
// deferred to the structural and semantic validators.
type Rules struct {
	ignore  map[string]struct{}
	renames map[string]string
	coerce  map[string]CoerceFunc
	nameKey string
}

// NewRules copies all tables so a Rules value can be shared read-only
// between concurrent validation runs.
func NewRules(ignore []string, renames map[string]string, coerce map[string]CoerceFunc, nameKey string) *Rules {
	r := &Rules{
		ignore:  make(map[string]struct{}, len(ignore)),
		renames: make(map[string]string, len(renames)),
		coerce:  make(map[string]CoerceFunc, len(coerce)),
		nameKey: nameKey,
	}
	for _, key := range ignore {
		r.ignore[key] = struct{}{}
	}
	for src, dst := range renames {
		r.renames[src] = dst
	}
	for key, fn := range coerce {
		r.coerce[key] = fn
	}
	return r
}

func coerceInt(value string) (any, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, errors.Wrapf(err, "'%s' is not an integer", value)
	}
	return i, nil
}

func coerceBool(value string) (any, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, errors.Errorf("'%s' is neither 'true' nor 'false'", value)
}

// DefaultRules returns the normalization tables for the header dump of an
// ASDF container.
func DefaultRules() *Rules {
	return NewRules(
		[]string{
			// Internal object ids and parent path bookkeeping of the dump.
			"@OBJ-XID",
			"@H5ParentPaths",
			"@Parents",
			"@H5Path",
			"FillValueInfo",
			// A header-only dump never carries payload data.
			"Data",
			// Storage layout matters per application, not for the format.
			"StorageLayout",
		},
		map[string]string{
			"Attribute": "attributes",
			"Group":     "groups",
			"Dataset":   "datasets",
		},
		map[string]CoerceFunc{
			"@StrSize":          coerceInt,
			"@Size":             coerceInt,
			"@DimSize":          coerceInt,
			"@MaxDimSize":       coerceInt,
			"@Ndims":            coerceInt,
			"@Sign":             coerceBool,
			"@SignBitLocation":  coerceInt,
			"@ExponentBits":     coerceInt,
			"@ExponentLocation": coerceInt,
			"@MantissaBits":     coerceInt,
			"@MantissaLocation": coerceInt,
		},
		"@Name",
	)
}

// Normalize rewrites a raw header tree into its canonical form: noise keys
// dropped, structural tags renamed, atomic DataType nodes flattened, known
// scalar fields typed and name-carrying children collapsed into name-maps.
// Keys already in canonical form are left untouched.
func (r *Rules) Normalize(v any) any {
	switch node := v.(type) {
	case map[string]any:
		return r.normalizeMap(node)
	case []any:
		for i, item := range node {
			node[i] = r.Normalize(item)
		}
		return node
	default:
		return v
	}
}

func (r *Rules) normalizeMap(node map[string]any) map[string]any {
	// Dropping a noise key also stops recursion into its subtree.
	for key := range r.ignore {
		delete(node, key)
	}

	// All datatypes in ASDF are atomic, so an atomic-only DataType can be
	// flattened. Extension data may use compound types; those stay nested
	// and the structural schema rejects them where they are not allowed.
	if dt, ok := childMap(node, "DataType"); ok {
		if len(dt) == 1 {
			if atomic, ok := dt["AtomicType"]; ok {
				node["DataType"] = atomic
			}
		}
	}

	for src, dst := range r.renames {
		if value, ok := node[src]; ok {
			delete(node, src)
			node[dst] = value
		}
	}

	for key, convert := range r.coerce {
		str, ok := node[key].(string)
		if !ok {
			continue
		}
		if typed, err := convert(str); err == nil {
			node[key] = typed
		}
	}

	for key, value := range node {
		node[key] = r.collapseNamed(value)
	}

	for key, value := range node {
		node[key] = r.Normalize(value)
	}
	return node
}

// collapseNamed rewrites name-carrying children into name-maps. A single
// map with a name field becomes a one-entry map keyed by that name; a list
// whose elements are all name-carrying maps becomes a map keyed by each
// element's name, later duplicates overwriting earlier ones.
func (r *Rules) collapseNamed(value any) any {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m[r.nameKey].(string); ok {
			delete(m, r.nameKey)
			return map[string]any{name: m}
		}
		return value
	}

	list, ok := value.([]any)
	if !ok {
		return value
	}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return value
		}
		if _, ok := m[r.nameKey].(string); !ok {
			return value
		}
	}
	byName := make(map[string]any, len(list))
	for _, item := range list {
		m := item.(map[string]any)
		name := m[r.nameKey].(string)
		delete(m, r.nameKey)
		byName[name] = m
	}
	return byName
}
