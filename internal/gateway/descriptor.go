package gateway

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

// Descriptor describes one request to be executed by the transport client.
// It is ephemeral and constructed per call by the typed endpoint namespaces.
type Descriptor struct {
	Method       string
	Path         string
	Query        Query
	Body         any         // JSON-encoded unless Files is non-empty
	Files        []FileField // Non-empty switches the body to multipart/form-data
	AuthRequired bool
}

// Query holds query parameters. Values may be scalars or slices; nil values
// are omitted entirely rather than sent as empty strings.
type Query map[string]any

// FileField is one file part of a multipart request. Fields sharing a Field
// name, or marked Array, are encoded with indexed synthetic part names so the
// receiving side can reconstruct file-array order deterministically.
type FileField struct {
	Field   string
	Name    string // Original file name
	Content []byte
	Array   bool // Force array encoding even for a single file
}

// Encode serializes the query parameters: scalars as key=value, slice values
// repeating the key once per element, nil values omitted.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	values := url.Values{}
	for key, raw := range q {
		if raw == nil {
			continue
		}
		rv := reflect.ValueOf(raw)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				elem := rv.Index(i).Interface()
				if elem == nil {
					continue
				}
				values.Add(key, queryScalar(elem))
			}
			continue
		}
		values.Add(key, queryScalar(raw))
	}
	return values.Encode()
}

// queryScalar formats a single query value.
func queryScalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
