package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"sort"
)

// encodeMultipart builds a multipart/form-data body from the descriptor's
// JSON body fields plus its file fields. File-array fields are appended under
// indexed synthetic names ("photos__0", "photos__1", ...) and the original
// field carries a JSON array of those synthetic names, preserving order.
func encodeMultipart(desc Descriptor) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if err := writeBodyFields(writer, desc.Body); err != nil {
		return nil, "", err
	}

	// Group files by field name, preserving the order they were declared in.
	order := make([]string, 0, len(desc.Files))
	groups := make(map[string][]FileField)
	for _, f := range desc.Files {
		if _, seen := groups[f.Field]; !seen {
			order = append(order, f.Field)
		}
		groups[f.Field] = append(groups[f.Field], f)
	}

	for _, field := range order {
		files := groups[field]
		if len(files) == 1 && !files[0].Array {
			if err := writeFilePart(writer, field, files[0]); err != nil {
				return nil, "", err
			}
			continue
		}

		// Array-valued file field: indexed synthetic parts plus a JSON
		// manifest under the original field name.
		synthetic := make([]string, 0, len(files))
		for i, f := range files {
			name := fmt.Sprintf("%s__%d", field, i)
			if err := writeFilePart(writer, name, f); err != nil {
				return nil, "", err
			}
			synthetic = append(synthetic, name)
		}
		manifest, err := json.Marshal(synthetic)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode file manifest for %q: %w", field, err)
		}
		if err := writer.WriteField(field, string(manifest)); err != nil {
			return nil, "", fmt.Errorf("failed to write file manifest for %q: %w", field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}

// writeBodyFields flattens the JSON body into plain form fields. The body is
// round-tripped through JSON so namespaces can pass the same request structs
// they use for JSON-encoded calls.
func writeBodyFields(writer *multipart.Writer, body any) error {
	if body == nil {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode multipart body: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("multipart body must encode to a JSON object: %w", err)
	}

	// Sorted for deterministic part order.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := fields[key]
		// Bare strings are written without their JSON quotes.
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			s = string(value)
		}
		if err := writer.WriteField(key, s); err != nil {
			return fmt.Errorf("failed to write form field %q: %w", key, err)
		}
	}
	return nil
}

// writeFilePart writes one file under the given part name.
func writeFilePart(writer *multipart.Writer, partName string, f FileField) error {
	part, err := writer.CreateFormFile(partName, f.Name)
	if err != nil {
		return fmt.Errorf("failed to create file part %q: %w", partName, err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return fmt.Errorf("failed to write file part %q: %w", partName, err)
	}
	return nil
}
