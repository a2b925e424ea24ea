package xmljson

import (
	"bytes"
	"encoding/json"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// Format is an output serialization for decoded values.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// Collection element names used when a bare slice is written as XML.
const (
	listRoot = "records"
	listItem = "record"
)

// ParseFormat returns the Format named by `s`.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatXML, FormatYAML:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", errors.Errorf("unknown output format %q", s)
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// Marshal serializes `value` in the format. JSON is indented by two spaces
// without HTML escaping.
func (f Format) Marshal(value interface{}) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		return marshalJSON(value)
	case FormatYAML:
		j, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrap(err, "marshalling json for yaml")
		}
		return yaml.JSONToYAML(j)
	case FormatXML:
		if list, ok := value.([]interface{}); ok {
			value = map[string]interface{}{listRoot: map[string]interface{}{listItem: list}}
		}
		return Encode(value)
	}
	return nil, errors.Errorf("unknown output format %q", string(f))
}

func marshalJSON(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return nil, errors.Wrap(err, "marshalling json")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
