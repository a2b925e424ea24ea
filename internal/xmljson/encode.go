package xmljson

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// AttrKey marks a map of attributes when encoding.
const AttrKey = "$"

// DefaultRoot names the root element when a value has no single top-level key.
const DefaultRoot = "root"

const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Encode converts a JSON-like value to an XML document. A map with exactly one key
// uses that key as the root element; anything else is wrapped in DefaultRoot.
func Encode(value interface{}) ([]byte, error) {
	value, err := normalize(value)
	if err != nil {
		return nil, err
	}
	root, body := DefaultRoot, value
	if m, ok := value.(map[string]interface{}); ok && len(m) == 1 {
		for k, v := range m {
			if _, isList := v.([]interface{}); !isList {
				root, body = k, v
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := encodeElement(enc, root, body); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, errors.Wrap(err, "flushing xml encoder")
	}
	return buf.Bytes(), nil
}

func encodeElement(enc *xml.Encoder, name string, value interface{}) error {
	if !namePattern.MatchString(name) {
		return errors.Errorf("invalid element name %q", name)
	}
	if list, ok := value.([]interface{}); ok {
		for _, item := range list {
			if err := encodeElement(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	m, isMap := value.(map[string]interface{})
	if isMap {
		if attrs, ok := m[AttrKey].(map[string]interface{}); ok {
			for _, k := range sortedKeys(attrs) {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: scalar(attrs[k])})
			}
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return errors.Wrapf(err, "encoding <%s>", name)
	}
	if isMap {
		if text, ok := m[TextKey]; ok {
			if err := enc.EncodeToken(xml.CharData(scalar(text))); err != nil {
				return errors.Wrapf(err, "encoding text of <%s>", name)
			}
		}
		for _, k := range sortedKeys(m) {
			if k == AttrKey || k == TextKey {
				continue
			}
			if err := encodeElement(enc, k, m[k]); err != nil {
				return err
			}
		}
	} else if value != nil {
		if err := enc.EncodeToken(xml.CharData(scalar(value))); err != nil {
			return errors.Wrapf(err, "encoding text of <%s>", name)
		}
	}
	return enc.EncodeToken(start.End())
}

// normalize reduces arbitrary values (structs, typed slices, nested typed maps)
// to the generic shapes by a JSON round trip.
func normalize(value interface{}) (interface{}, error) {
	switch value.(type) {
	case string, nil:
		return value, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "normalizing value")
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "normalizing value")
	}
	return generic, nil
}

func scalar(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
