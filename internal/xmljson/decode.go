package xmljson

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// TextKey holds character data of elements that also carry attributes or children.
const TextKey = "_"

// Option configures Decode.
type Option func(*decoder)

// WithArrays forces elements to decode as arrays, even when they occur only once.
// A plain name matches elements of that local name at any depth. A slash separated
// path such as "synchronize/element" matches only at that position below the root.
func WithArrays(names ...string) Option {
	return func(d *decoder) {
		for _, name := range names {
			d.arrays[name] = struct{}{}
		}
	}
}

type decoder struct {
	arrays map[string]struct{}
}

// Decode converts an XML document to a map holding its single root element.
func Decode(data []byte, opts ...Option) (map[string]interface{}, error) {
	d := &decoder{arrays: make(map[string]struct{})}
	for _, opt := range opts {
		opt(d)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var result map[string]interface{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if result != nil {
				return nil, errors.Errorf("unexpected second root element <%s>", t.Name.Local)
			}
			value, err := d.element(dec, t, t.Name.Local)
			if err != nil {
				return nil, err
			}
			result = map[string]interface{}{t.Name.Local: d.wrap(t.Name.Local, t.Name.Local, value)}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("character data outside of root element")
			}
		}
	}
	if result == nil {
		return nil, errors.New("no root element")
	}
	return result, nil
}

// element decodes the content of `start`, whose slash separated position below
// the document is `path`.
func (d *decoder) element(dec *xml.Decoder, start xml.StartElement, path string) (interface{}, error) {
	obj := make(map[string]interface{})
	for _, attr := range start.Attr {
		d.put(obj, path, attr.Name.Local, attr.Value)
	}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(err, "reading element <%s>", start.Name.Local)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := d.element(dec, t, path+"/"+t.Name.Local)
			if err != nil {
				return nil, err
			}
			d.put(obj, path, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return finish(obj, text.String()), nil
		}
	}
}

func finish(obj map[string]interface{}, text string) interface{} {
	blank := strings.TrimSpace(text) == ""
	if len(obj) == 0 {
		if blank {
			return ""
		}
		return text
	}
	if !blank {
		obj[TextKey] = strings.TrimSpace(text)
	}
	return obj
}

func (d *decoder) wrap(path, name string, value interface{}) interface{} {
	if d.forced(path, name) {
		return []interface{}{value}
	}
	return value
}

func (d *decoder) forced(path, name string) bool {
	if _, ok := d.arrays[name]; ok {
		return true
	}
	_, ok := d.arrays[path]
	return ok
}

// put adds child `name` of the element at `parent`.
func (d *decoder) put(obj map[string]interface{}, parent, name string, value interface{}) {
	existing, ok := obj[name]
	if !ok {
		obj[name] = d.wrap(parent+"/"+name, name, value)
		return
	}
	if list, ok := existing.([]interface{}); ok {
		obj[name] = append(list, value)
		return
	}
	obj[name] = []interface{}{existing, value}
}
