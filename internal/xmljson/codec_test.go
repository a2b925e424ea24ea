package xmljson

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repertoireXML = `<?xml version="1.0" encoding="UTF-8"?>
<repertoires number="2" page="1">
  <repertoire>
    <id>601</id>
    <free>120</free>
    <details/>
    <products>
      <product id="201" available="12">Regular</product>
    </products>
  </repertoire>
  <repertoire>
    <id>602</id>
    <free>0</free>
    <details></details>
    <products/>
  </repertoire>
</repertoires>`

func TestDecode(t *testing.T) {
	got, err := Decode([]byte(repertoireXML))
	require.NoError(t, err)

	want := map[string]interface{}{
		"repertoires": map[string]interface{}{
			"number": "2",
			"page":   "1",
			"repertoire": []interface{}{
				map[string]interface{}{
					"id":      "601",
					"free":    "120",
					"details": "",
					"products": map[string]interface{}{
						"product": map[string]interface{}{
							"id":        "201",
							"available": "12",
							TextKey:     "Regular",
						},
					},
				},
				map[string]interface{}{
					"id":       "602",
					"free":     "0",
					"details":  "",
					"products": "",
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeWithArrays(t *testing.T) {
	doc := `<synchronize><date>2024-05-01 10:00:00</date><ticket><name>A</name></ticket></synchronize>`

	plain, err := Decode([]byte(doc))
	require.NoError(t, err)
	ticket, ok := Lookup(plain, "synchronize", "ticket")
	require.True(t, ok)
	assert.IsType(t, map[string]interface{}{}, ticket)

	forced, err := Decode([]byte(doc), WithArrays("ticket"))
	require.NoError(t, err)
	ticket, ok = Lookup(forced, "synchronize", "ticket")
	require.True(t, ok)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "A"}}, ticket)

	date, _ := Lookup(forced, "synchronize", "date")
	assert.Equal(t, "2024-05-01 10:00:00", date)
}

func TestDecodeWithArrayPaths(t *testing.T) {
	doc := `<synchronize>
  <date>2024-05-01 10:00:00</date>
  <element>
    <name>Ticket 1</name>
    <price>12,50</price>
    <pass></pass>
    <ticket>4000000000123</ticket>
  </element>
</synchronize>`

	got, err := Decode([]byte(doc), WithArrays("synchronize/ticket", "synchronize/pass", "synchronize/element"))
	require.NoError(t, err)
	want := map[string]interface{}{
		"synchronize": map[string]interface{}{
			"date": "2024-05-01 10:00:00",
			"element": []interface{}{
				map[string]interface{}{
					"name":   "Ticket 1",
					"price":  "12,50",
					"pass":   "",
					"ticket": "4000000000123",
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}

	// A plain name matches at any depth.
	byName, err := Decode([]byte(doc), WithArrays("ticket"))
	require.NoError(t, err)
	element, _ := Lookup(byName, "synchronize", "element")
	ticket, _ := Lookup(element, "ticket")
	assert.Equal(t, []interface{}{"4000000000123"}, ticket)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unclosed", "<logged><session>abc</logged>"},
		{"two roots", "<a/><b/>"},
		{"text outside root", "hello <a/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDecodeCharset(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="ISO-8859-2"?><name>`)
	doc = append(doc, 0xA3, 0xF3, 'd', 0xBC)
	doc = append(doc, []byte(`</name>`)...)

	got, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, "Łódź", got["name"])
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value map[string]interface{}
	}{
		{
			name: "nested collections",
			value: map[string]interface{}{
				"repertoires": map[string]interface{}{
					"number": "2",
					"repertoire": []interface{}{
						map[string]interface{}{"id": "601", "free": "10"},
						map[string]interface{}{"id": "602", "free": "0"},
					},
				},
			},
		},
		{
			name: "escaped text",
			value: map[string]interface{}{
				"note": map[string]interface{}{"body": `a < b & "c"`, "empty": ""},
			},
		},
		{
			name: "text next to children",
			value: map[string]interface{}{
				"product": map[string]interface{}{"id": "201", TextKey: "Regular"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Encode(tt.value)
			require.NoError(t, err)
			got, err := Decode(doc)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s\n%s", diff, doc)
			}
		})
	}
}

// A one-element array encodes as a single child, which decodes back as the bare
// element. Naming the element in WithArrays restores the array.
func TestRoundTripSingleChildCollapse(t *testing.T) {
	value := map[string]interface{}{
		"synchronize": map[string]interface{}{
			"ticket": []interface{}{map[string]interface{}{"name": "A", "price": "10,00"}},
		},
	}
	doc, err := Encode(value)
	require.NoError(t, err)

	lossy, err := Decode(doc)
	require.NoError(t, err)
	assert.NotEqual(t, value, lossy)
	ticket, _ := Lookup(lossy, "synchronize", "ticket")
	assert.Equal(t, map[string]interface{}{"name": "A", "price": "10,00"}, ticket)

	exact, err := Decode(doc, WithArrays("ticket"))
	require.NoError(t, err)
	if diff := cmp.Diff(value, exact); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode(t *testing.T) {
	doc, err := Encode(map[string]interface{}{
		"logged": map[string]interface{}{
			AttrKey:   map[string]interface{}{"status": "ok"},
			"session": "abc123",
		},
	})
	require.NoError(t, err)
	s := string(doc)
	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`))
	assert.Contains(t, s, `<logged status="ok">`)
	assert.Contains(t, s, `<session>abc123</session>`)

	// Attributes come back merged into the element.
	got, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"logged": map[string]interface{}{"status": "ok", "session": "abc123"}}, got)
}

func TestEncodeMultipleKeysUsesDefaultRoot(t *testing.T) {
	doc, err := Encode(map[string]interface{}{"a": "1", "b": 2.5})
	require.NoError(t, err)
	got, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{DefaultRoot: map[string]interface{}{"a": "1", "b": "2.5"}}, got)
}

func TestEncodeInvalidName(t *testing.T) {
	_, err := Encode(map[string]interface{}{"1bad": "x"})
	assert.Error(t, err)
}

func TestAsArray(t *testing.T) {
	assert.Equal(t, []interface{}{}, AsArray(nil))
	assert.Equal(t, []interface{}{"a"}, AsArray("a"))
	assert.Equal(t, []interface{}{"a", "b"}, AsArray([]interface{}{"a", "b"}))
}

func TestFind(t *testing.T) {
	v, err := Decode([]byte(`<error><status>500</status><details><code>401</code></details></error>`))
	require.NoError(t, err)
	assert.True(t, Find(v, "code", "401"))
	assert.False(t, Find(v, "code", "403"))
}

func TestFormatMarshal(t *testing.T) {
	tickets := []interface{}{map[string]interface{}{"name": "A & B"}}

	j, err := FormatJSON.Marshal(tickets)
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"name\": \"A & B\"\n  }\n]", string(j))

	y, err := FormatYAML.Marshal([]interface{}{map[string]interface{}{"name": "A", "status": "paid"}})
	require.NoError(t, err)
	assert.Equal(t, "- name: A\n  status: paid\n", string(y))

	x, err := FormatXML.Marshal(tickets)
	require.NoError(t, err)
	back, err := Decode(x, WithArrays("record"))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"records": map[string]interface{}{"record": tickets}}, back)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
}
