// Package xmljson converts XML documents into generic JSON-like values and back.
//
// Decoded values use three shapes: string for text-only elements, map[string]interface{}
// for elements with attributes or children, and []interface{} for repeated children.
// Attributes are merged into the element map as sibling keys, and text next to children
// or attributes is kept under TextKey.
//
// A child that occurs once is not wrapped in an array unless its name or path was
// passed to WithArrays. Consumers that expect collections should name them there,
// by path when the same name also appears as a field deeper in the document.
package xmljson
