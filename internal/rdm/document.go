// Package rdm reads Remote Desktop Manager XML exports and converts their
// connection entries into Guacamole connection records.
//
// Reading builds a small element tree with encoding/xml, tolerating a UTF-8
// BOM, BOM-marked UTF-16 exports and legacy encodings named in the XML
// declaration. Conversion is driven by each entry's ConnectionType.
package rdm

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrNotFound is returned when the export file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrMalformed is returned when the export is not well-formed XML.
	ErrMalformed = errors.New("malformed XML")
)

// ConnectionTag is the element name of one RDM connection entry.
const ConnectionTag = "Connection"

// node is one XML element with its direct character data.
type node struct {
	name     string
	text     strings.Builder
	children []*node
}

// ReadFile loads the export at path and returns its connection entries in
// document order.
func ReadFile(path string) ([]Element, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse reads an export from r and returns every Connection element found
// at any depth, in document order.
func Parse(r io.Reader) ([]Element, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, err
	}

	var out []Element
	var walk func(n *node)
	walk = func(n *node) {
		for _, c := range n.children {
			if c.name == ConnectionTag {
				out = append(out, Element{n: c})
			}
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

func parseTree(r io.Reader) (*node, error) {
	// BOMOverride switches to UTF-16 when a UTF-16 BOM is present and drops
	// a UTF-8 BOM. BOM-less input passes through untouched so the XML
	// declaration can still name a legacy charset.
	utf8r := transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	dec := xml.NewDecoder(utf8r)
	dec.CharsetReader = charsetReader

	var (
		root  *node
		stack []*node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			case root == nil:
				root = n
			default:
				return nil, fmt.Errorf("%w: junk after document element <%s>", ErrMalformed, t.Name.Local)
			}
			stack = append(stack, n)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: text outside the document element", ErrMalformed)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no element found", ErrMalformed)
	}
	return root, nil
}

// charsetReader handles the encoding named in the XML declaration. Input
// has already been normalized to UTF-8 when it carried a UTF-16 BOM, so the
// Unicode labels pass through untouched.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "utf-16", "utf-16le", "utf-16be", "unicode":
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
