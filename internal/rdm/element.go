package rdm

import (
	"strconv"
	"strings"
)

// Element is a read-only view of one XML element that looks up descendants
// by a slash-separated path of direct-child tag names, e.g. "RDP/Host".
type Element struct {
	n *node
}

// Name returns the element's tag name.
func (e Element) Name() string {
	if e.n == nil {
		return ""
	}
	return e.n.name
}

// Find returns the element at path, following the first matching child at
// each step.
func (e Element) Find(path string) (Element, bool) {
	cur := e.n
	if cur == nil {
		return Element{}, false
	}
	for _, seg := range strings.Split(path, "/") {
		var next *node
		for _, c := range cur.children {
			if c.name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return Element{}, false
		}
		cur = next
	}
	return Element{n: cur}, true
}

// Has reports whether an element exists at path.
func (e Element) Has(path string) bool {
	_, ok := e.Find(path)
	return ok
}

// Text returns the character data of the element at path, or def when the
// element is missing. A present but empty element also yields def.
func (e Element) Text(path, def string) string {
	f, ok := e.Find(path)
	if !ok {
		return def
	}
	if s := f.n.text.String(); s != "" {
		return s
	}
	return def
}

// Port returns the element text at path as a port number when it is made of
// ASCII digits only and fits an int; otherwise def.
func (e Element) Port(path string, def int) int {
	s := e.Text(path, "")
	if s == "" {
		return def
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return def
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
