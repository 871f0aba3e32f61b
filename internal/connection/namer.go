package connection

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Namer hands out batch-unique connection names. It owns the set of names
// already emitted in a run, keyed by NFC form; a zero Namer is not usable, use NewNamer.
//
// Collision scheme for a candidate name N with protocol P:
//
//	1st occurrence      N
//	2nd occurrence      N (P)
//	later / still taken N (P)_2, N (P)_3, ...
type Namer struct {
	used map[string]struct{}
}

// NewNamer returns an empty accumulator.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]struct{})}
}

// Unique returns the disambiguated form of name and records it as used.
// Names are compared in NFC form so that visually identical names from
// different exports collide, but the returned name keeps the caller's bytes.
func (n *Namer) Unique(name, protocol string) string {
	if !n.taken(name) {
		n.add(name)
		return name
	}

	base := fmt.Sprintf("%s (%s)", name, protocol)
	candidate := base
	for i := 2; n.taken(candidate); i++ {
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	n.add(candidate)
	return candidate
}

// Len reports how many names have been handed out.
func (n *Namer) Len() int { return len(n.used) }

func (n *Namer) taken(s string) bool {
	_, ok := n.used[norm.NFC.String(s)]
	return ok
}

func (n *Namer) add(s string) { n.used[norm.NFC.String(s)] = struct{}{} }
