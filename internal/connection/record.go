// Package connection holds the destination-side connection model shared by
// both exporters: the Guacamole connection record, group path normalization,
// and the per-batch name disambiguation accumulator.
package connection

import "strings"

// RootGroup is the fixed root token every group path is anchored to.
const RootGroup = "ROOT"

// Record is one Guacamole connection definition.
//
// Group is a pointer so that "absent" (omitted from JSON) and "present but
// empty" stay distinguishable: the database exporter always emits a group,
// the document converter only when the source declares one.
type Record struct {
	Name       string            `json:"name"`
	Protocol   string            `json:"protocol"`
	Group      *string           `json:"group,omitempty"`
	Parameters map[string]string `json:"parameters"`
}

// New returns a record with an initialized, empty parameter map.
func New(name, protocol string) Record {
	return Record{Name: name, Protocol: protocol, Parameters: map[string]string{}}
}

// SetGroup sets the record's group to g, including the empty string.
func (r *Record) SetGroup(g string) {
	r.Group = &g
}

// GroupPath returns the group or "" when the record has none.
func (r Record) GroupPath() string {
	if r.Group == nil {
		return ""
	}
	return *r.Group
}

// GroupFromBackslashPath converts a backslash-delimited source group
// ("A\B\C") into a root-anchored Guacamole group ("ROOT/A/B/C"). The second
// return is false when p is empty, in which case no group should be set.
func GroupFromBackslashPath(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	return RootGroup + "/" + strings.ReplaceAll(p, `\`, "/"), true
}
