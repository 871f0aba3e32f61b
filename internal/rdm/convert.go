package rdm

import (
	"fmt"
	"strconv"

	"guacmigrate/internal/connection"
)

// Kind is an RDM ConnectionType discriminant.
type Kind string

// Supported connection types.
const (
	KindSSHShell      Kind = "SSHShell"
	KindRDP           Kind = "RDP"
	KindRDPConfigured Kind = "RDPConfigured"
	KindVNC           Kind = "VNC"
)

// Default ports applied when an entry has no usable port.
const (
	DefaultSSHPort = 22
	DefaultRDPPort = 3389
	DefaultVNCPort = 5900
)

// SupportedKinds lists the convertible types in a stable order.
func SupportedKinds() []Kind {
	return []Kind{KindSSHShell, KindRDP, KindRDPConfigured, KindVNC}
}

// mapping is the per-type extraction rule. It returns the candidate record
// (name not yet made unique) and whether a concealed password was present.
type mapping func(el Element) (rec connection.Record, concealed bool)

var mappings = map[Kind]mapping{
	KindSSHShell:      mapSSH,
	KindRDP:           mapRDP,
	KindRDPConfigured: mapRDP,
	KindVNC:           mapVNC,
}

// Stats summarizes one conversion run.
type Stats struct {
	// Entries is the number of Connection elements examined.
	Entries int
	// Converted is the number of records emitted.
	Converted int
	// Skipped counts entries per unsupported or missing ConnectionType
	// ("" for entries without one).
	Skipped map[string]int
	// Concealed is the number of emitted entries whose source carried an
	// encrypted password that was dropped.
	Concealed int
}

// Converter turns RDM entries into Guacamole records. It owns the set of
// names already emitted, so one Converter must be used per output batch.
type Converter struct {
	names *connection.Namer
	stats Stats
}

// NewConverter returns a Converter with an empty name set.
func NewConverter() *Converter {
	return &Converter{
		names: connection.NewNamer(),
		stats: Stats{Skipped: map[string]int{}},
	}
}

// Convert maps every supported entry in elems, in order, and skips the rest.
// It may be called repeatedly; names stay unique across calls.
func (c *Converter) Convert(elems []Element) []connection.Record {
	out := make([]connection.Record, 0, len(elems))
	for _, el := range elems {
		c.stats.Entries++

		kind := Kind(el.Text("ConnectionType", ""))
		m, ok := mappings[kind]
		if !ok {
			c.stats.Skipped[string(kind)]++
			continue
		}

		rec, concealed := m(el)
		rec.Name = c.names.Unique(rec.Name, rec.Protocol)
		if concealed {
			c.stats.Concealed++
		}
		c.stats.Converted++
		out = append(out, rec)
	}
	return out
}

// Stats returns a snapshot of the counters accumulated so far.
func (c *Converter) Stats() Stats {
	s := c.stats
	s.Skipped = make(map[string]int, len(c.stats.Skipped))
	for k, v := range c.stats.Skipped {
		s.Skipped[k] = v
	}
	return s
}

// Convert is a one-shot helper around a fresh Converter.
func Convert(elems []Element) ([]connection.Record, Stats) {
	c := NewConverter()
	recs := c.Convert(elems)
	return recs, c.Stats()
}

// section returns the type-specific child; a missing section behaves like
// an empty one so every lookup falls back to its default.
func section(el Element, name string) Element {
	if s, ok := el.Find(name); ok {
		return s
	}
	return Element{}
}

// base builds the common part of a record: name (declared or synthesized
// from label, host and port), protocol, group, hostname and port.
func base(el Element, label, protocol, host string, port int) connection.Record {
	name := el.Text("Name", "")
	if name == "" {
		name = fmt.Sprintf("%s_%s:%d", label, host, port)
	}

	rec := connection.New(name, protocol)
	if g, ok := connection.GroupFromBackslashPath(el.Text("Group", "")); ok {
		rec.SetGroup(g)
	}
	rec.Parameters["hostname"] = host
	rec.Parameters["port"] = strconv.Itoa(port)
	return rec
}

func mapSSH(el Element) (connection.Record, bool) {
	term := section(el, "Terminal")
	host := term.Text("Host", "")
	port := term.Port("HostPort", DefaultSSHPort)

	rec := base(el, "SSH", "ssh", host, port)
	rec.Parameters["username"] = term.Text("Username", "")
	command := term.Text("RemoteCommand", "")
	rec.Parameters["remote-app"] = command
	rec.Parameters["command"] = command

	return rec, term.Text("SafePassword", "") != ""
}

func mapRDP(el Element) (connection.Record, bool) {
	rdp := section(el, "RDP")
	host := rdp.Text("Host", el.Text("Url", ""))
	port := rdp.Port("Port", DefaultRDPPort)

	rec := base(el, "RDP", "rdp", host, port)
	rec.Parameters["username"] = rdp.Text("UserName", "")
	if domain := rdp.Text("Domain", ""); domain != "" {
		rec.Parameters["domain"] = domain
	}
	switch rdp.Text("ScreenSizingMode", "") {
	case "FitToWindow":
		rec.Parameters["resize-method"] = "scale"
	case "FullScreen":
		rec.Parameters["resize-method"] = "none"
	}

	return rec, rdp.Text("SafePassword", "") != ""
}

func mapVNC(el Element) (connection.Record, bool) {
	vnc := section(el, "VNC")
	host := vnc.Text("Host", "")
	port := vnc.Port("Port", DefaultVNCPort)

	rec := base(el, "VNC", "vnc", host, port)
	if user := vnc.Text("MsUser", ""); user != "" {
		rec.Parameters["username"] = user
	}

	return rec, vnc.Text("MsSafePassword", "") != ""
}
