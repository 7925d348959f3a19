package pssh

import (
	"fmt"
	"strings"

	"github.com/orajowo/pssh/cenc"
)

// System identifies a DRM system known to the registry.
type System int

const (
	Unknown System = iota
	Widevine
	PlayReady
	Marlin
	Common
)

// unknownName is reported for system ids missing from the registry.
const unknownName = "common"

var (
	WidevineSystemID  = cenc.SystemID{0xed, 0xef, 0x8b, 0xa9, 0x79, 0xd6, 0x4a, 0xce, 0xa3, 0xc8, 0x27, 0xdc, 0xd5, 0x1d, 0x21, 0xed}
	PlayReadySystemID = cenc.SystemID{0x9a, 0x04, 0xf0, 0x79, 0x98, 0x40, 0x42, 0x86, 0xab, 0x92, 0xe6, 0x5b, 0xe0, 0x88, 0x5f, 0x95}
	MarlinSystemID    = cenc.SystemID{0x5e, 0x62, 0x9a, 0xf5, 0x38, 0xda, 0x40, 0x63, 0x89, 0x77, 0x97, 0xff, 0xbd, 0x99, 0x02, 0xd4}
	CommonSystemID    = cenc.SystemID{0x10, 0x77, 0xef, 0xec, 0xc0, 0xb2, 0x4d, 0x02, 0xac, 0xe3, 0x3c, 0x1e, 0x52, 0xe2, 0xfb, 0x4b}
)

func (s System) String() string {
	switch s {
	case Widevine:
		return "Widevine"
	case PlayReady:
		return "PlayReady"
	case Marlin:
		return "Marlin"
	case Common:
		return "Common"
	}
	return unknownName
}

// ParseSystem resolves a system by name, ignoring case.
func ParseSystem(name string) (System, error) {
	for _, s := range []System{Widevine, PlayReady, Marlin, Common} {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return Unknown, fmt.Errorf("pssh: unknown drm system %q", name)
}

type registryEntry struct {
	system System
	id     cenc.SystemID
	name   string
}

// Registry maps system ids to systems and display names.
type Registry struct {
	entries []registryEntry
}

// DefaultRegistry returns a new registry holding Widevine, PlayReady,
// Marlin and Common.
func DefaultRegistry() *Registry {
	r := &Registry{}
	r.Register(Widevine, WidevineSystemID, "")
	r.Register(PlayReady, PlayReadySystemID, "")
	r.Register(Marlin, MarlinSystemID, "")
	r.Register(Common, CommonSystemID, "")
	return r
}

// Register adds or replaces the entry for id. An empty name uses the
// system's own name.
func (r *Registry) Register(s System, id cenc.SystemID, name string) {
	if name == "" {
		name = s.String()
	}
	for i := range r.entries {
		if r.entries[i].id == id {
			r.entries[i] = registryEntry{system: s, id: id, name: name}
			return
		}
	}
	r.entries = append(r.entries, registryEntry{system: s, id: id, name: name})
}

// Lookup returns the system and display name for id. Unregistered ids
// resolve to Unknown and "common".
func (r *Registry) Lookup(id cenc.SystemID) (System, string) {
	for _, e := range r.entries {
		if e.id == id {
			return e.system, e.name
		}
	}
	return Unknown, unknownName
}

// ID returns the first system id registered for s.
func (r *Registry) ID(s System) (cenc.SystemID, bool) {
	for _, e := range r.entries {
		if e.system == s {
			return e.id, true
		}
	}
	return cenc.SystemID{}, false
}
