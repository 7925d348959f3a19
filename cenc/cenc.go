// Package cenc holds the identifier types and error values shared by the
// PSSH box codec and the DRM specific header codecs.
//
// Identifiers are kept in standard (big-endian) byte order. The PlayReady
// GUID order is a presentation concern of package playready and never leaks
// into these types.
package cenc

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// KeyID is a 16 byte content key identifier.
type KeyID [16]byte

// SystemID is a 16 byte DRM system identifier.
type SystemID [16]byte

// ParseKeyID accepts 32 hex digits or the hyphenated GUID form, in any case.
func ParseKeyID(s string) (KeyID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return KeyID{}, &DecodingError{Kind: "key id", Input: s, Err: err}
	}
	return KeyID(u), nil
}

// ParseKeyIDs parses every entry of ids, stopping at the first failure.
func ParseKeyIDs(ids []string) ([]KeyID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]KeyID, 0, len(ids))
	for _, s := range ids {
		kid, err := ParseKeyID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, kid)
	}
	return out, nil
}

// KeyIDFromBytes copies a raw 16 byte identifier.
func KeyIDFromBytes(b []byte) (KeyID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return KeyID{}, &DecodingError{Kind: "key id", Input: hex.EncodeToString(b), Err: err}
	}
	return KeyID(u), nil
}

func (k KeyID) String() string { return hex.EncodeToString(k[:]) }

// GUID renders the id in 8-4-4-4-12 groups.
func (k KeyID) GUID() string { return uuid.UUID(k).String() }

func (k KeyID) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *KeyID) UnmarshalText(text []byte) error {
	kid, err := ParseKeyID(string(text))
	if err != nil {
		return err
	}
	*k = kid
	return nil
}

// ParseSystemID accepts the same forms as ParseKeyID.
func ParseSystemID(s string) (SystemID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return SystemID{}, &DecodingError{Kind: "system id", Input: s, Err: err}
	}
	return SystemID(u), nil
}

func (s SystemID) String() string { return hex.EncodeToString(s[:]) }

func (s SystemID) GUID() string { return uuid.UUID(s).String() }

func (s SystemID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FormatGUID groups a hex string as 8-4-4-4-12. Input of any length is
// accepted; short input yields short or empty groups.
func FormatGUID(h string) string {
	cuts := [...]int{0, 8, 12, 16, 20, 32}
	groups := make([]string, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		from, to := min(cuts[i], len(h)), min(cuts[i+1], len(h))
		groups = append(groups, h[from:to])
	}
	return strings.Join(groups, "-")
}
