// Package pssh builds and parses Protection System Specific Header boxes
// for Widevine and PlayReady, and recognises the ids of other DRM systems.
package pssh

import (
	"encoding/base64"
	"fmt"

	"github.com/orajowo/pssh/cenc"
	"github.com/orajowo/pssh/playready"
	"github.com/orajowo/pssh/widevine"
)

// Payload is a decoded inner header. At most one field is set.
type Payload struct {
	Widevine  *widevine.Data  `json:"widevine,omitempty"`
	PlayReady *playready.Data `json:"playready,omitempty"`
}

// DecodeResult is a decoded PSSH box.
type DecodeResult struct {
	SystemID   cenc.SystemID `json:"systemId"`
	System     System        `json:"-"`
	SystemName string        `json:"systemName"`
	Version    uint16        `json:"version"`
	KeyIDs     []cenc.KeyID  `json:"keyIds,omitempty"`
	Data       []byte        `json:"data,omitempty"`
	Payload
	// KeyCount adds the Widevine header's key ids to the box key ids.
	KeyCount int `json:"keyCount"`
}

// EncodeWidevine returns a base64 Widevine box around the header h.
func (c *Codec) EncodeWidevine(h widevine.Header) (string, error) {
	data, err := c.widevine.Encode(h)
	if err != nil {
		return "", err
	}
	kids, err := cenc.ParseKeyIDs(h.KeyIDs)
	if err != nil {
		return "", err
	}
	return c.EncodeBox(WidevineSystemID, kids, data)
}

// EncodePlayReady returns a base64 PlayReady box around the PlayReady
// Object for h. Every key id of h is also listed in the box.
func (c *Codec) EncodePlayReady(h playready.Header) (string, error) {
	data, err := playready.Encode(h)
	if err != nil {
		return "", err
	}
	kids := make([]cenc.KeyID, 0, len(h.KeyPairs))
	for _, p := range h.KeyPairs {
		kid, err := cenc.ParseKeyID(p.KID)
		if err != nil {
			return "", err
		}
		kids = append(kids, kid)
	}
	return c.EncodeBox(PlayReadySystemID, kids, data)
}

// EncodeBox wraps inner data of any system.
func (c *Codec) EncodeBox(systemID cenc.SystemID, keyIDs []cenc.KeyID, data []byte) (string, error) {
	b := NewBox(systemID, keyIDs, data)
	out, err := b.Base64()
	if err != nil {
		return "", err
	}
	_, name := c.registry.Lookup(systemID)
	c.log.Debug("encoded pssh box", "system", name, "version", b.Version, "keys", len(b.KeyIDs), "data", len(data))
	return out, nil
}

// Decode parses a base64 box.
func (c *Codec) Decode(data string) (*DecodeResult, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &cenc.DecodingError{Kind: "pssh box", Input: data, Err: err}
	}
	return c.DecodeBox(raw)
}

// DecodeBox parses a box and, for Widevine and PlayReady, its inner header.
// Inner data of other systems is returned as is.
func (c *Codec) DecodeBox(raw []byte) (*DecodeResult, error) {
	b, err := ParseBox(raw)
	if err != nil {
		return nil, err
	}
	system, name := c.registry.Lookup(b.SystemID)
	r := &DecodeResult{
		SystemID:   b.SystemID,
		System:     system,
		SystemName: name,
		Version:    b.Version,
		KeyIDs:     b.KeyIDs,
		Data:       b.Data,
		KeyCount:   len(b.KeyIDs),
	}
	if len(b.Data) > 0 && (system == Widevine || system == PlayReady) {
		if r.Payload, err = c.decodePayload(system, b.Data); err != nil {
			return nil, err
		}
	}
	r.KeyCount += r.Widevine.KeyCount()
	c.log.Debug("decoded pssh box", "system", name, "version", r.Version, "keys", r.KeyCount, "data", len(r.Data))
	return r, nil
}

// DecodeData parses base64 inner data of system s without a box around it.
func (c *Codec) DecodeData(s System, data string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Payload{}, &cenc.DecodingError{Kind: "pssh data", Input: data, Err: err}
	}
	return c.decodePayload(s, raw)
}

func (c *Codec) decodePayload(s System, raw []byte) (Payload, error) {
	switch s {
	case Widevine:
		d, err := c.widevine.Decode(raw)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Widevine: d}, nil
	case PlayReady:
		d, err := playready.Decode(raw)
		if err != nil {
			return Payload{}, err
		}
		return Payload{PlayReady: d}, nil
	}
	return Payload{}, fmt.Errorf("pssh: no data codec for %s", s)
}
