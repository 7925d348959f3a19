// Package widevine encodes and decodes the Widevine CENC header carried in
// the data field of a Widevine PSSH box.
package widevine

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/orajowo/pssh/cenc"
)

// Algorithm names a value of the header's Algorithm enum.
type Algorithm string

const (
	Unencrypted Algorithm = "UNENCRYPTED"
	AESCTR      Algorithm = "AESCTR"
)

// Header is the input to Encode. Empty fields are left out of the message;
// an empty Algorithm means AESCTR.
type Header struct {
	Algorithm Algorithm
	// KeyIDs are hex (or GUID) key ids, written as raw bytes.
	KeyIDs []string
	// ContentID is written as the bytes of the string, not hex decoded.
	ContentID string
	TrackType string
	Provider  string
	// ProtectionScheme is a four character code such as "cenc" or "cbcs".
	ProtectionScheme string
}

// Data is a decoded header. Only fields present on the wire are set.
type Data struct {
	Algorithm        string   `json:"algorithm,omitempty"`
	KeyIDs           []string `json:"keyId,omitempty"`
	Provider         string   `json:"provider,omitempty"`
	ContentID        string   `json:"contentId,omitempty"`
	TrackType        string   `json:"trackType,omitempty"`
	ProtectionScheme string   `json:"protectionScheme,omitempty"`
}

// KeyCount is the number of key ids in the header.
func (d *Data) KeyCount() int {
	if d == nil {
		return 0
	}
	return len(d.KeyIDs)
}

// Codec turns Header values into wire bytes and back using a loaded Schema.
// A Codec holds no mutable state.
type Codec struct {
	schema *Schema
}

func NewCodec(schema *Schema) *Codec {
	return &Codec{schema: schema}
}

// Encode validates h against the schema and returns the serialized header.
func (c *Codec) Encode(h Header) ([]byte, error) {
	msg, err := c.message(h)
	if err != nil {
		return nil, err
	}
	if err := c.schema.validate(msg); err != nil {
		return nil, err
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("widevine: encode header: %w", err)
	}
	return b, nil
}

// EncodeData is Encode with base64 output, the form used for data-only PSSH.
func (c *Codec) EncodeData(h Header) (string, error) {
	b, err := c.Encode(h)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (c *Codec) message(h Header) (*dynamicpb.Message, error) {
	s := c.schema
	msg := dynamicpb.NewMessage(s.desc)

	algorithm := h.Algorithm
	if algorithm == "" {
		algorithm = AESCTR
	}
	ev := s.algorithm.Enum().Values().ByName(protoreflect.Name(algorithm))
	if ev == nil {
		return nil, &SchemaValidationError{Field: s.algorithm.JSONName(), Msg: fmt.Sprintf("enum value expected, got %q", algorithm)}
	}
	msg.Set(s.algorithm, protoreflect.ValueOfEnum(ev.Number()))

	if len(h.KeyIDs) > 0 {
		list := msg.Mutable(s.keyID).List()
		for _, k := range h.KeyIDs {
			kid, err := cenc.ParseKeyID(k)
			if err != nil {
				return nil, err
			}
			list.Append(protoreflect.ValueOfBytes(kid[:]))
		}
	}
	if h.ContentID != "" {
		msg.Set(s.contentID, protoreflect.ValueOfBytes([]byte(h.ContentID)))
	}
	if h.TrackType != "" {
		msg.Set(s.trackType, protoreflect.ValueOfString(h.TrackType))
	}
	if h.Provider != "" {
		msg.Set(s.provider, protoreflect.ValueOfString(h.Provider))
	}
	if h.ProtectionScheme != "" {
		if len(h.ProtectionScheme) != 4 {
			return nil, &SchemaValidationError{
				Field: s.protectionScheme.JSONName(),
				Msg:   fmt.Sprintf("four character code expected, got %q", h.ProtectionScheme),
			}
		}
		scheme := int32(binary.BigEndian.Uint32([]byte(h.ProtectionScheme)))
		msg.Set(s.protectionScheme, protoreflect.ValueOfInt32(scheme))
	}
	return msg, nil
}

func (c *Codec) unmarshal(b []byte) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(c.schema.desc)
	if err := proto.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("widevine: decode header: %w", err)
	}
	return msg, nil
}

// Decode parses a serialized header.
func (c *Codec) Decode(b []byte) (*Data, error) {
	msg, err := c.unmarshal(b)
	if err != nil {
		return nil, err
	}
	s := c.schema
	d := &Data{}

	if msg.Has(s.algorithm) {
		n := msg.Get(s.algorithm).Enum()
		if ev := s.algorithm.Enum().Values().ByNumber(n); ev != nil {
			d.Algorithm = string(ev.Name())
		} else {
			d.Algorithm = fmt.Sprint(n)
		}
	}
	if msg.Has(s.keyID) {
		list := msg.Get(s.keyID).List()
		d.KeyIDs = make([]string, 0, list.Len())
		for i := 0; i < list.Len(); i++ {
			d.KeyIDs = append(d.KeyIDs, hex.EncodeToString(list.Get(i).Bytes()))
		}
	}
	if msg.Has(s.provider) {
		d.Provider = msg.Get(s.provider).String()
	}
	if msg.Has(s.contentID) {
		d.ContentID = strings.ToUpper(hex.EncodeToString(msg.Get(s.contentID).Bytes()))
	}
	if msg.Has(s.trackType) {
		d.TrackType = msg.Get(s.trackType).String()
	}
	if msg.Has(s.protectionScheme) {
		var fourcc [4]byte
		binary.BigEndian.PutUint32(fourcc[:], uint32(msg.Get(s.protectionScheme).Int()))
		d.ProtectionScheme = string(fourcc[:])
	}
	return d, nil
}

// DecodeData parses a base64 header, the data-only counterpart of Decode.
func (c *Codec) DecodeData(data string) (*Data, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &cenc.DecodingError{Kind: "widevine data", Input: data, Err: err}
	}
	return c.Decode(b)
}

// DecodeJSON renders a serialized header with protobuf JSON mapping.
func (c *Codec) DecodeJSON(b []byte) ([]byte, error) {
	msg, err := c.unmarshal(b)
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
}
