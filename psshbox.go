package pssh

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/orajowo/pssh/cenc"
)

const (
	boxType = "pssh"
	// size (4) + type (4) + version (2) + flags (2) + system id (16)
	boxHeaderSize = 28
	keyIDSize     = 16
)

var (
	ErrNotPsshBox         = errors.New("pssh: not a pssh box")
	ErrUnsupportedVersion = errors.New("pssh: unsupported box version")
)

// Box is a Protection System Specific Header box.
//
// The version field is written as a 2 byte little-endian value followed by
// 2 bytes of big-endian flags. For versions 0 and 1 with zero flags this is
// byte-identical to the ISO/IEC 23001-7 layout, and it is kept as is for
// compatibility with existing boxes.
type Box struct {
	Version  uint16
	Flags    uint16
	SystemID cenc.SystemID
	// KeyIDs is only written for version 1.
	KeyIDs []cenc.KeyID
	Data   []byte
}

// NewBox picks the box version for the given key ids. Widevine keeps its key
// ids in the inner header, so its boxes stay at version 0 even when key ids
// are supplied; every other system moves to version 1 once it has key ids.
func NewBox(systemID cenc.SystemID, keyIDs []cenc.KeyID, data []byte) *Box {
	b := &Box{SystemID: systemID, Data: data}
	if systemID != WidevineSystemID && len(keyIDs) > 0 {
		b.Version = 1
		b.KeyIDs = keyIDs
	}
	return b
}

// MarshalBinary encodes the box.
func (b *Box) MarshalBinary() ([]byte, error) {
	if b.Version > 1 {
		return nil, fmt.Errorf("%w %d: only versions 0 and 1 are supported", ErrUnsupportedVersion, b.Version)
	}
	size := uint64(boxHeaderSize) + 4 + uint64(len(b.Data))
	if b.Version == 1 {
		size += 4 + uint64(len(b.KeyIDs))*keyIDSize
	}
	if size > math.MaxUint32 {
		return nil, fmt.Errorf("pssh: box size %d exceeds 32 bits", size)
	}

	out := make([]byte, 0, size)
	out = binary.BigEndian.AppendUint32(out, uint32(size))
	out = append(out, boxType...)
	out = binary.LittleEndian.AppendUint16(out, b.Version)
	out = binary.BigEndian.AppendUint16(out, b.Flags)
	out = append(out, b.SystemID[:]...)
	if b.Version == 1 {
		out = binary.BigEndian.AppendUint32(out, uint32(len(b.KeyIDs)))
		for _, kid := range b.KeyIDs {
			out = append(out, kid[:]...)
		}
	}
	out = binary.BigEndian.AppendUint32(out, uint32(len(b.Data)))
	out = append(out, b.Data...)
	return out, nil
}

// Base64 encodes the box as standard base64.
func (b *Box) Base64() (string, error) {
	raw, err := b.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ParseBox decodes a box, checking every declared length against the
// buffer before reading it.
func ParseBox(pssh []byte) (*Box, error) {
	if err := cenc.CheckLength("box header", pssh, 0, boxHeaderSize+4); err != nil {
		return nil, err
	}
	if string(pssh[4:8]) != boxType {
		return nil, fmt.Errorf("%w: found type %q", ErrNotPsshBox, pssh[4:8])
	}
	size := binary.BigEndian.Uint32(pssh[0:4])
	if err := cenc.CheckLength("box", pssh, 0, uint64(size)); err != nil {
		return nil, err
	}
	if size < boxHeaderSize+4 {
		return nil, &cenc.MalformedBoxError{Field: "box size", Need: boxHeaderSize + 4, Remaining: int(size)}
	}
	pssh = pssh[:size]

	b := &Box{
		Version: binary.LittleEndian.Uint16(pssh[8:10]),
		Flags:   binary.BigEndian.Uint16(pssh[10:12]),
	}
	if b.Version > 1 {
		return nil, fmt.Errorf("%w %d: only versions 0 and 1 are supported", ErrUnsupportedVersion, b.Version)
	}
	copy(b.SystemID[:], pssh[12:28])

	off := boxHeaderSize
	if b.Version == 1 {
		if err := cenc.CheckLength("key count", pssh, off, 4); err != nil {
			return nil, err
		}
		count := binary.BigEndian.Uint32(pssh[off:])
		off += 4
		if err := cenc.CheckLength("key ids", pssh, off, uint64(count)*keyIDSize); err != nil {
			return nil, err
		}
		b.KeyIDs = make([]cenc.KeyID, count)
		for i := range b.KeyIDs {
			copy(b.KeyIDs[i][:], pssh[off:off+keyIDSize])
			off += keyIDSize
		}
	}

	if err := cenc.CheckLength("data size", pssh, off, 4); err != nil {
		return nil, err
	}
	dataSize := binary.BigEndian.Uint32(pssh[off:])
	off += 4
	if err := cenc.CheckLength("data", pssh, off, uint64(dataSize)); err != nil {
		return nil, err
	}
	b.Data = bytes.Clone(pssh[off : off+int(dataSize)])
	return b, nil
}

// ParseBase64 decodes a standard base64 box.
func ParseBase64(data string) (*Box, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &cenc.DecodingError{Kind: "pssh box", Input: data, Err: err}
	}
	return ParseBox(raw)
}
