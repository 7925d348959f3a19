// Package playready builds and parses PlayReady Objects (PRO): the binary
// record that wraps a UTF-16LE rights management header in the data field
// of a PlayReady PSSH box. It also implements the PlayReady content key
// derivation and checksum.
package playready

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"

	"github.com/orajowo/pssh/cenc"
)

const proHeaderSize = 10

// PlayReady Object record types.
const (
	RecordTypeRightsManagementHeader = 1
	RecordTypeEmbeddedLicenseStore   = 3
)

// ErrHeaderTooLarge is returned when the UTF-16 header does not fit the
// 16 bit record length.
var ErrHeaderTooLarge = errors.New("playready: header exceeds 65535 bytes")

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Data is a decoded PlayReady Object.
type Data struct {
	// Length is the declared size of the whole object.
	Length      uint32 `json:"length"`
	RecordCount uint16 `json:"recordCount"`
	RecordType  uint16 `json:"recordType"`
	// RecordSize is the byte length of the UTF-16 record.
	RecordSize int    `json:"recordSize"`
	RecordXML  string `json:"recordXml"`
}

// RecordTypeName labels the known record types.
func (d *Data) RecordTypeName() string {
	switch d.RecordType {
	case RecordTypeRightsManagementHeader:
		return "Rights Management Header"
	case RecordTypeEmbeddedLicenseStore:
		return "Embedded License Store"
	}
	return ""
}

// Header parses RecordXML.
func (d *Data) Header() (*WRMHeader, error) {
	if d.RecordType != RecordTypeRightsManagementHeader {
		return nil, fmt.Errorf("playready: record type %d is not a rights management header", d.RecordType)
	}
	return ParseXML(d.RecordXML)
}

// Encode builds the PlayReady Object for h.
func Encode(h Header) ([]byte, error) {
	text, err := BuildXML(h)
	if err != nil {
		return nil, err
	}
	return encodeRecord(text)
}

// EncodeData is Encode with base64 output, the form used for data-only PSSH.
func EncodeData(h Header) (string, error) {
	b, err := Encode(h)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func encodeRecord(text string) ([]byte, error) {
	record, err := utf16le.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("playready: encode utf-16: %w", err)
	}
	if len(record) > math.MaxUint16 {
		return nil, ErrHeaderTooLarge
	}
	total := proHeaderSize + len(record)
	b := make([]byte, proHeaderSize, total)
	binary.LittleEndian.PutUint32(b[0:], uint32(total))
	binary.LittleEndian.PutUint16(b[4:], 1)
	binary.LittleEndian.PutUint16(b[6:], RecordTypeRightsManagementHeader)
	binary.LittleEndian.PutUint16(b[8:], uint16(len(record)))
	return append(b, record...), nil
}

// Decode reads a PlayReady Object holding a single record.
func Decode(b []byte) (*Data, error) {
	if err := cenc.CheckLength("pro header", b, 0, proHeaderSize); err != nil {
		return nil, err
	}
	d := &Data{
		Length:      binary.LittleEndian.Uint32(b[0:4]),
		RecordCount: binary.LittleEndian.Uint16(b[4:6]),
		RecordType:  binary.LittleEndian.Uint16(b[6:8]),
	}
	if err := cenc.CheckLength("pro length", b, 0, uint64(d.Length)); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint16(b[8:10])
	if err := cenc.CheckLength("pro record", b, proHeaderSize, uint64(size)); err != nil {
		return nil, err
	}
	text, err := utf16le.NewDecoder().Bytes(b[proHeaderSize : proHeaderSize+int(size)])
	if err != nil {
		return nil, fmt.Errorf("playready: decode utf-16: %w", err)
	}
	d.RecordSize = int(size)
	d.RecordXML = string(text)
	return d, nil
}

// DecodeData reads a base64 PlayReady Object.
func DecodeData(data string) (*Data, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &cenc.DecodingError{Kind: "playready data", Input: data, Err: err}
	}
	return Decode(b)
}
