package playready

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/orajowo/pssh/cenc"
)

const (
	keySize  = 16
	seedSize = 30
)

// ErrMissingKey is returned when a checksum is requested for a key id that
// has neither a content key nor a key seed. The key id is never reused as
// the content key.
var ErrMissingKey = errors.New("playready: no content key or key seed")

// ContentKey is a key id, its content key and checksum as they appear in a
// PlayReady header. KID and Key are base64 in GUID byte order.
type ContentKey struct {
	KID      string `json:"kid" yaml:"kid"`
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// SwapEndian converts between standard and Microsoft GUID byte order. It
// reverses the first three groups (4, 2 and 2 bytes) and keeps the last
// eight bytes; applying it twice returns the input.
func SwapEndian(id [16]byte) [16]byte {
	var out [16]byte
	out[0], out[1], out[2], out[3] = id[3], id[2], id[1], id[0]
	out[4], out[5] = id[5], id[4]
	out[6], out[7] = id[7], id[6]
	copy(out[8:], id[8:])
	return out
}

// DeriveFromSeed derives the content key for kid from a base64 key seed
// using the PlayReady key generation algorithm. Seeds longer than 30 bytes
// are truncated and shorter ones are zero padded.
func DeriveFromSeed(kid cenc.KeyID, keySeed string) (ContentKey, error) {
	raw, err := base64.StdEncoding.DecodeString(keySeed)
	if err != nil {
		return ContentKey{}, &cenc.DecodingError{Kind: "key seed", Input: keySeed, Err: err}
	}
	guid := SwapEndian(kid)
	key := deriveKey(raw, guid)
	return newContentKey(guid, key)
}

func deriveKey(seed []byte, guid [16]byte) [keySize]byte {
	var s [seedSize]byte
	copy(s[:], seed)

	a := sha256.New()
	a.Write(s[:])
	a.Write(guid[:])
	digestA := a.Sum(nil)

	b := sha256.New()
	b.Write(s[:])
	b.Write(guid[:])
	b.Write(s[:])
	digestB := b.Sum(nil)

	c := sha256.New()
	c.Write(s[:])
	c.Write(guid[:])
	c.Write(s[:])
	c.Write(guid[:])
	digestC := c.Sum(nil)

	var key [keySize]byte
	for i := range key {
		key[i] = digestA[i] ^ digestA[i+keySize] ^
			digestB[i] ^ digestB[i+keySize] ^
			digestC[i] ^ digestC[i+keySize]
	}
	return key
}

// EncodeExplicit encodes a known content key for kid.
func EncodeExplicit(kid cenc.KeyID, key [16]byte) (ContentKey, error) {
	return newContentKey(SwapEndian(kid), key)
}

func newContentKey(guid, key [16]byte) (ContentKey, error) {
	sum, err := checksum(key, guid)
	if err != nil {
		return ContentKey{}, err
	}
	swapped := SwapEndian(key)
	return ContentKey{
		KID:      base64.StdEncoding.EncodeToString(guid[:]),
		Key:      base64.StdEncoding.EncodeToString(swapped[:]),
		Checksum: sum,
	}, nil
}

// checksum is the first 8 bytes of the GUID ordered key id encrypted with
// the content key in AES-128 ECB mode.
func checksum(key, guid [16]byte) (string, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", fmt.Errorf("playready: checksum cipher: %w", err)
	}
	var out [aes.BlockSize]byte
	block.Encrypt(out[:], guid[:])
	return base64.StdEncoding.EncodeToString(out[:8]), nil
}

// EncodeKey encodes a hex key id with either a hex content key or a base64
// key seed. A non-empty keySeed takes precedence over key.
func EncodeKey(kid, key, keySeed string) (ContentKey, error) {
	id, err := cenc.ParseKeyID(kid)
	if err != nil {
		return ContentKey{}, err
	}
	if keySeed != "" {
		return DeriveFromSeed(id, keySeed)
	}
	if key == "" {
		return ContentKey{}, fmt.Errorf("%w for key id %s", ErrMissingKey, id)
	}
	raw, err := parseKey(key)
	if err != nil {
		return ContentKey{}, err
	}
	return EncodeExplicit(id, raw)
}

func parseKey(key string) ([16]byte, error) {
	var out [16]byte
	b, err := hex.DecodeString(key)
	if err != nil {
		return out, &cenc.DecodingError{Kind: "content key", Input: key, Err: err}
	}
	if len(b) != keySize {
		return out, &cenc.DecodingError{Kind: "content key", Input: key,
			Err: fmt.Errorf("want %d bytes, got %d", keySize, len(b))}
	}
	copy(out[:], b)
	return out, nil
}

// DecodeKey turns a base64 GUID ordered key (or key id) back into standard
// order hex.
func DecodeKey(data string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", &cenc.DecodingError{Kind: "playready key", Input: data, Err: err}
	}
	if len(b) != keySize {
		return "", &cenc.DecodingError{Kind: "playready key", Input: data,
			Err: fmt.Errorf("want %d bytes, got %d", keySize, len(b))}
	}
	swapped := SwapEndian([16]byte(b))
	return hex.EncodeToString(swapped[:]), nil
}
