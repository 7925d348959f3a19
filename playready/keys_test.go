package playready

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orajowo/pssh/cenc"
)

const (
	testKID = "6f651ae1dbe44434bcb4690d1564c41c"
	testKey = "2a85da88fae41e2e36aeb2d5c94997b1"

	testKeySeed = "XVBovsmzhP9gRIZxWfFta3VVRPzVEWmJsazEJ46I"
	// content key derived from testKeySeed for testKID
	testSeedKey = "88da852ae4fa2e1e36aeb2d5c94997b1"

	proKID          = "4Rplb+TbNES8tGkNFWTEHA=="
	proContentKey   = "iNqFKuT6Lh42rrLVyUmXsQ=="
	proSeedKey      = "KoXaiPrkHi42rrLVyUmXsQ=="
	proChecksum     = "f8Acn4I4wU0="
	proSeedChecksum = "KLj3QzQP/NA="
)

func TestSwapEndian(t *testing.T) {
	id, err := cenc.ParseKeyID("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	swapped := SwapEndian(id)
	assert.Equal(t, "67452301ab89efcd0123456789abcdef", cenc.KeyID(swapped).String())
	assert.Equal(t, [16]byte(id), SwapEndian(swapped))
}

func TestSwapEndianInvolution(t *testing.T) {
	inputs := [][16]byte{
		{},
		{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f},
		{0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x99, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, 0x00},
	}
	for i := 0; i < 256; i++ {
		var x [16]byte
		for j := range x {
			x[j] = byte(i*31 + j*7)
		}
		inputs = append(inputs, x)
	}
	for _, x := range inputs {
		assert.Equal(t, x, SwapEndian(SwapEndian(x)))
	}
}

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		name     string
		kid      string
		key      string
		wantKID  string
		wantKey  string
		checksum string
	}{
		{
			name:     "explicit key",
			kid:      testKID,
			key:      testKey,
			wantKID:  proKID,
			wantKey:  proContentKey,
			checksum: proChecksum,
		},
		{
			name:     "key equal to key id",
			kid:      "0123456789abcdef0123456789abcdef",
			key:      "0123456789abcdef0123456789abcdef",
			wantKID:  "Z0UjAauJ780BI0VniavN7w==",
			wantKey:  "Z0UjAauJ780BI0VniavN7w==",
			checksum: "0x91WFtGXBI=",
		},
		{
			name:     "upper case guid input",
			kid:      "6F651AE1-DBE4-4434-BCB4-690D1564C41C",
			key:      "2A85DA88FAE41E2E36AEB2D5C94997B1",
			wantKID:  proKID,
			wantKey:  proContentKey,
			checksum: proChecksum,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ck, err := EncodeKey(tt.kid, tt.key, "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantKID, ck.KID)
			assert.Equal(t, tt.wantKey, ck.Key)
			assert.Equal(t, tt.checksum, ck.Checksum)
		})
	}
}

func TestEncodeKeyFromSeed(t *testing.T) {
	seeded, err := EncodeKey(testKID, "", testKeySeed)
	require.NoError(t, err)
	control, err := EncodeKey(testKID, testSeedKey, "")
	require.NoError(t, err)

	assert.Equal(t, proKID, seeded.KID)
	assert.Equal(t, proSeedKey, seeded.Key)
	assert.Equal(t, proSeedChecksum, seeded.Checksum)
	assert.Equal(t, control.Key, seeded.Key)
	assert.Equal(t, control.Checksum, seeded.Checksum)

	// the seed wins over an explicit key
	withKey, err := EncodeKey(testKID, testKey, testKeySeed)
	require.NoError(t, err)
	assert.Equal(t, seeded, withKey)
}

func TestDeriveFromSeedPadding(t *testing.T) {
	kid, err := cenc.ParseKeyID(testKID)
	require.NoError(t, err)

	// 30 byte seed plus trailing bytes that must be ignored
	long, err := DeriveFromSeed(kid, "XVBovsmzhP9gRIZxWfFta3VVRPzVEWmJsazEJ46IAAECAwQF")
	require.NoError(t, err)
	assert.Equal(t, proSeedKey, long.Key)

	// short seeds are zero padded, so explicit zero bytes give the same key
	short, err := DeriveFromSeed(kid, "AQID")
	require.NoError(t, err)
	padded, err := DeriveFromSeed(kid, "AQIDAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, short, padded)
	assert.NotEqual(t, proSeedKey, short.Key)
}

func TestEncodeKeyFail(t *testing.T) {
	tests := []struct {
		name string
		kid  string
		key  string
		seed string
		kind string
	}{
		{name: "bad kid", kid: "xyz", key: testKey, kind: "key id"},
		{name: "bad key hex", kid: testKID, key: "zz85da88fae41e2e36aeb2d5c94997b1", kind: "content key"},
		{name: "short key", kid: testKID, key: "2a85da88", kind: "content key"},
		{name: "bad seed", kid: testKID, seed: "not base64!", kind: "key seed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeKey(tt.kid, tt.key, tt.seed)
			var decErr *cenc.DecodingError
			require.True(t, errors.As(err, &decErr), "got %v", err)
			assert.Equal(t, tt.kind, decErr.Kind)
		})
	}

	_, err := EncodeKey(testKID, "", "")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestDecodeKey(t *testing.T) {
	key, err := DecodeKey(proContentKey)
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	key, err = DecodeKey(proSeedKey)
	require.NoError(t, err)
	assert.Equal(t, testSeedKey, key)

	kid, err := DecodeKey(proKID)
	require.NoError(t, err)
	assert.Equal(t, testKID, kid)

	_, err = DecodeKey("@@@")
	assert.Error(t, err)
	_, err = DecodeKey("AQID")
	var decErr *cenc.DecodingError
	assert.True(t, errors.As(err, &decErr))
}
