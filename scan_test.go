package pssh

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orajowo/pssh/cenc"
	"github.com/orajowo/pssh/playready"
)

func TestMP4ParsesOurBox(t *testing.T) {
	c := newTestCodec(t)
	out, err := c.EncodePlayReady(playready.Header{
		KeyPairs: []playready.KeyPair{{KID: testKIDHex, Key: testKIDHex}},
	})
	require.NoError(t, err)
	raw := mustDecodeBase64(t, out)

	box, err := mp4.DecodeBox(0, bytes.NewReader(raw))
	require.NoError(t, err)
	pb, ok := box.(*mp4.PsshBox)
	require.True(t, ok, "got %T", box)
	assert.Equal(t, byte(1), pb.Version)
	assert.Equal(t, PlayReadySystemID[:], []byte(pb.SystemID))
	require.Len(t, pb.KIDs, 1)
	assert.Equal(t, testKID[:], []byte(pb.KIDs[0]))
	assert.Equal(t, uint64(len(raw)), pb.Size())

	b, err := ParseBox(raw)
	require.NoError(t, err)
	assert.Equal(t, b.Data, pb.Data)
}

func TestParseMP4Box(t *testing.T) {
	systemID, err := mp4.NewUUIDFromHex(mp4.UUIDWidevine)
	require.NoError(t, err)
	kid, err := mp4.NewUUIDFromHex(testKIDHex)
	require.NoError(t, err)

	pb := &mp4.PsshBox{
		Version:  1,
		SystemID: systemID,
		KIDs:     []mp4.UUID{kid},
		Data:     mustDecodeBase64(t, widevineData),
	}
	var buf bytes.Buffer
	require.NoError(t, pb.Encode(&buf))

	res, err := newTestCodec(t).DecodeBox(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(1), res.Version)
	assert.Equal(t, Widevine, res.System)
	assert.Equal(t, []cenc.KeyID{testKID}, res.KeyIDs)
	assert.Equal(t, "widevine_test", res.Widevine.Provider)
	// one key id in the box plus one in the header
	assert.Equal(t, 2, res.KeyCount)
}

func TestScanMP4(t *testing.T) {
	c := newTestCodec(t)

	wv, err := mp4.NewUUIDFromHex(mp4.UUIDWidevine)
	require.NoError(t, err)
	pr, err := mp4.NewUUIDFromHex(mp4.UUIDPlayReady)
	require.NoError(t, err)
	pro, err := playready.Encode(playready.Header{
		KeyPairs: []playready.KeyPair{{KID: testKIDHex, Key: testKIDHex}},
	})
	require.NoError(t, err)

	moov := mp4.NewMoovBox()
	moov.AddChild(&mp4.PsshBox{SystemID: wv, Data: mustDecodeBase64(t, widevineData)})
	moov.AddChild(&mp4.PsshBox{SystemID: pr, Data: pro})

	var file bytes.Buffer
	require.NoError(t, mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6"}).Encode(&file))
	require.NoError(t, moov.Encode(&file))
	file.Write(mustDecodeBase64(t, psshTest))

	results, err := c.ScanMP4(&file)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, Widevine, results[0].System)
	assert.Equal(t, "widevine_test", results[0].Widevine.Provider)
	assert.Equal(t, PlayReady, results[1].System)
	assert.NotNil(t, results[1].PlayReady)
	assert.Equal(t, "intertrust", results[2].Widevine.Provider)
}

func TestScanMP4NoPssh(t *testing.T) {
	var file bytes.Buffer
	require.NoError(t, mp4.NewFtyp("isom", 0x200, []string{"isom"}).Encode(&file))

	results, err := newTestCodec(t).ScanMP4(&file)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanMP4Truncated(t *testing.T) {
	raw := mustDecodeBase64(t, psshTest)
	_, err := newTestCodec(t).ScanMP4(bytes.NewReader(raw[:40]))
	assert.Error(t, err)
}
