package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orajowo/pssh/cenc"
	"github.com/orajowo/pssh/playready"
)

const (
	psshTest     = "AAAAQXBzc2gAAAAA7e+LqXnWSs6jyCfc1R0h7QAAACESEJjp6TNjifjKjuoDBeg+VrUaCmludGVydHJ1c3QiASo="
	widevineData = "CAESEAEjRWeJq83vASNFZ4mrze8aDXdpZGV2aW5lX3Rlc3QiD2NlbmMtY29udGVudC1pZA=="
	testKID      = "0123456789abcdef0123456789abcdef"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func mustBase64(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return b
}

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encode.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestRunDecode(t *testing.T) {
	out, err := runCLI(t, "decode", psshTest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "PSSH Box v0\n  System ID: Widevine edef8ba9-79d6-4ace-a3c8-27dcd51d21ed\n"))
	assert.True(t, strings.HasSuffix(out, "        - HEX  : 2A\n\n"))
}

func TestRunDecodeJSON(t *testing.T) {
	out, err := runCLI(t, "-v", "decode", "-json", psshTest)
	require.NoError(t, err)
	assert.Contains(t, out, `"systemName": "Widevine"`)
	assert.Contains(t, out, `"provider": "intertrust"`)
	assert.Contains(t, out, `"keyCount": 1`)
}

func TestRunEncodeWidevine(t *testing.T) {
	out, err := runCLI(t, "encode", "-system", "widevine", "-kid", testKID,
		"-provider", "widevine_test", "-content-id", "cenc-content-id", "-data-only")
	require.NoError(t, err)
	assert.Equal(t, widevineData+"\n", out)

	box, err := runCLI(t, "encode", "-system", "widevine", "-kid", testKID,
		"-provider", "widevine_test", "-content-id", "cenc-content-id")
	require.NoError(t, err)
	report, err := runCLI(t, "decode", strings.TrimSpace(box))
	require.NoError(t, err)
	assert.Contains(t, report, "      Provider: widevine_test\n")
	assert.Contains(t, report, "        - UTF-8: cenc-content-id\n")
}

func TestRunEncodePlayReady(t *testing.T) {
	out, err := runCLI(t, "encode", "-system", "playready", "-kid", testKID, "-key", testKID,
		"-la-url", "https://pr.example.com/rightsmanager.asmx")
	require.NoError(t, err)

	report, err := runCLI(t, "decode", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Contains(t, report, "PSSH Box v1\n")
	assert.Contains(t, report, "  Key IDs (1):\n    01234567-89ab-cdef-0123-456789abcdef\n")
	assert.Contains(t, report, `CHECKSUM="0x91WFtGXBI="`)
	assert.Contains(t, report, "?cfg=(kid:Z0UjAauJ780BI0VniavN7w==)")
}

func TestRunEncodeConfig(t *testing.T) {
	path := writeConfig(t, `
system: playready
keyPairs:
  - kid: 0123456789abcdef0123456789abcdef
    key: 0123456789abcdef0123456789abcdef
licenseUrl: https://pr.example.com/rightsmanager.asmx
checksum: false
dataOnly: true
`)
	out, err := runCLI(t, "encode", "-config", path)
	require.NoError(t, err)
	d, err := playready.DecodeData(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.NotContains(t, d.RecordXML, "CHECKSUM")
	assert.Contains(t, d.RecordXML, `version="4.2.0.0"`)

	// flags win over the file
	out, err = runCLI(t, "encode", "-config", path, "-compat", "-checksum")
	require.NoError(t, err)
	d, err = playready.DecodeData(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Contains(t, d.RecordXML, `version="4.0.0.0"`)
	assert.Contains(t, d.RecordXML, "<CHECKSUM>0x91WFtGXBI=</CHECKSUM>")
}

func TestRunEncodeErrors(t *testing.T) {
	_, err := runCLI(t, "encode", "-system", "marlin", "-kid", testKID)
	assert.ErrorContains(t, err, "encode supports widevine and playready")

	_, err = runCLI(t, "encode", "-system", "fairplay")
	assert.Error(t, err)

	_, err = runCLI(t, "encode", "-system", "playready", "-kid", testKID)
	assert.ErrorIs(t, err, playready.ErrMissingKey)
}

func TestRunData(t *testing.T) {
	out, err := runCLI(t, "data", "-system", "widevine", widevineData)
	require.NoError(t, err)
	assert.Contains(t, out, `"provider": "widevine_test"`)
	assert.Contains(t, out, `"keyId": [`)

	out, err = runCLI(t, "data", "-system", "widevine", "-proto", widevineData)
	require.NoError(t, err)
	assert.Contains(t, out, "widevine_test")
	assert.Contains(t, out, "AESCTR")

	_, err = runCLI(t, "data", "-system", "widevine", "-proto", "not base64!")
	var decErr *cenc.DecodingError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "widevine data", decErr.Kind)
}

func TestRunKey(t *testing.T) {
	out, err := runCLI(t, "key", "encode", "-kid", "6f651ae1dbe44434bcb4690d1564c41c", "-key", "2a85da88fae41e2e36aeb2d5c94997b1")
	require.NoError(t, err)
	assert.Contains(t, out, `"kid": "4Rplb+TbNES8tGkNFWTEHA=="`)
	assert.Contains(t, out, `"key": "iNqFKuT6Lh42rrLVyUmXsQ=="`)
	assert.Contains(t, out, `"checksum": "f8Acn4I4wU0="`)

	out, err = runCLI(t, "key", "decode", "Z0UjAauJ780BI0VniavN7w==")
	require.NoError(t, err)
	assert.Equal(t, testKID+"\n", out)
}

func TestRunScan(t *testing.T) {
	raw := append(mustBase64(t, psshTest), mustBase64(t, psshTest)...)
	path := filepath.Join(t.TempDir(), "init.mp4")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	out, err := runCLI(t, "scan", path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "PSSH Box v0\n"))
}

func TestRunUsage(t *testing.T) {
	_, err := runCLI(t)
	assert.Equal(t, errUsage, err)

	_, err = runCLI(t, "frobnicate")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "decode")
	assert.ErrorIs(t, err, errUsage)
}

func TestLoadConfigUnknownField(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "system: widevine\nkid: abc\n"))
	assert.Error(t, err)
}

func TestConfigKeyPairs(t *testing.T) {
	cfg := encodeConfig{KeyIDs: []string{"a", "b"}, Keys: []string{"k"}}
	assert.Equal(t, []playready.KeyPair{{KID: "a", Key: "k"}, {KID: "b"}}, cfg.keyPairs())
	assert.Equal(t, []string{"a", "b"}, cfg.widevineHeader().KeyIDs)

	cfg = encodeConfig{KeyPairs: []playready.KeyPair{{KID: "c"}}}
	assert.Equal(t, []string{"c"}, cfg.keyIDs())
	assert.False(t, cfg.playReadyHeader().OmitChecksum)
}
