package pssh

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/orajowo/pssh/cenc"
)

// Report renders the box as indented text, one field per line, followed by
// a blank line.
func (r *DecodeResult) Report() string {
	lines := []string{
		fmt.Sprintf("PSSH Box v%d", r.Version),
		fmt.Sprintf("  System ID: %s %s", r.SystemName, r.SystemID.GUID()),
	}
	if len(r.KeyIDs) > 0 {
		lines = append(lines, fmt.Sprintf("  Key IDs (%d):", len(r.KeyIDs)))
		for _, kid := range r.KeyIDs {
			lines = append(lines, "    "+kid.GUID())
		}
	}

	lines = append(lines, fmt.Sprintf("  PSSH Data (size: %d):", len(r.Data)))
	if len(r.Data) > 0 {
		lines = append(lines, fmt.Sprintf("    %s Data:", r.SystemName))
		if r.System == Widevine && r.Widevine != nil {
			lines = append(lines, widevineLines(r)...)
		}
		if r.System == PlayReady && r.PlayReady != nil {
			lines = append(lines, playReadyLines(r)...)
		}
	}

	lines = append(lines, "\n")
	return strings.Join(lines, "\n")
}

func widevineLines(r *DecodeResult) []string {
	d := r.Widevine
	var lines []string
	if len(d.KeyIDs) > 0 {
		lines = append(lines, fmt.Sprintf("      Key IDs (%d)", len(d.KeyIDs)))
		for _, kid := range d.KeyIDs {
			lines = append(lines, "        "+cenc.FormatGUID(kid))
		}
	}
	if d.Provider != "" {
		lines = append(lines, "      Provider: "+d.Provider)
	}
	if d.ContentID != "" {
		// ContentID is hex of bytes read off the wire, so it always decodes.
		raw, _ := hex.DecodeString(d.ContentID)
		lines = append(lines,
			"      Content ID",
			"        - UTF-8: "+validUTF8(raw),
			"        - HEX  : "+d.ContentID,
		)
	}
	return lines
}

func playReadyLines(r *DecodeResult) []string {
	d := r.PlayReady
	lines := []string{fmt.Sprintf("      Record size(%d)", d.RecordSize)}
	if name := d.RecordTypeName(); name != "" {
		lines = append(lines, fmt.Sprintf("        Record Type: %s (%d)", name, d.RecordType))
	}
	if d.RecordXML != "" {
		lines = append(lines, "        Record XML:", "          "+d.RecordXML)
	}
	return lines
}

// validUTF8 replaces every invalid byte with U+FFFD.
func validUTF8(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
