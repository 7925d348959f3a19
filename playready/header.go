package playready

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/orajowo/pssh/cenc"
)

const (
	wrmNamespace  = "http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader"
	xmlDecl       = `<?xml version="1.0" encoding="UTF-8"?>`
	iisDRMVersion = "8.0.1906.32"
	algAESCTR     = "AESCTR"

	// Version40 is the legacy header written in compatibility mode.
	Version40 = "4.0.0.0"
	Version42 = "4.2.0.0"
)

// ErrNoKeyPairs is returned when a header has no key pairs to describe.
var ErrNoKeyPairs = errors.New("playready: header needs at least one key pair")

// KeyPair is a hex key id with an optional hex content key.
type KeyPair struct {
	KID string `json:"kid" yaml:"kid"`
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// Header is the input for building a PlayReady rights management header.
type Header struct {
	KeyPairs   []KeyPair
	LicenseURL string
	// KeySeed, when set, derives every content key instead of using
	// KeyPair.Key.
	KeySeed string
	// CompatibilityMode writes a 4.0.0.0 header holding only the first key.
	CompatibilityMode bool
	// OmitChecksum leaves the key checksums out of the header.
	OmitChecksum bool
}

type customAttributes struct {
	IISDRMVersion string `xml:"IIS_DRM_VERSION"`
}

type wrmHeader40 struct {
	XMLName xml.Name  `xml:"WRMHEADER"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Data    wrmData40 `xml:"DATA"`
}

type wrmData40 struct {
	ProtectInfo      wrmProtectInfo40 `xml:"PROTECTINFO"`
	KID              string           `xml:"KID"`
	Checksum         string           `xml:"CHECKSUM,omitempty"`
	LicenseURL       string           `xml:"LA_URL,omitempty"`
	CustomAttributes customAttributes `xml:"CUSTOMATTRIBUTES"`
}

type wrmProtectInfo40 struct {
	KeyLen int    `xml:"KEYLEN"`
	AlgID  string `xml:"ALGID"`
}

type wrmHeader42 struct {
	XMLName xml.Name  `xml:"WRMHEADER"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Data    wrmData42 `xml:"DATA"`
}

type wrmData42 struct {
	ProtectInfo      wrmProtectInfo42 `xml:"PROTECTINFO"`
	LicenseURL       string           `xml:"LA_URL,omitempty"`
	CustomAttributes customAttributes `xml:"CUSTOMATTRIBUTES"`
}

type wrmProtectInfo42 struct {
	KIDs wrmKIDs `xml:"KIDS"`
}

type wrmKIDs struct {
	KID []wrmKID `xml:"KID"`
}

type wrmKID struct {
	AlgID    string `xml:"ALGID,attr"`
	Checksum string `xml:"CHECKSUM,attr,omitempty"`
	Value    string `xml:"VALUE,attr"`
}

// ContentKeys resolves the content key of every key pair in h.
func ContentKeys(h Header) ([]ContentKey, error) {
	keys := make([]ContentKey, 0, len(h.KeyPairs))
	for _, p := range h.KeyPairs {
		k, err := contentKey(p, h.KeySeed, !h.OmitChecksum)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// contentKey prefers the seed, then the explicit key. Without either only
// the key id can be written, which is fine as long as no checksum is needed.
func contentKey(p KeyPair, keySeed string, needChecksum bool) (ContentKey, error) {
	if keySeed != "" || p.Key != "" || needChecksum {
		return EncodeKey(p.KID, p.Key, keySeed)
	}
	kid, err := cenc.ParseKeyID(p.KID)
	if err != nil {
		return ContentKey{}, err
	}
	guid := SwapEndian(kid)
	return ContentKey{KID: base64.StdEncoding.EncodeToString(guid[:])}, nil
}

// BuildXML returns the WRMHEADER document for h.
func BuildXML(h Header) (string, error) {
	if len(h.KeyPairs) == 0 {
		return "", ErrNoKeyPairs
	}
	if h.CompatibilityMode {
		h.KeyPairs = h.KeyPairs[:1]
	}
	keys, err := ContentKeys(h)
	if err != nil {
		return "", err
	}
	if h.OmitChecksum {
		for i := range keys {
			keys[i].Checksum = ""
		}
	}

	var doc any
	prefix := ""
	if h.CompatibilityMode {
		doc = wrmHeader40{
			XMLNS:   wrmNamespace,
			Version: Version40,
			Data: wrmData40{
				ProtectInfo:      wrmProtectInfo40{KeyLen: keySize, AlgID: algAESCTR},
				KID:              keys[0].KID,
				Checksum:         keys[0].Checksum,
				LicenseURL:       h.LicenseURL,
				CustomAttributes: customAttributes{IISDRMVersion: iisDRMVersion},
			},
		}
	} else {
		kids := make([]wrmKID, 0, len(keys))
		for _, k := range keys {
			kids = append(kids, wrmKID{AlgID: algAESCTR, Checksum: k.Checksum, Value: k.KID})
		}
		doc = wrmHeader42{
			XMLNS:   wrmNamespace,
			Version: Version42,
			Data: wrmData42{
				ProtectInfo:      wrmProtectInfo42{KIDs: wrmKIDs{KID: kids}},
				LicenseURL:       licenseURL42(h.LicenseURL, keys),
				CustomAttributes: customAttributes{IISDRMVersion: iisDRMVersion},
			},
		}
		prefix = xmlDecl
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("playready: marshal header: %w", err)
	}
	return prefix + string(out), nil
}

// licenseURL42 appends the key ids as a cfg query, e.g.
// https://host/rightsmanager.asmx?cfg=(kid:AAA=),(kid:BBB=)
func licenseURL42(base string, keys []ContentKey) string {
	if base == "" {
		return ""
	}
	cfg := make([]string, 0, len(keys))
	for _, k := range keys {
		cfg = append(cfg, "(kid:"+k.KID+")")
	}
	return base + "?cfg=" + strings.Join(cfg, ",")
}

// WRMHeader is the parsed view of a rights management header of any
// version.
type WRMHeader struct {
	Version       string   `json:"version"`
	KIDs          []WRMKey `json:"kids,omitempty"`
	LicenseURL    string   `json:"licenseUrl,omitempty"`
	IISDRMVersion string   `json:"iisDrmVersion,omitempty"`
}

// WRMKey is a key id entry. Value is base64 in GUID byte order.
type WRMKey struct {
	Value     string `json:"value"`
	Checksum  string `json:"checksum,omitempty"`
	Algorithm string `json:"algId,omitempty"`
}

// KeyID converts the entry back to a standard order key id.
func (k WRMKey) KeyID() (cenc.KeyID, error) {
	h, err := DecodeKey(k.Value)
	if err != nil {
		return cenc.KeyID{}, err
	}
	return cenc.ParseKeyID(h)
}

type wrmDocument struct {
	XMLName xml.Name `xml:"WRMHEADER"`
	Version string   `xml:"version,attr"`
	Data    struct {
		ProtectInfo struct {
			AlgID string   `xml:"ALGID"`
			KIDs  []wrmKID `xml:"KIDS>KID"`
		} `xml:"PROTECTINFO"`
		KID              string           `xml:"KID"`
		Checksum         string           `xml:"CHECKSUM"`
		LicenseURL       string           `xml:"LA_URL"`
		CustomAttributes customAttributes `xml:"CUSTOMATTRIBUTES"`
	} `xml:"DATA"`
}

// ParseXML reads a WRMHEADER document. 4.0 style single KID elements and
// 4.1+ style KIDS lists are both understood.
func ParseXML(text string) (*WRMHeader, error) {
	var doc wrmDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("playready: parse header: %w", err)
	}
	h := &WRMHeader{
		Version:       doc.Version,
		LicenseURL:    strings.TrimSpace(doc.Data.LicenseURL),
		IISDRMVersion: doc.Data.CustomAttributes.IISDRMVersion,
	}
	if kid := strings.TrimSpace(doc.Data.KID); kid != "" {
		h.KIDs = append(h.KIDs, WRMKey{
			Value:     kid,
			Checksum:  strings.TrimSpace(doc.Data.Checksum),
			Algorithm: doc.Data.ProtectInfo.AlgID,
		})
	}
	for _, k := range doc.Data.ProtectInfo.KIDs {
		h.KIDs = append(h.KIDs, WRMKey{Value: k.Value, Checksum: k.Checksum, Algorithm: k.AlgID})
	}
	return h, nil
}
