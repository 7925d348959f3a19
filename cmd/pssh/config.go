package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orajowo/pssh/playready"
	"github.com/orajowo/pssh/widevine"
)

// encodeConfig is the input of the encode command, read from YAML and then
// overridden by any flag given on the command line.
type encodeConfig struct {
	System string `yaml:"system"`
	// KeyIDs and Keys pair up by position. KeyPairs, when present, is used
	// as is and the two lists are ignored.
	KeyIDs   []string            `yaml:"keyIds"`
	Keys     []string            `yaml:"keys"`
	KeyPairs []playready.KeyPair `yaml:"keyPairs"`

	// Widevine
	Algorithm        string `yaml:"algorithm"`
	ContentID        string `yaml:"contentId"`
	Provider         string `yaml:"provider"`
	TrackType        string `yaml:"trackType"`
	ProtectionScheme string `yaml:"protectionScheme"`

	// PlayReady
	LicenseURL        string `yaml:"licenseUrl"`
	KeySeed           string `yaml:"keySeed"`
	CompatibilityMode bool   `yaml:"compatibilityMode"`
	Checksum          *bool  `yaml:"checksum"`

	DataOnly bool `yaml:"dataOnly"`
}

func loadConfig(path string) (*encodeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg encodeConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *encodeConfig) widevineHeader() widevine.Header {
	return widevine.Header{
		Algorithm:        widevine.Algorithm(c.Algorithm),
		KeyIDs:           c.keyIDs(),
		ContentID:        c.ContentID,
		TrackType:        c.TrackType,
		Provider:         c.Provider,
		ProtectionScheme: c.ProtectionScheme,
	}
}

func (c *encodeConfig) playReadyHeader() playready.Header {
	return playready.Header{
		KeyPairs:          c.keyPairs(),
		LicenseURL:        c.LicenseURL,
		KeySeed:           c.KeySeed,
		CompatibilityMode: c.CompatibilityMode,
		OmitChecksum:      c.Checksum != nil && !*c.Checksum,
	}
}

func (c *encodeConfig) keyIDs() []string {
	if len(c.KeyPairs) == 0 {
		return c.KeyIDs
	}
	ids := make([]string, 0, len(c.KeyPairs))
	for _, p := range c.KeyPairs {
		ids = append(ids, p.KID)
	}
	return ids
}

func (c *encodeConfig) keyPairs() []playready.KeyPair {
	if len(c.KeyPairs) > 0 {
		return c.KeyPairs
	}
	pairs := make([]playready.KeyPair, 0, len(c.KeyIDs))
	for i, kid := range c.KeyIDs {
		p := playready.KeyPair{KID: kid}
		if i < len(c.Keys) {
			p.Key = c.Keys[i]
		}
		pairs = append(pairs, p)
	}
	return pairs
}
