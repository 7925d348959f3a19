package pssh

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// ScanMP4 decodes every pssh box found at the top level of an MP4 stream or
// inside its moov and moof boxes, in file order.
func (c *Codec) ScanMP4(r io.Reader) ([]*DecodeResult, error) {
	var (
		results []*DecodeResult
		pos     uint64
	)
	for {
		box, err := mp4.DecodeBox(pos, r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return results, fmt.Errorf("pssh: read mp4 box at %d: %w", pos, err)
		}
		pos += box.Size()
		found, err := c.scanBox(box)
		if err != nil {
			return results, err
		}
		results = append(results, found...)
	}
	c.log.Debug("scanned mp4", "bytes", pos, "pssh", len(results))
	return results, nil
}

func (c *Codec) scanBox(box mp4.Box) ([]*DecodeResult, error) {
	var children []mp4.Box
	switch b := box.(type) {
	case *mp4.PsshBox:
		var buf bytes.Buffer
		if err := b.Encode(&buf); err != nil {
			return nil, fmt.Errorf("pssh: re-encode mp4 pssh box: %w", err)
		}
		res, err := c.DecodeBox(buf.Bytes())
		if err != nil {
			return nil, err
		}
		return []*DecodeResult{res}, nil
	case *mp4.MoovBox:
		children = b.Children
	case *mp4.MoofBox:
		children = b.Children
	}

	var results []*DecodeResult
	for _, child := range children {
		found, err := c.scanBox(child)
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}
	return results, nil
}
