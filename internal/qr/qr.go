// Package qr renders passwords as QR codes.
package qr

import (
	"errors"
	"fmt"
	"path"

	"github.com/skip2/go-qrcode"
	"github.com/zarlcorp/core/pkg/zfilesystem"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// ErrEmpty is returned when there is nothing to encode.
var ErrEmpty = errors.New("generate or enter a password first")

func encode(content string) (*qrcode.QRCode, error) {
	if content == "" {
		return nil, ErrEmpty
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return q, nil
}

// PNG returns content encoded as a black-on-white PNG of size x size pixels.
// sizes below the symbol's minimum are enlarged.
func PNG(content string, size int) ([]byte, error) {
	q, err := encode(content)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	b, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return b, nil
}

// WritePNG renders content and writes it to name on fsys.
func WritePNG(fsys zfilesystem.ReadWriteFileFS, name, content string, size int) error {
	b, err := PNG(content, size)
	if err != nil {
		return err
	}

	if dir := path.Dir(name); dir != "." {
		if err := fsys.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("write qr png: create %s: %w", dir, err)
		}
	}

	if err := fsys.WriteFile(name, b, 0o600); err != nil {
		return fmt.Errorf("write qr png: %w", err)
	}
	return nil
}

// Terminal renders content as half-block text suitable for a terminal.
func Terminal(content string) (string, error) {
	q, err := encode(content)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
