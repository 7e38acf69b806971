// Package qr renders payment links as PNG QR codes.
package qr

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	maxSize     = 1024
)

// Generator encodes arbitrary text as a PNG.
type Generator interface {
	PNG(data string, size int) ([]byte, error)
}

// PNGGenerator uses medium error correction, which scans reliably from screens.
type PNGGenerator struct{}

func (PNGGenerator) PNG(data string, size int) ([]byte, error) {
	if data == "" {
		return nil, errors.New("qr: data is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return qrcode.Encode(data, qrcode.Medium, size)
}
