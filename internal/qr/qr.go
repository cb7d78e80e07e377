// Package qr renders the QR codes printed on event signage and certificates.
package qr

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

type Generator struct {
	baseURL string
	size    int
}

// NewGenerator builds links against baseURL, the public origin of the site.
func NewGenerator(baseURL string, size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{baseURL: strings.TrimRight(baseURL, "/"), size: size}
}

// EventURL is the public page for an event slug.
func (g *Generator) EventURL(slug string) string {
	return fmt.Sprintf("%s/events/%s", g.baseURL, url.PathEscape(slug))
}

// VerifyURL is the public verification page for a certificate.
func (g *Generator) VerifyURL(qrID string) string {
	return fmt.Sprintf("%s/verify/%s", g.baseURL, url.PathEscape(qrID))
}

func (g *Generator) EventPNG(slug string) ([]byte, error) {
	return g.Encode(g.EventURL(slug))
}

func (g *Generator) CertificatePNG(qrID string) ([]byte, error) {
	return g.Encode(g.VerifyURL(qrID))
}

// Encode renders content as a PNG.
func (g *Generator) Encode(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	png, err := qrcode.Encode(content, qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}
	return png, nil
}
