package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLs(t *testing.T) {
	g := NewGenerator("https://coa.example.com/", 0)

	assert.Equal(t, "https://coa.example.com/events/spring-con-ab12cd", g.EventURL("spring-con-ab12cd"))
	assert.Equal(t, "https://coa.example.com/verify/Ab3dE9xYz012", g.VerifyURL("Ab3dE9xYz012"))
}

func TestCertificatePNG(t *testing.T) {
	g := NewGenerator("http://localhost:8080", 128)

	data, err := g.CertificatePNG("Ab3dE9xYz012")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestEncode_EmptyContent(t *testing.T) {
	g := NewGenerator("http://localhost:8080", 0)

	_, err := g.Encode("")
	assert.Error(t, err)
}
