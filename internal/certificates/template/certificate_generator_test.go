package template

import (
	"bytes"
	"os"
	"testing"
	"time"

	"coa-registry/internal/models"
	"coa-registry/internal/qr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFontPath = "../../../fonts/DejaVuSans.ttf"

func TestGenerate(t *testing.T) {
	if _, err := os.Stat(testFontPath); err != nil {
		t.Skip("font not available:", testFontPath)
	}

	qrPNG, err := qr.NewGenerator("http://localhost:8080", 0).CertificatePNG("Ab3dE9xYz012")
	require.NoError(t, err)

	g := NewCertificatePDFGenerator(testFontPath)
	pdf, err := g.Generate(models.PublicCertificate{
		QRID:        "Ab3dE9xYz012",
		ComicTitle:  "Saga",
		IssueNumber: "1",
		SignerName:  "Fiona Staples",
		EventName:   "Spring Con",
		SignedDate:  time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC),
		Status:      models.CertificateActive,
	}, qrPNG)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestGenerate_MissingFont(t *testing.T) {
	g := NewCertificatePDFGenerator("/nonexistent/font.ttf")

	_, err := g.Generate(models.PublicCertificate{QRID: "x"}, nil)
	assert.Error(t, err)
}
