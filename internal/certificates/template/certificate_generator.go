package template

import (
	"bytes"
	"fmt"
	"image/png"

	"coa-registry/internal/models"

	"github.com/signintech/gopdf"
)

// CertificatePDFGenerator renders the printable certificate handed to the
// collector alongside the signed book.
type CertificatePDFGenerator struct {
	fontPath string
}

func NewCertificatePDFGenerator(fontPath string) *CertificatePDFGenerator {
	return &CertificatePDFGenerator{fontPath: fontPath}
}

func (g *CertificatePDFGenerator) Generate(cert models.PublicCertificate, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("dejavu", g.fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if err := pdf.SetFont("dejavu", "", 22); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	addHeader(pdf)

	if err := pdf.SetFont("dejavu", "", 13); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(110)
	addCertificateInfo(pdf, cert)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		addQRCode(pdf, qrCode)
	}

	if err := pdf.SetFont("dejavu", "", 10); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(780)
	addFooter(pdf, cert.QRID)

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf) {
	pdf.SetX(60)
	pdf.SetY(50)
	pdf.Cell(nil, "Certificate of Authenticity")
}

func addCertificateInfo(pdf *gopdf.GoPdf, cert models.PublicCertificate) {
	info := []struct {
		Label string
		Value string
	}{
		{"Title", cert.ComicTitle},
		{"Issue", cert.IssueNumber},
		{"Signed by", cert.SignerName},
		{"Event", cert.EventName},
		{"Signed on", cert.SignedDate.Format("January 2, 2006")},
		{"Location", cert.SignedLocation},
		{"Witnessed by", cert.WitnessedBy},
		{"Serial", cert.SerialNumber},
		{"Certificate ID", cert.QRID},
	}

	for _, item := range info {
		if item.Value == "" {
			continue
		}
		pdf.SetX(60)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(24)
	}

	if cert.Status == models.CertificateRevoked {
		pdf.SetX(60)
		pdf.Cell(nil, "STATUS: REVOKED")
		pdf.Br(24)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetX(60)
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 140, H: 140}
	if err := pdf.ImageFrom(img, 60, pdf.GetY(), rect); err != nil {
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func addFooter(pdf *gopdf.GoPdf, qrID string) {
	pdf.SetX(60)
	pdf.Cell(nil, fmt.Sprintf("Scan the code or look up %s to verify this certificate.", qrID))
}
