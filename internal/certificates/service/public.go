package certificates

import (
	"context"
	"fmt"

	"coa-registry/internal/apperr"
	"coa-registry/internal/database"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"
)

// validQRID rejects lookups that could never match a generated id.
func validQRID(qrID string) bool {
	if len(qrID) != utils.QRIDLength {
		return false
	}
	for _, r := range qrID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Verify is the anonymous lookup behind a printed QR code. Only the public
// projection of the certificate is returned.
func (s *CertificateService) Verify(ctx context.Context, qrID string) (*models.PublicCertificate, error) {
	if !validQRID(qrID) {
		return nil, apperr.NotFound("certificate", qrID)
	}
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, qrID); ok {
			return cached, nil
		}
	}

	cert, err := s.DB.GetCertificateByQRID(ctx, qrID)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("certificate", qrID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate %s: %w", qrID, err)
	}

	public := models.PublicCertificate{
		QRID:           cert.QRID,
		ComicTitle:     cert.ComicTitle,
		IssueNumber:    cert.IssueNumber,
		SignerName:     cert.SignerName,
		SignedDate:     cert.SignedDate,
		SignedLocation: cert.SignedLocation,
		WitnessedBy:    cert.WitnessedBy,
		SerialNumber:   cert.SerialNumber,
		Status:         cert.Status,
	}
	if s.Images != nil && cert.ImagePath != "" {
		public.ImageURL = s.Images.ImageURL(cert.ImagePath)
	}
	if cert.EventID != "" {
		event, err := s.DB.GetEvent(ctx, cert.EventID)
		switch {
		case err == nil:
			public.EventName = event.Name
		case !database.IsNoRows(err):
			return nil, fmt.Errorf("failed to load event %s: %w", cert.EventID, err)
		}
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, public)
	}
	return &public, nil
}

// QRCode renders the verification link for an existing certificate.
func (s *CertificateService) QRCode(ctx context.Context, qrID string) ([]byte, error) {
	if _, err := s.Verify(ctx, qrID); err != nil {
		return nil, err
	}
	return s.QR.CertificatePNG(qrID)
}

// PDF renders the printable certificate with its QR code embedded.
func (s *CertificateService) PDF(ctx context.Context, qrID string) ([]byte, error) {
	if s.Renderer == nil {
		return nil, fmt.Errorf("pdf rendering is not configured")
	}

	cert, err := s.Verify(ctx, qrID)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.CertificatePNG(qrID)
	if err != nil {
		return nil, err
	}

	doc, err := s.Renderer.Generate(*cert, png)
	if err != nil {
		return nil, fmt.Errorf("failed to render certificate %s: %w", qrID, err)
	}
	s.Logger.Debug("CERTIFICATES", fmt.Sprintf("Rendered PDF for %s (%d bytes)", qrID, len(doc)))
	return doc, nil
}
