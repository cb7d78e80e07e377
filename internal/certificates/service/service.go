package certificates

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/certificates/template"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/qr"
	"coa-registry/internal/storage"
	"coa-registry/internal/utils"
)

const maxQRAttempts = 3

type CertificateDBLayer interface {
	CreateCertificate(ctx context.Context, cert models.Certificate) error
	GetCertificate(ctx context.Context, id string) (*models.Certificate, error)
	GetCertificateByQRID(ctx context.Context, qrID string) (*models.Certificate, error)
	ListCertificates(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, error)
	UpdateCertificate(ctx context.Context, cert models.Certificate) error
	SetImage(ctx context.Context, id, imagePath string) (int64, error)
	RevokeCertificate(ctx context.Context, id, reason string) (int64, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type ImageResolver interface {
	ImageURL(objectPath string) string
}

type Publisher interface {
	Publish(ctx context.Context, event models.WorkflowEvent) error
}

type CertificateService struct {
	DB        CertificateDBLayer
	Cache     VerifyCache
	QR        *qr.Generator
	Renderer  *template.CertificatePDFGenerator
	Images    ImageResolver
	Publisher Publisher
	Logger    *logger.Logger
}

func NewCertificateService(db CertificateDBLayer, cache VerifyCache, qrGen *qr.Generator, pdf *template.CertificatePDFGenerator, images ImageResolver, log *logger.Logger) *CertificateService {
	return &CertificateService{
		DB:       db,
		Cache:    cache,
		QR:       qrGen,
		Renderer: pdf,
		Images:   images,
		Logger:   log,
	}
}

func sanitizeCertificateInput(in *models.CertificateInput) {
	in.ComicTitle = utils.SanitizeText(in.ComicTitle)
	in.IssueNumber = utils.SanitizeText(in.IssueNumber)
	in.SignerName = utils.SanitizeText(in.SignerName)
	in.SignedLocation = utils.SanitizeText(in.SignedLocation)
	in.WitnessedBy = utils.SanitizeText(in.WitnessedBy)
	in.SerialNumber = utils.SanitizeText(in.SerialNumber)
}

func (s *CertificateService) checkEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	_, err := s.DB.GetEvent(ctx, eventID)
	if database.IsNoRows(err) {
		return apperr.NewValidation("event_id", "does not exist")
	}
	return err
}

func (s *CertificateService) invalidate(ctx context.Context, qrID string) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, qrID)
	}
}

func (s *CertificateService) publish(ctx context.Context, event models.WorkflowEvent) {
	if s.Publisher == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn("CERTIFICATES", fmt.Sprintf("Failed to publish %s for %s: %v", event.Type, event.QRID, err))
	}
}

func (s *CertificateService) withImageURL(cert *models.Certificate) *models.Certificate {
	if s.Images != nil && cert.ImagePath != "" {
		cert.ImageURL = s.Images.ImageURL(cert.ImagePath)
	}
	return cert
}

// CreateCertificate issues a certificate directly, without a collector
// request behind it.
func (s *CertificateService) CreateCertificate(ctx context.Context, actor models.Actor, in models.CertificateInput) (*models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	sanitizeCertificateInput(&in)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkEvent(ctx, in.EventID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cert := models.Certificate{
		ComicTitle:     in.ComicTitle,
		IssueNumber:    in.IssueNumber,
		SignerName:     in.SignerName,
		SignedDate:     in.SignedDate,
		SignedLocation: in.SignedLocation,
		WitnessedBy:    in.WitnessedBy,
		SerialNumber:   in.SerialNumber,
		EventID:        in.EventID,
		Status:         models.CertificateActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for attempt := 1; ; attempt++ {
		qrID, err := utils.GenerateQRID()
		if err != nil {
			return nil, err
		}
		cert.ID = utils.GenerateUUID()
		cert.QRID = qrID

		err = s.DB.CreateCertificate(ctx, cert)
		if err == nil {
			break
		}
		if database.IsUniqueViolation(err) && attempt < maxQRAttempts {
			s.Logger.Warn("CERTIFICATES", fmt.Sprintf("QR id collision on %s, retrying", qrID))
			continue
		}
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	s.Logger.Info("CERTIFICATES", fmt.Sprintf("Certificate %s created manually by %s", cert.QRID, actor.UserID))
	s.publish(ctx, models.WorkflowEvent{
		Type:    models.EventCertificateIssued,
		EventID: cert.EventID,
		QRID:    cert.QRID,
		ActorID: actor.UserID,
	})
	return &cert, nil
}

func (s *CertificateService) load(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.DB.GetCertificate(ctx, id)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("certificate", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate %s: %w", id, err)
	}
	return cert, nil
}

func (s *CertificateService) GetCertificate(ctx context.Context, actor models.Actor, id string) (*models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}
	cert, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withImageURL(cert), nil
}

func (s *CertificateService) ListCertificates(ctx context.Context, actor models.Actor, filter models.CertificateFilter) ([]models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.NewValidation("status", "must be one of: active revoked")
	}

	certs, err := s.DB.ListCertificates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	for i := range certs {
		s.withImageURL(&certs[i])
	}
	return certs, nil
}

// UpdateCertificate edits metadata. The qr_id printed on the certificate
// never changes.
func (s *CertificateService) UpdateCertificate(ctx context.Context, actor models.Actor, id string, in models.CertificateInput) (*models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	sanitizeCertificateInput(&in)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	cert, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkEvent(ctx, in.EventID); err != nil {
		return nil, err
	}

	cert.ComicTitle = in.ComicTitle
	cert.IssueNumber = in.IssueNumber
	cert.SignerName = in.SignerName
	cert.SignedDate = in.SignedDate
	cert.SignedLocation = in.SignedLocation
	cert.WitnessedBy = in.WitnessedBy
	cert.SerialNumber = in.SerialNumber
	cert.EventID = in.EventID
	cert.UpdatedAt = time.Now().UTC()

	if err := s.DB.UpdateCertificate(ctx, *cert); err != nil {
		return nil, fmt.Errorf("failed to update certificate %s: %w", id, err)
	}
	s.invalidate(ctx, cert.QRID)

	s.Logger.Info("CERTIFICATES", fmt.Sprintf("Certificate %s updated by %s", cert.QRID, actor.UserID))
	return s.withImageURL(cert), nil
}

// ReplaceImage points the certificate at an image already uploaded to the
// public image bucket.
func (s *CertificateService) ReplaceImage(ctx context.Context, actor models.Actor, id, imagePath string) (*models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	cleaned, err := storage.CleanObjectPath(imagePath)
	if err != nil || !storage.IsPublicImage(cleaned) {
		return nil, apperr.NewValidation("image_path", "must be a certificate or book image upload")
	}

	cert, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.DB.SetImage(ctx, id, cleaned); err != nil {
		return nil, fmt.Errorf("failed to set image on %s: %w", id, err)
	}
	cert.ImagePath = cleaned
	s.invalidate(ctx, cert.QRID)

	s.Logger.Info("CERTIFICATES", fmt.Sprintf("Certificate %s image replaced by %s", cert.QRID, actor.UserID))
	return s.withImageURL(cert), nil
}

// RevokeCertificate marks an active certificate revoked. Public verification
// keeps answering for it, with status revoked.
func (s *CertificateService) RevokeCertificate(ctx context.Context, actor models.Actor, id, reason string) (*models.Certificate, error) {
	if err := auth.EnsureStaff(actor); err != nil {
		return nil, err
	}

	reason = utils.SanitizeText(reason)
	if reason == "" {
		return nil, apperr.NewValidation("reason", "is required")
	}

	cert, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.Status == models.CertificateRevoked {
		return nil, apperr.InvalidState("certificate is already revoked")
	}

	rows, err := s.DB.RevokeCertificate(ctx, id, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke certificate %s: %w", id, err)
	}
	if rows == 0 {
		return nil, apperr.InvalidState("certificate is already revoked")
	}
	cert.Status = models.CertificateRevoked
	cert.RevokedReason = reason
	s.invalidate(ctx, cert.QRID)

	s.Logger.LogSecurity("REVOKE", fmt.Sprintf("Certificate %s revoked by %s: %s", cert.QRID, actor.UserID, reason))
	s.publish(ctx, models.WorkflowEvent{
		Type:      models.EventCertificateRevoked,
		RequestID: cert.SourceRequestID,
		EventID:   cert.EventID,
		QRID:      cert.QRID,
		ActorID:   actor.UserID,
	})
	return s.withImageURL(cert), nil
}
