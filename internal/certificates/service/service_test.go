package certificates_test

import (
	"context"
	"testing"
	"time"

	"coa-registry/internal/apperr"
	certdb "coa-registry/internal/certificates/db"
	certificates "coa-registry/internal/certificates/service"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/qr"
	"coa-registry/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var (
	staff     = models.Actor{UserID: "staff-1", Role: models.RoleAdmin}
	collector = models.Actor{UserID: "collector-1"}
)

type imageURLs struct{}

func (imageURLs) ImageURL(p string) string { return "http://cdn.test/" + p }

type fixture struct {
	bun     *bun.DB
	svc     *certificates.CertificateService
	redis   *miniredis.Miniredis
	eventID string
}

func setup(t *testing.T) *fixture {
	ctx := context.Background()
	bunDB, err := database.OpenSQLite(ctx, "certs_"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	cache := certificates.NewRedisVerifyCache(client, time.Minute, logger.Discard())
	svc := certificates.NewCertificateService(&certdb.DB{Bun: bunDB}, cache,
		qr.NewGenerator("https://coa.test", 0), nil, imageURLs{}, logger.Discard())

	now := time.Now().UTC()
	event := &models.Event{
		ID: uuid.NewString(), Slug: "nycc-abc123", ArtistName: "Frank Miller", Name: "NYCC",
		Location: "Javits Center", StartDate: now, EndDate: now, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	_, err = bunDB.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	return &fixture{bun: bunDB, svc: svc, redis: mr, eventID: event.ID}
}

func (f *fixture) input() models.CertificateInput {
	return models.CertificateInput{
		ComicTitle:     "Daredevil",
		IssueNumber:    "168",
		SignerName:     "Frank Miller",
		SignedDate:     time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC),
		SignedLocation: "Javits Center",
		WitnessedBy:    "Booth Staff",
		EventID:        f.eventID,
	}
}

func TestCreateCertificate(t *testing.T) {
	f := setup(t)

	cert, err := f.svc.CreateCertificate(context.Background(), staff, f.input())
	require.NoError(t, err)
	assert.Len(t, cert.QRID, utils.QRIDLength)
	assert.Equal(t, models.CertificateActive, cert.Status)
	assert.Empty(t, cert.SourceRequestID)

	_, err = f.svc.CreateCertificate(context.Background(), collector, f.input())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	in := f.input()
	in.EventID = "missing"
	_, err = f.svc.CreateCertificate(context.Background(), staff, in)
	ve, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "event_id")

	_, err = f.svc.CreateCertificate(context.Background(), staff, models.CertificateInput{})
	ve, ok = apperr.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "comic_title")
	assert.Contains(t, ve.Fields, "signed_date")
}

func TestVerify_PublicProjection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)
	_, err = f.svc.ReplaceImage(ctx, staff, cert.ID, "staff-1/certificate/photo.png")
	require.NoError(t, err)

	public, err := f.svc.Verify(ctx, cert.QRID)
	require.NoError(t, err)
	assert.Equal(t, "Daredevil", public.ComicTitle)
	assert.Equal(t, "NYCC", public.EventName)
	assert.Equal(t, "http://cdn.test/staff-1/certificate/photo.png", public.ImageURL)
	assert.Equal(t, models.CertificateActive, public.Status)

	assert.True(t, f.redis.Exists(certificates.VerifyKeyPrefix+cert.QRID))
}

func TestVerify_NotFound(t *testing.T) {
	f := setup(t)

	for _, qrID := range []string{"", "short", "AAAAAAAAAAAA", "has spaces!!", "../../etc/pa"} {
		_, err := f.svc.Verify(context.Background(), qrID)
		assert.ErrorIs(t, err, apperr.ErrNotFound, qrID)
	}
}

func TestRevoke_InvalidatesCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, cert.QRID)
	require.NoError(t, err)
	require.True(t, f.redis.Exists(certificates.VerifyKeyPrefix+cert.QRID))

	_, err = f.svc.RevokeCertificate(ctx, staff, cert.ID, " ")
	ve, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "reason")

	revoked, err := f.svc.RevokeCertificate(ctx, staff, cert.ID, "Forged signature")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateRevoked, revoked.Status)
	assert.False(t, f.redis.Exists(certificates.VerifyKeyPrefix+cert.QRID))

	public, err := f.svc.Verify(ctx, cert.QRID)
	require.NoError(t, err)
	assert.Equal(t, models.CertificateRevoked, public.Status)

	_, err = f.svc.RevokeCertificate(ctx, staff, cert.ID, "again")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestUpdate_KeepsQRIDAndInvalidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, cert.QRID)
	require.NoError(t, err)

	in := f.input()
	in.SerialNumber = "CGC-0042"
	in.ComicTitle = "Daredevil <i>Vol 1</i>"
	updated, err := f.svc.UpdateCertificate(ctx, staff, cert.ID, in)
	require.NoError(t, err)
	assert.Equal(t, cert.QRID, updated.QRID)
	assert.Equal(t, "Daredevil Vol 1", updated.ComicTitle)

	public, err := f.svc.Verify(ctx, cert.QRID)
	require.NoError(t, err)
	assert.Equal(t, "CGC-0042", public.SerialNumber)

	_, err = f.svc.UpdateCertificate(ctx, staff, "missing", in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReplaceImage_RejectsPrivateAndTraversalPaths(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)

	for _, p := range []string{"collector-1/proof/x.png", "../secret.png", "certificate/x.png", ""} {
		_, err := f.svc.ReplaceImage(ctx, staff, cert.ID, p)
		_, ok := apperr.AsValidation(err)
		assert.True(t, ok, p)
	}

	_, err = f.svc.ReplaceImage(ctx, collector, cert.ID, "collector-1/book/x.png")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestListCertificates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)
	_, err = f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)
	_, err = f.svc.RevokeCertificate(ctx, staff, first.ID, "duplicate")
	require.NoError(t, err)

	all, err := f.svc.ListCertificates(ctx, staff, models.CertificateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	revoked, err := f.svc.ListCertificates(ctx, staff, models.CertificateFilter{Status: models.CertificateRevoked})
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	assert.Equal(t, first.ID, revoked[0].ID)

	_, err = f.svc.ListCertificates(ctx, staff, models.CertificateFilter{Status: "void"})
	_, ok := apperr.AsValidation(err)
	assert.True(t, ok)

	_, err = f.svc.ListCertificates(ctx, collector, models.CertificateFilter{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestQRCode(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)

	png, err := f.svc.QRCode(ctx, cert.QRID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	_, err = f.svc.QRCode(ctx, "ZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.PDF(ctx, cert.QRID)
	assert.Error(t, err)
}

func TestCache_NilClientIsNoop(t *testing.T) {
	cache := certificates.NewRedisVerifyCache(nil, 0, logger.Discard())

	cache.Set(context.Background(), models.PublicCertificate{QRID: "x"})
	_, ok := cache.Get(context.Background(), "x")
	assert.False(t, ok)
	cache.Invalidate(context.Background(), "x")
	assert.Equal(t, certificates.DefaultVerifyTTL, cache.TTL)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.CreateCertificate(ctx, staff, f.input())
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, cert.QRID)
	require.NoError(t, err)
	f.redis.FastForward(2 * time.Minute)
	assert.False(t, f.redis.Exists(certificates.VerifyKeyPrefix+cert.QRID))
}
