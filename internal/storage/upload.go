package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/config"
	"coa-registry/internal/logger"
	"coa-registry/internal/utils"
)

type UploadKind string

const (
	KindProof UploadKind = "proof"
	KindBook  UploadKind = "book"
	KindCOA   UploadKind = "certificate"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadResult is returned to the client; Path is what gets stored on the
// request or certificate.
type UploadResult struct {
	Kind UploadKind `json:"kind"`
	Path string     `json:"path"`
	URL  string     `json:"url"`
}

// Uploader places images in the right bucket under the uploader's prefix.
type Uploader struct {
	Store       Storage
	ProofBucket string
	ImageBucket string
	MaxBytes    int64
	SignedTTL   time.Duration
	Logger      *logger.Logger
}

func NewUploader(store Storage, cfg config.StorageConfig, log *logger.Logger) *Uploader {
	return &Uploader{
		Store:       store,
		ProofBucket: cfg.ProofBucket,
		ImageBucket: cfg.ImageBucket,
		MaxBytes:    cfg.MaxUploadBytes,
		SignedTTL:   cfg.SignedURLTTL,
		Logger:      log,
	}
}

// BucketFor returns the bucket that holds uploads of kind.
func (u *Uploader) BucketFor(kind UploadKind) string {
	if kind == KindProof {
		return u.ProofBucket
	}
	return u.ImageBucket
}

// OwnedUpload reports whether objectPath is a clean <userID>/<kind>/<name>
// path, the shape HandleUpload produces for an upload of kind by userID.
func OwnedUpload(objectPath, userID string, kind UploadKind) bool {
	if userID == "" {
		return false
	}
	cleaned, err := CleanObjectPath(objectPath)
	if err != nil || cleaned != objectPath {
		return false
	}
	parts := strings.SplitN(cleaned, "/", 3)
	return len(parts) == 3 && parts[0] == userID && UploadKind(parts[1]) == kind && parts[2] != ""
}

// IsPublicImage reports whether objectPath is a book or certificate upload,
// the kinds that live in the public image bucket.
func IsPublicImage(objectPath string) bool {
	parts := strings.SplitN(objectPath, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return false
	}
	kind := UploadKind(parts[1])
	return kind == KindBook || kind == KindCOA
}

// ProofURL returns a short-lived URL for a private proof photo.
func (u *Uploader) ProofURL(ctx context.Context, objectPath string) (string, error) {
	return u.Store.SignedURL(ctx, u.ProofBucket, objectPath, u.SignedTTL)
}

// ImageURL returns the public URL of a book or certificate image.
func (u *Uploader) ImageURL(objectPath string) string {
	return u.Store.PublicURL(u.ImageBucket, objectPath)
}

// HandleUpload accepts multipart form fields kind (proof|book|certificate)
// and file.
func (u *Uploader) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	if err := auth.EnsureAuthenticated(actor); err != nil {
		utils.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(u.MaxBytes); err != nil {
		utils.WriteError(w, apperr.NewValidation("file", "upload too large or malformed"))
		return
	}

	kind := UploadKind(r.FormValue("kind"))
	switch kind {
	case KindProof, KindBook:
	case KindCOA:
		if !auth.IsStaff(actor.Role) {
			utils.WriteError(w, apperr.Forbidden("only staff upload certificate images"))
			return
		}
	default:
		utils.WriteError(w, apperr.NewValidation("kind", "must be one of: proof book certificate"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, apperr.NewValidation("file", "is required"))
		return
	}
	defer file.Close()

	if header.Size > u.MaxBytes {
		utils.WriteError(w, apperr.NewValidation("file", fmt.Sprintf("must be at most %d bytes", u.MaxBytes)))
		return
	}

	sniff := make([]byte, 512)
	n, _ := file.Read(sniff)
	contentType := http.DetectContentType(sniff[:n])
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		utils.WriteError(w, apperr.NewValidation("file", "must be a JPEG, PNG or WebP image"))
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		utils.WriteError(w, err)
		return
	}

	objectPath := path.Join(actor.UserID, string(kind), utils.GenerateUUID()+ext)
	bucket := u.BucketFor(kind)
	if err := u.Store.Upload(r.Context(), bucket, objectPath, file, header.Size, contentType); err != nil {
		u.Logger.Error("STORAGE", fmt.Sprintf("Upload failed for %s: %v", actor.UserID, err))
		utils.WriteError(w, err)
		return
	}

	result := UploadResult{Kind: kind, Path: objectPath}
	if kind == KindProof {
		result.URL, _ = u.ProofURL(r.Context(), objectPath)
	} else {
		result.URL = u.ImageURL(objectPath)
	}

	utils.WriteSuccess(w, http.StatusCreated, "File uploaded", result)
}
