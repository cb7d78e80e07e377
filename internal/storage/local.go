package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"coa-registry/internal/logger"

	"github.com/go-chi/chi/v5"
)

// Local stores objects on disk and serves them from /files/{bucket}/*.
// Objects in private buckets need an HMAC-signed, expiring URL.
type Local struct {
	root          string
	baseURL       string
	key           []byte
	publicBuckets map[string]bool
	Logger        *logger.Logger
}

func NewLocal(root, baseURL, signingKey string, publicBuckets []string, log *logger.Logger) (*Local, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("STORAGE_SIGNING_KEY is required for local storage")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	public := make(map[string]bool, len(publicBuckets))
	for _, b := range publicBuckets {
		public[b] = true
	}
	return &Local{
		root:          root,
		baseURL:       strings.TrimRight(baseURL, "/"),
		key:           []byte(signingKey),
		publicBuckets: public,
		Logger:        log,
	}, nil
}

func (l *Local) filePath(bucket, objectPath string) (string, error) {
	if strings.ContainsAny(bucket, `/\`) || bucket == "" || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	cleaned, err := CleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, bucket, filepath.FromSlash(cleaned)), nil
}

func (l *Local) Upload(_ context.Context, bucket, objectPath string, r io.Reader, size int64, _ string) error {
	dst, err := l.filePath(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, size))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	l.Logger.LogStorage("UPLOAD", bucket+"/"+objectPath, fmt.Sprintf("%d bytes", n))
	return nil
}

func (l *Local) PublicURL(bucket, objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/files/%s/%s", l.baseURL, bucket, objectPath)
}

func (l *Local) SignedURL(_ context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	if objectPath == "" {
		return "", nil
	}
	expires := time.Now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", l.sign(bucket, objectPath, expires))
	return l.PublicURL(bucket, objectPath) + "?" + q.Encode(), nil
}

func (l *Local) sign(bucket, objectPath string, expires int64) string {
	mac := hmac.New(sha256.New, l.key)
	fmt.Fprintf(mac, "%s/%s|%d", bucket, objectPath, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *Local) verify(bucket, objectPath, expiresParam, sig string) bool {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil || time.Now().Unix() > expires {
		return false
	}
	expected := l.sign(bucket, objectPath, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// ServeFiles handles GET /files/{bucket}/*
func (l *Local) ServeFiles(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	objectPath := chi.URLParam(r, "*")

	if !l.publicBuckets[bucket] {
		q := r.URL.Query()
		if !l.verify(bucket, objectPath, q.Get("expires"), q.Get("sig")) {
			l.Logger.LogSecurity("SIGNED_URL_REJECTED", bucket+"/"+objectPath)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	src, err := l.filePath(bucket, objectPath)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(src); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, src)
}
