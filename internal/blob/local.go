package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxLocalUpload = 512 << 20

// LocalStore keeps objects on disk under root. Presigned URLs point at
// Handler, which must be mounted at /blobs on baseURL.
type LocalStore struct {
	root    string
	baseURL *url.URL
	secret  []byte
	now     func() time.Time
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(root, baseURL string, secret []byte) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "pipeline-blobs")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("a signing secret is required")
	}
	return &LocalStore{root: root, baseURL: u, secret: secret, now: time.Now}, nil
}

func (s *LocalStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

func (s *LocalStore) Store(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *LocalStore) PresignUpload(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return s.presign(http.MethodPut, key, ttl, url.Values{"content-type": {contentType}})
}

func (s *LocalStore) PresignDownload(_ context.Context, key string, ttl time.Duration, filename string) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("filename", filename)
	}
	return s.presign(http.MethodGet, key, ttl, params)
}

func (s *LocalStore) Type() string {
	return "local"
}

// Handler serves presigned GET and PUT requests.
func (s *LocalStore) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/*", s.serveDownload)
	router.Put("/*", s.serveUpload)
	return router
}

func (s *LocalStore) serveDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !s.verify(http.MethodGet, key, r.URL.Query()) {
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	}

	data, err := s.Fetch(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			http.Error(w, "object not found", http.StatusNotFound)
			return
		}
		zap.S().Named("blob").Errorw("failed to read object", "key", key, "error", err)
		http.Error(w, "failed to read object", http.StatusInternalServerError)
		return
	}

	if filename := r.URL.Query().Get("filename"); filename != "" {
		w.Header().Set("Content-Disposition", contentDisposition(filename))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *LocalStore) serveUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !s.verify(http.MethodPut, key, r.URL.Query()) {
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLocalUpload))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := s.Store(r.Context(), key, data, r.Header.Get("Content-Type")); err != nil {
		zap.S().Named("blob").Errorw("failed to write object", "key", key, "error", err)
		http.Error(w, "failed to write object", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *LocalStore) presign(method, key string, ttl time.Duration, params url.Values) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if err := validateTTL(ttl); err != nil {
		return "", err
	}
	if _, err := s.path(key); err != nil {
		return "", err
	}

	params.Set("expires", strconv.FormatInt(s.now().Add(ttl).Unix(), 10))
	params.Set("signature", s.sign(method, key, params))

	u := s.baseURL.JoinPath("blobs", key)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (s *LocalStore) verify(method, key string, params url.Values) bool {
	expires, err := strconv.ParseInt(params.Get("expires"), 10, 64)
	if err != nil || s.now().Unix() > expires {
		return false
	}
	got, err := hex.DecodeString(params.Get("signature"))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(s.sign(method, key, params))
	return hmac.Equal(got, want)
}

func (s *LocalStore) sign(method, key string, params url.Values) string {
	mac := hmac.New(sha256.New, s.secret)
	for _, part := range []string{method, key, params.Get("expires"), params.Get("filename"), params.Get("content-type")} {
		mac.Write([]byte(part))
		mac.Write([]byte{'\n'})
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// path maps a key to a file below root, rejecting keys that escape it.
func (s *LocalStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return full, nil
}
