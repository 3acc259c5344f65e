package archive

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlog/internal/config"
)

func TestDirPut(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exports")
	d := NewDir(root)

	loc, err := d.Put(context.Background(), "attendance-report-daily-2024-03-10.csv", "text/csv", []byte("CLASS LOG\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "attendance-report-daily-2024-03-10.csv"), loc)

	raw, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "CLASS LOG\n", string(raw))
}

func TestDirRejectsPaths(t *testing.T) {
	d := NewDir(t.TempDir())
	for _, name := range []string{"", "../escape.csv", "nested/file.csv"} {
		_, err := d.Put(context.Background(), name, "text/csv", nil)
		assert.Error(t, err, name)
	}
}

func TestDirHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDir(t.TempDir()).Put(ctx, "a.csv", "text/csv", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type capturedUpload struct {
	path   string
	fields map[string]string
	file   string
}

func cloudinaryServer(t *testing.T, status int, body string) (*httptest.Server, *capturedUpload) {
	t.Helper()
	var (
		mu  sync.Mutex
		got capturedUpload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got.path = r.URL.Path
		got.fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got.fields[k] = v[0]
		}
		if f, _, err := r.FormFile("file"); assert.NoError(t, err) {
			raw, _ := io.ReadAll(f)
			got.file = string(raw)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestCloudinaryPutRaw(t *testing.T) {
	srv, got := cloudinaryServer(t, http.StatusOK, `{"public_id":"r","secure_url":"https://res.example/raw/r.csv"}`)
	c := NewCloudinary("demo", "key", "secret", "classlog/reports")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	loc, err := c.Put(context.Background(), "report.csv", "text/csv; charset=utf-8", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/raw/r.csv", loc)
	assert.Equal(t, "/demo/raw/upload", got.path)
	assert.Equal(t, "report.csv", got.fields["public_id"])
	assert.Equal(t, "a,b\n", got.file)

	payload := "folder=classlog/reports&public_id=report.csv&timestamp=1700000000secret"
	assert.Equal(t, fmt.Sprintf("%x", sha1.Sum([]byte(payload))), got.fields["signature"])
}

func TestCloudinaryPutImage(t *testing.T) {
	srv, got := cloudinaryServer(t, http.StatusOK, `{"url":"http://res.example/image/report"}`)
	c := NewCloudinary("demo", "key", "secret", "")
	c.BaseURL = srv.URL

	loc, err := c.Put(context.Background(), "report.png", "image/png", []byte{0x89})
	require.NoError(t, err)
	assert.Equal(t, "http://res.example/image/report", loc)
	assert.Equal(t, "/demo/image/upload", got.path)
	assert.Equal(t, "report", got.fields["public_id"])
	_, hasFolder := got.fields["folder"]
	assert.False(t, hasFolder)
}

func TestCloudinaryPutFailure(t *testing.T) {
	srv, _ := cloudinaryServer(t, http.StatusUnauthorized, `{"error":{"message":"bad signature"}}`)
	c := NewCloudinary("demo", "key", "wrong", "")
	c.BaseURL = srv.URL

	_, err := c.Put(context.Background(), "report.csv", "text/csv", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad signature")
}

func TestS3Put(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     string
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewS3(S3Options{Region: "eu-west-1", AccessKey: "a", SecretKey: "b", Bucket: "school", Endpoint: srv.URL})
	require.NoError(t, err)

	loc, err := s.Put(context.Background(), "report.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, "s3://school/reports/report.xlsx", loc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/school/reports/report.xlsx", gotPath)
	assert.Equal(t, "PK", gotBody)
	assert.True(t, strings.HasPrefix(contentType, "application/vnd.openxmlformats"))
}

func TestNew(t *testing.T) {
	a, err := New(config.App{ArchiveBackend: "dir", ExportDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Dir{}, a)

	_, err = New(config.App{ArchiveBackend: "cloudinary"})
	assert.Error(t, err)

	_, err = New(config.App{ArchiveBackend: "s3"})
	assert.Error(t, err)

	_, err = New(config.App{ArchiveBackend: "ftp"})
	assert.Error(t, err)
}
