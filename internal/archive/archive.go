package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"classlog/internal/config"
)

// Archive stores finished report exports and returns where they ended up.
type Archive interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// New picks the backend named by ARCHIVE_BACKEND.
func New(cfg config.App) (Archive, error) {
	switch cfg.ArchiveBackend {
	case "", "dir":
		return NewDir(cfg.ExportDir), nil
	case "cloudinary":
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("archive: cloudinary backend needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
		return NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), nil
	case "s3":
		return NewS3(S3Options{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
			Bucket:    cfg.S3Bucket,
		})
	}
	return nil, fmt.Errorf("archive: unknown backend %q", cfg.ArchiveBackend)
}

// Dir writes exports into a local directory.
type Dir struct {
	root string
}

// NewDir creates a directory archive rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Put writes data to root/name, creating the directory when needed.
func (d *Dir) Put(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("archive: invalid file name %q", name)
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("archive: create dir: %w", err)
	}
	path := filepath.Join(d.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("archive: write %s: %w", name, err)
	}
	return path, nil
}
