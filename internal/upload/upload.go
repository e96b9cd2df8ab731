// Package upload stores incoming claim images and extracts basic metadata.
package upload

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/visionclaim/claims-engine/internal/config"
)

// ImageMetadata describes a stored upload. Width, height and format are
// best-effort: undecodable formats leave them zero.
type ImageMetadata struct {
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Format     string  `json:"format,omitempty"`
	FileSizeKB float64 `json:"file_size_kb"`
}

// Manager validates and stores uploaded images.
type Manager struct {
	dir      string
	maxBytes int64
	allowed  map[string]bool
}

// NewManager creates the upload directory if needed and returns a manager.
func NewManager(cfg config.UploadsConfig) (*Manager, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &Manager{dir: cfg.Directory, maxBytes: cfg.MaxBytes, allowed: allowed}, nil
}

// Dir returns the upload directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Allowed reports whether a filename has a permitted extension.
func (m *Manager) Allowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext != "" && m.allowed[ext]
}

// Save validates and stores one multipart file under a generated name,
// returning the stored filename and its absolute path.
func (m *Manager) Save(fileHeader *multipart.FileHeader) (string, string, error) {
	if !m.Allowed(fileHeader.Filename) {
		return "", "", fmt.Errorf("invalid file type %q", filepath.Ext(fileHeader.Filename))
	}
	if m.maxBytes > 0 && fileHeader.Size > m.maxBytes {
		return "", "", fmt.Errorf("file exceeds maximum size of %d bytes", m.maxBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
	filename := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	path := filepath.Join(m.dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("failed to store upload: %w", err)
	}

	return filename, path, nil
}

// Metadata reads image metadata for a stored file. Dimension decoding is
// best-effort; the file size is always reported.
func (m *Manager) Metadata(path string) (*ImageMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat upload: %w", err)
	}

	meta := &ImageMetadata{
		FileSizeKB: math.Round(float64(info.Size())/1024*100) / 100,
	}

	f, err := os.Open(path)
	if err != nil {
		return meta, nil
	}
	defer f.Close()

	if cfg, format, err := image.DecodeConfig(f); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
		meta.Format = format
	}

	return meta, nil
}
