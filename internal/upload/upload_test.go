package upload

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionclaim/claims-engine/internal/config"
)

func testManager(t *testing.T, maxBytes int64) *Manager {
	t.Helper()
	m, err := NewManager(config.UploadsConfig{
		Directory:         t.TempDir(),
		MaxBytes:          maxBytes,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "webp"},
	})
	require.NoError(t, err)
	return m
}

// fileHeader builds a real multipart.FileHeader by round-tripping a form.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	headers := req.MultipartForm.File["image"]
	require.Len(t, headers, 1)
	return headers[0]
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAllowed(t *testing.T) {
	m := testManager(t, 0)

	assert.True(t, m.Allowed("car.jpg"))
	assert.True(t, m.Allowed("CAR.PNG"))
	assert.False(t, m.Allowed("notes.txt"))
	assert.False(t, m.Allowed("archive.tar.gz"))
	assert.False(t, m.Allowed("noextension"))
}

func TestSaveStoresUnderGeneratedName(t *testing.T) {
	m := testManager(t, 0)
	content := pngBytes(t, 4, 4)

	filename, path, err := m.Save(fileHeader(t, "crash photo.png", content))
	require.NoError(t, err)

	assert.NotEqual(t, "crash photo.png", filename)
	assert.Equal(t, ".png", filepath.Ext(filename))
	assert.Equal(t, filepath.Join(m.Dir(), filename), path)

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	m := testManager(t, 0)

	_, _, err := m.Save(fileHeader(t, "report.pdf", []byte("%PDF-")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file type")
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	m := testManager(t, 10)

	_, _, err := m.Save(fileHeader(t, "big.jpg", bytes.Repeat([]byte{0xAB}, 100)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestMetadata(t *testing.T) {
	m := testManager(t, 0)

	_, path, err := m.Save(fileHeader(t, "car.png", pngBytes(t, 8, 6)))
	require.NoError(t, err)

	meta, err := m.Metadata(path)
	require.NoError(t, err)
	assert.Equal(t, 8, meta.Width)
	assert.Equal(t, 6, meta.Height)
	assert.Equal(t, "png", meta.Format)
	assert.Greater(t, meta.FileSizeKB, 0.0)
}

func TestMetadataUndecodableFormat(t *testing.T) {
	m := testManager(t, 0)
	path := filepath.Join(m.Dir(), "opaque.webp")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WEBP"), 0o644))

	meta, err := m.Metadata(path)
	require.NoError(t, err)
	assert.Zero(t, meta.Width)
	assert.Empty(t, meta.Format)
	assert.Greater(t, meta.FileSizeKB, 0.0)
}

func TestMetadataMissingFile(t *testing.T) {
	m := testManager(t, 0)
	_, err := m.Metadata(filepath.Join(m.Dir(), "gone.jpg"))
	require.Error(t, err)
}
