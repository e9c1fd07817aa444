package photos_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"

	"github.com/camaradigital/frota-api/photos"
)

func uploadHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	assert.NoError(t, err)
	_, err = part.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	assert.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File[field][0]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	assert.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveRecompressesToBoundedJPEG(t *testing.T) {
	store, err := photos.NewStore(t.TempDir())
	assert.NoError(t, err)

	fh := uploadHeader(t, "photo", "panorama.png", pngBytes(t, 2048, 512))
	name := store.Save(fh, photos.PrefixDeparture)

	assert.NotEmpty(t, name)
	assert.True(t, strings.HasPrefix(name, "S_"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	saved, err := imaging.Open(filepath.Join(store.Dir, name))
	assert.NoError(t, err)
	assert.LessOrEqual(t, saved.Bounds().Dx(), 1024)
	assert.LessOrEqual(t, saved.Bounds().Dy(), 1024)
}

func TestSaveDegradesToEmptyReference(t *testing.T) {
	store, err := photos.NewStore(t.TempDir())
	assert.NoError(t, err)

	assert.Empty(t, store.Save(nil, photos.PrefixArrival))

	notAnImage := uploadHeader(t, "photo", "doc.pdf", []byte("%PDF-1.4"))
	assert.Empty(t, store.Save(notAnImage, photos.PrefixArrival))

	corrupt := uploadHeader(t, "photo", "broken.jpg", []byte("not image data"))
	assert.Empty(t, store.Save(corrupt, photos.PrefixArrival))

	oversized := uploadHeader(t, "photo", "big.png", pngBytes(t, 8, 8))
	store.MaxBytes = 1
	assert.Empty(t, store.Save(oversized, photos.PrefixIncident))
}

func TestPathRejectsTraversal(t *testing.T) {
	store, err := photos.NewStore(t.TempDir())
	assert.NoError(t, err)

	_, err = store.Path("../secrets.txt")
	assert.Error(t, err)
	_, err = store.Path("")
	assert.Error(t, err)
	_, err = store.Path("missing.jpg")
	assert.Error(t, err)

	fh := uploadHeader(t, "photo", "ok.png", pngBytes(t, 8, 8))
	name := store.Save(fh, photos.PrefixDeparture)
	full, err := store.Path(name)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir, name), full)
}
