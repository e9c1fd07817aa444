package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/camaradigital/frota-api/api/handlers"
	"github.com/camaradigital/frota-api/photos"
)

func TestPhoto_ServeHandlerNotFound(t *testing.T) {
	store, err := photos.NewStore(t.TempDir())
	assert.NoError(t, err)

	p := handlers.Photo{Store: store}

	req, _ := http.NewRequest("GET", "/uploads/missing.jpg", nil)
	req = mux.SetURLVars(req, map[string]string{"filename": "missing.jpg"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.ServeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPhoto_ServeHandlerRejectsTraversal(t *testing.T) {
	store, err := photos.NewStore(t.TempDir())
	assert.NoError(t, err)

	p := handlers.Photo{Store: store}

	req, _ := http.NewRequest("GET", "/uploads/secret", nil)
	req = mux.SetURLVars(req, map[string]string{"filename": "../secret"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.ServeHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPhoto_DownloadHandler(t *testing.T) {
	dir := t.TempDir()
	store, err := photos.NewStore(dir)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "S_1.jpg"), []byte("jpeg-bytes"), 0o644))

	p := handlers.Photo{Store: store}

	req, _ := http.NewRequest("GET", "/download/S_1.jpg", nil)
	req = mux.SetURLVars(req, map[string]string{"filename": "S_1.jpg"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(p.DownloadHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `attachment; filename="S_1.jpg"`)
	assert.Equal(t, "jpeg-bytes", rr.Body.String())
}
