package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/camaradigital/frota-api/config"
	"github.com/camaradigital/frota-api/photos"
)

// Photo exported for testing purposes
type Photo struct {
	Store *photos.Store
}

// ServeHandler serves a stored photo inline
func (p Photo) ServeHandler(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, "inline")
}

// DownloadHandler serves a stored photo as an attachment
func (p Photo) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, "attachment")
}

func (p Photo) serve(w http.ResponseWriter, r *http.Request, disposition string) {
	filename := mux.Vars(r)["filename"]

	full, err := p.Store.Path(filename)
	if err != nil {
		config.ErrorStatus("photo not found", http.StatusNotFound, w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	http.ServeFile(w, r, full)
}
