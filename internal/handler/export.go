package handler

import (
	"mime"
	"net/http"
	"strconv"
)

// ExportKarte handles GET /kartes/{id}/export and streams the workbook as
// an attachment. Non-ASCII file names are sent as RFC 2231 filename*.
func (s *Server) ExportKarte(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, err := s.export.Export(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(file.Content)
}
