package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/grid"
)

const karteNotFound = "karte not found"

// KarteRequest is the body of POST /kartes and PUT /kartes/{id}. Derived
// blocks (summary, karte_info) and last_updated may be present in the body
// but are recomputed by the server.
type KarteRequest struct {
	Basic    domain.BasicInfo         `json:"basic"`
	Payments []domain.Payment         `json:"payments"`
	Expenses []domain.Expense         `json:"expenses"`
	Comments []domain.Comment         `json:"comments"`
	Memo     string                   `json:"memo"`
	Editors  map[string]domain.Editor `json:"current_editors"`
}

// EditorsRequest is the body of PUT /kartes/{id}/editors.
type EditorsRequest struct {
	Editors map[string]domain.Editor `json:"current_editors"`
}

// KarteList is the body of GET /kartes.
type KarteList struct {
	Data []domain.KarteListItem `json:"data"`
}

// ListParams are the query parameters of GET /kartes.
type ListParams struct {
	Limit *int    `form:"limit" json:"limit,omitempty"`
	Q     *string `form:"q" json:"q,omitempty"`
}

// ListKartes handles GET /kartes.
// Supports ?limit= (default 50, max 100) and ?q=, a case-insensitive search
// over the list columns of that window.
func (s *Server) ListKartes(w http.ResponseWriter, r *http.Request) {
	var params ListParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		requestError(w, "invalid limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &params.Q); err != nil {
		requestError(w, "invalid q: "+err.Error())
		return
	}

	items, err := s.kartes.ListRecent(r.Context(), domain.NewListQuery(params.Limit, params.Q))
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	writeJSON(w, http.StatusOK, KarteList{Data: items})
}

// CreateKarte handles POST /kartes.
func (s *Server) CreateKarte(w http.ResponseWriter, r *http.Request) {
	var body KarteRequest
	if err := decodeBody(r, &body); err != nil {
		s.bodyError(w, r, err)
		return
	}

	created, err := s.kartes.Create(r.Context(), body.toKarte(uuid.Nil))
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	s.rec.Write("create")
	writeJSON(w, http.StatusCreated, created)
}

// ImportKarte handles POST /kartes/import. The body is a grid document
// from the spreadsheet-style editor.
func (s *Server) ImportKarte(w http.ResponseWriter, r *http.Request) {
	var doc grid.LegacyDocument
	if err := decodeBody(r, &doc); err != nil {
		s.bodyError(w, r, err)
		return
	}

	created, err := s.kartes.ImportLegacy(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	s.rec.Write("import")
	writeJSON(w, http.StatusCreated, created)
}

// GetKarte handles GET /kartes/{id}.
func (s *Server) GetKarte(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	k, err := s.kartes.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// UpdateKarte handles PUT /kartes/{id}. The whole record is overwritten.
func (s *Server) UpdateKarte(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body KarteRequest
	if err := decodeBody(r, &body); err != nil {
		s.bodyError(w, r, err)
		return
	}

	saved, err := s.kartes.Save(r.Context(), body.toKarte(id))
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	s.rec.Write("save")
	writeJSON(w, http.StatusOK, saved)
}

// UpdateEditors handles PUT /kartes/{id}/editors.
func (s *Server) UpdateEditors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body EditorsRequest
	if err := decodeBody(r, &body); err != nil {
		s.bodyError(w, r, err)
		return
	}

	k, err := s.kartes.SetEditors(r.Context(), id, body.Editors)
	if err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	s.rec.Write("editors")
	writeJSON(w, http.StatusOK, k)
}

// DeleteKarte handles DELETE /kartes/{id}.
func (s *Server) DeleteKarte(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.kartes.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, karteNotFound)
		return
	}
	s.rec.Write("delete")
	w.WriteHeader(http.StatusNoContent)
}

// --- request helpers --------------------------------------------------------

// pathID binds the {id} path parameter. On failure it writes a 422 and
// returns ok=false.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		requestError(w, "invalid id: "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

var errNoBody = errors.New("request body is required")

// decodeBody decodes the JSON body of r into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errNoBody
	}
	// ReadAll keeps *http.MaxBytesError intact for bodyError.
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errNoBody
	}
	return json.Unmarshal(b, dst)
}

// bodyError reports a body that could not be decoded. An oversized body is
// a 413; anything else is a 422.
func (s *Server) bodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, r, err, "")
		return
	}
	if errors.Is(err, errNoBody) {
		requestError(w, err.Error())
		return
	}
	requestError(w, "malformed request body: "+err.Error())
}

// toKarte builds the domain record for a create (id == uuid.Nil) or a full
// overwrite of id.
func (b KarteRequest) toKarte(id uuid.UUID) domain.Karte {
	return domain.Karte{
		ID:       id,
		Basic:    b.Basic,
		Payments: b.Payments,
		Expenses: b.Expenses,
		Comments: b.Comments,
		Memo:     b.Memo,
		Editors:  b.Editors,
	}
}
