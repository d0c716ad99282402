// Package api exposes the content ledger over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

// ContentRequest is the request body for creating or forking content
type ContentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MetadataURI string `json:"metadata_uri"`
}

// ShareRequest is one contribution share in a merge request
type ShareRequest struct {
	Holder     string `json:"holder"`
	Percentage uint8  `json:"percentage"`
}

// MergeRequest is the request body for merging content
type MergeRequest struct {
	ContentRequest
	Shares []ShareRequest `json:"shares"`
}

// KeyResponse is returned by create and fork
type KeyResponse struct {
	Key string `json:"key"`
}

// ShareResponse is one contribution share of an entry
type ShareResponse struct {
	Holder     string `json:"holder"`
	Percentage uint8  `json:"percentage"`
}

// EntryResponse is the response body for a ledger entry
type EntryResponse struct {
	Key         string          `json:"key"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	MetadataURI string          `json:"metadata_uri"`
	Version     uint32          `json:"version"`
	ForkedFrom  string          `json:"forked_from,omitempty"`
	Shares      []ShareResponse `json:"shares"`
}

// KeysResponse lists related keys
type KeysResponse struct {
	Keys []string `json:"keys"`
}

// ContentHandler handles HTTP requests for ledger content
type ContentHandler struct {
	service contentledger.Service
	auth    *jwtauth.JWTAuth
}

// NewContentHandler creates a new content handler. Mutating routes verify
// bearer tokens with auth.
func NewContentHandler(service contentledger.Service, auth *jwtauth.JWTAuth) *ContentHandler {
	return &ContentHandler{
		service: service,
		auth:    auth,
	}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{key}", h.GetContent)
	r.Get("/{key}/forks", h.ListForks)
	r.Get("/{key}/lineage", h.GetLineage)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.auth))
		r.Use(RequireCaller)

		r.Post("/", h.CreateContent)
		r.Post("/{key}/forks", h.ForkContent)
		r.Put("/{key}", h.MergeContent)
	})

	return r
}

// CreateContent registers new content owned by the caller
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", contentledger.ErrInvalidRequest, err))
		return
	}

	key, err := h.service.Create(r.Context(), CallerFromContext(r.Context()), contentledger.CreateContentRequest{
		Title:       req.Title,
		Description: req.Description,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, KeyResponse{Key: key.String()})
}

// ForkContent derives new content from the content at {key}
func (h *ContentHandler) ForkContent(w http.ResponseWriter, r *http.Request) {
	source, ok := keyParam(w, r)
	if !ok {
		return
	}

	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", contentledger.ErrInvalidRequest, err))
		return
	}

	key, err := h.service.Fork(r.Context(), CallerFromContext(r.Context()), contentledger.ForkContentRequest{
		SourceKey:   source,
		Title:       req.Title,
		Description: req.Description,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, KeyResponse{Key: key.String()})
}

// MergeContent updates the content at {key} and replaces its contribution split
func (h *ContentHandler) MergeContent(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", contentledger.ErrInvalidRequest, err))
		return
	}

	shares := make([]contentledger.ContributionShare, len(req.Shares))
	for i, share := range req.Shares {
		shares[i] = contentledger.ContributionShare{
			Holder:     contentledger.AccountID(share.Holder),
			Percentage: share.Percentage,
		}
	}

	err := h.service.Merge(r.Context(), CallerFromContext(r.Context()), contentledger.MergeContentRequest{
		Key:         key,
		Title:       req.Title,
		Description: req.Description,
		MetadataURI: req.MetadataURI,
		Shares:      shares,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.service.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toEntryResponse(entry))
}

// GetContent returns the entry at {key}
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toEntryResponse(entry))
}

// ListForks returns the keys of direct forks of {key}
func (h *ContentHandler) ListForks(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	forks, err := h.service.ListForks(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toKeysResponse(forks))
}

// GetLineage returns {key} followed by its fork ancestors
func (h *ContentHandler) GetLineage(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	lineage, err := h.service.Lineage(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toKeysResponse(lineage))
}

func keyParam(w http.ResponseWriter, r *http.Request) (contentledger.Key, bool) {
	key, err := contentledger.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return contentledger.Key{}, false
	}
	return key, true
}

func toEntryResponse(entry *contentledger.Entry) EntryResponse {
	resp := EntryResponse{
		Key:         entry.Key.String(),
		Title:       entry.Record.Title,
		Description: entry.Record.Description,
		MetadataURI: entry.Record.MetadataURI,
		Version:     entry.Record.Version,
		Shares:      make([]ShareResponse, len(entry.Shares)),
	}
	if entry.Record.ForkedFrom != nil {
		resp.ForkedFrom = entry.Record.ForkedFrom.String()
	}
	for i, share := range entry.Shares {
		resp.Shares[i] = ShareResponse{Holder: string(share.Holder), Percentage: share.Percentage}
	}
	return resp
}

func toKeysResponse(keys []contentledger.Key) KeysResponse {
	resp := KeysResponse{Keys: make([]string, len(keys))}
	for i, key := range keys {
		resp.Keys[i] = key.String()
	}
	return resp
}
