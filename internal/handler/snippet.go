package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/service"
)

// Generic 500 messages, one per operation.
const (
	msgCreateFailed = "Error occurred when saving snippet"
	msgUpdateFailed = "Error occurred when updating snippet"
	msgListFailed   = "Error occurred when fetching snippet"
	msgTagsFailed   = "Error occurred when updating tags"
	msgDeleteFailed = "Error occurred when deleting code snippet"
)

// SnippetHandler exposes the snippet operations over HTTP.
//
// It owns no business rules: every method decodes the request, calls the service,
// and translates the result (or error) into a status code and JSON body.
type SnippetHandler struct {
	service *service.SnippetService
	logger  *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(svc *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		service: svc,
		logger:  logger,
	}
}

// ListResponse wraps the snippet list, as {"codes": [...]}.
type ListResponse struct {
	Codes []model.Snippet `json:"codes"`
}

// updateRequest is the PATCH /code body. Every field but id is optional.
type updateRequest struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /code
// REQUEST BODY: {"code": "cHJpbnQoKQ==", "description": "hello", "language": "python", "tags": ["io"]}
// RESPONSE: 200 with the stored snippet.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if !h.decode(w, r, &in) {
		return
	}

	snippet, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, msgCreateFailed)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleList returns snippets, optionally filtered by tag.
//
// HTTP: GET /code
// QUERY: ?tags=react,hooks → snippets tagged react OR hooks
//
// RESPONSE FORMAT:
//
//	{"codes": [{"_id": "...", "code": "...", ...}, ...]}
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	snippets, err := h.service.List(r.Context(), tags)
	if err != nil {
		writeError(w, err, msgListFailed)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Codes: snippets})
}

// HandleUpdate applies a partial update.
//
// HTTP: PATCH /code
// REQUEST BODY: {"id": "...", "description": "new text"}
// RESPONSE: 201 with the updated snippet.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}

	snippet, err := h.service.Update(r.Context(), service.UpdateInput{
		ID:          req.ID,
		Code:        req.Code,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, err, msgUpdateFailed)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdateTags adds or removes tags.
//
// HTTP: PATCH /tags
// REQUEST BODY: {"id": "...", "tags": ["a", "b"], "operation": "add" | "remove"}
// RESPONSE: 201 with the updated snippet.
func (h *SnippetHandler) HandleUpdateTags(w http.ResponseWriter, r *http.Request) {
	var in service.TagsInput
	if !h.decode(w, r, &in) {
		return
	}

	snippet, err := h.service.UpdateTags(r.Context(), in)
	if err != nil {
		writeError(w, err, msgTagsFailed)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /code?id=...
// RESPONSE: 204 No Content: successful deletion, no body.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err, msgDeleteFailed)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decode reads the JSON body into dst. An empty body decodes as {} so that it
// fails field validation like any other request missing its fields.
// It writes a 400 and returns false when the body is not valid JSON or a
// field has the wrong JSON type ("tags": "x").
func (h *SnippetHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	h.logger.Warn("invalid request JSON",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeError(w, apperror.ValidationFailed("", "Invalid JSON body"), "")
	return false
}
