package webserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
)

// multipart overhead allowed on top of editor.max_upload_bytes
const uploadSlack = 1 << 20

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *WebServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := sess.Intake.Submit(r.Context(), req.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, generationStatus(result.State), result)
}

func (s *WebServer) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	if user, ok := sess.User.Current(r.Context()); ok {
		s.writeJSON(w, http.StatusOK, user)
		return
	}

	user, err := sess.User.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *WebServer) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	s.writeJSON(w, http.StatusOK, s.editor.Load(r.Context(), sess.Store))
}

func (s *WebServer) handleResetDraft(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	if err := s.editor.Reset(r.Context(), sess.Store); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *WebServer) handleAddIngredient(w http.ResponseWriter, r *http.Request) {
	s.handleAdd(w, r, s.editor.AddIngredient)
}

func (s *WebServer) handleAddInstruction(w http.ResponseWriter, r *http.Request) {
	s.handleAdd(w, r, s.editor.AddInstruction)
}

func (s *WebServer) handleAddTag(w http.ResponseWriter, r *http.Request) {
	s.handleAdd(w, r, s.editor.AddTag)
}

type addFunc func(ctx context.Context, store outbound.DraftStaging, text string) (*inbound.EditorOutcome, error)

func (s *WebServer) handleAdd(w http.ResponseWriter, r *http.Request, add addFunc) {
	sess := mustSession(r)

	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := add(r.Context(), sess.Store, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *WebServer) handleEditItem(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	kind, index, err := itemParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.editor.EditItem(r.Context(), sess.Store, inbound.EditItemCommand{
		Kind:  kind,
		Index: index,
		Text:  req.Text,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *WebServer) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	kind, index, err := itemParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.editor.DeleteItem(r.Context(), sess.Store, inbound.DeleteItemCommand{
		Kind:  kind,
		Index: index,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *WebServer) handleUploadCover(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	limit := s.config.Editor.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadSlack)
	if err := r.ParseMultipartForm(limit + uploadSlack); err != nil {
		s.writeError(w, r, apperrors.NewValidationError("invalid upload: "+err.Error()))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, r, apperrors.NewValidationError("image is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.writeError(w, r, apperrors.NewValidationError("failed to read image"))
		return
	}

	outcome, err := s.editor.UploadCoverImage(r.Context(), sess.Store, inbound.UploadCoverImageCommand{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *WebServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	outcome := s.editor.Submit(r.Context(), sess.Store)
	status := http.StatusOK
	if !outcome.Submitted {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, outcome)
}

// Helpers

func mustSession(r *http.Request) *Session {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		panic("webserver: handler mounted outside session middleware")
	}
	return sess
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return apperrors.NewBadRequestError("Invalid JSON body")
	}
	return nil
}

func itemParams(r *http.Request) (draft.ItemKind, int, error) {
	kind, err := draft.ParseItemKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", 0, apperrors.NewValidationError(err.Error())
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return "", 0, apperrors.NewValidationError("index must be an integer")
	}
	return kind, index, nil
}

// generationStatus maps a terminal generation state to a response status
func generationStatus(state inbound.GenerationState) int {
	switch state {
	case inbound.StateComplete:
		return http.StatusOK
	case inbound.StateUnsafeRejected:
		return http.StatusUnprocessableEntity
	case inbound.StateAuthRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func errTooManyRequests() *apperrors.AppError {
	return apperrors.NewAppError(apperrors.CodeTooManyRequests, "Too many generation requests", "")
}

func (s *WebServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *WebServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Wrap(err, "Request failed")
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, status, apperrors.ToErrorResponse(appErr, chimw.GetReqID(r.Context())))
}
