package importing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/billfold/internal/encoding"
	"github.com/MrJamesThe3rd/billfold/internal/http/middleware"
	"github.com/MrJamesThe3rd/billfold/internal/importing"
	"github.com/MrJamesThe3rd/billfold/internal/ocr"
	"github.com/MrJamesThe3rd/billfold/internal/parser"
	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

type Handler struct {
	svc         *importing.Service
	maxFileSize int64
}

func NewHandler(svc *importing.Service, maxFileSize int64) *Handler {
	return &Handler{svc: svc, maxFileSize: maxFileSize}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFiles)
	r.Post("/text", h.importText)
	r.Post("/commit", h.commit)
}

type candidateDTO struct {
	ID                    uuid.UUID          `json:"id"`
	Amount                decimal.Decimal    `json:"amount"`
	Description           string             `json:"description"`
	Date                  time.Time          `json:"date"`
	Type                  string             `json:"type"`
	SuggestedCategory     string             `json:"suggested_category,omitempty"`
	Source                string             `json:"source"`
	IsIntraDuplicate      bool               `json:"is_intra_duplicate"`
	DuplicateOfIndex      *int               `json:"duplicate_of_index,omitempty"`
	IsExistingDuplicate   bool               `json:"is_existing_duplicate"`
	ExistingTransactionID *uuid.UUID         `json:"existing_transaction_id,omitempty"`
	Overlay               *importing.Overlay `json:"overlay"`
	Selected              bool               `json:"selected"`
}

type statsDTO struct {
	Files              int   `json:"files"`
	Candidates         int   `json:"candidates"`
	IntraDuplicates    int   `json:"intra_duplicates"`
	ExistingDuplicates int   `json:"existing_duplicates"`
	DurationMS         int64 `json:"duration_ms"`
}

type reviewResponse struct {
	Candidates    []candidateDTO         `json:"candidates"`
	Files         []importing.FileStatus `json:"files"`
	ExtractedText string                 `json:"extracted_text,omitempty"`
	Stats         statsDTO               `json:"stats"`
}

func toReviewResponse(set *importing.ReviewSet, files int, elapsed time.Duration) reviewResponse {
	resp := reviewResponse{
		Candidates:    make([]candidateDTO, 0, len(set.Candidates)),
		Files:         set.FileStatuses,
		ExtractedText: set.ExtractedText,
		Stats: statsDTO{
			Files:      files,
			Candidates: len(set.Candidates),
			DurationMS: elapsed.Milliseconds(),
		},
	}

	for _, c := range set.Candidates {
		if c.IsIntraDuplicate {
			resp.Stats.IntraDuplicates++
		}

		if c.IsExistingDuplicate {
			resp.Stats.ExistingDuplicates++
		}

		resp.Candidates = append(resp.Candidates, candidateDTO{
			ID:                    c.ID,
			Amount:                c.Amount,
			Description:           c.Description,
			Date:                  c.Date,
			Type:                  string(c.Type),
			SuggestedCategory:     c.SuggestedCategory,
			Source:                c.SourceLabel,
			IsIntraDuplicate:      c.IsIntraDuplicate,
			DuplicateOfIndex:      c.DuplicateOfIndex,
			IsExistingDuplicate:   c.IsExistingDuplicate,
			ExistingTransactionID: c.ExistingTransactionID,
			Overlay:               set.Overlays[c.ID],
			Selected:              set.Selected[c.ID],
		})
	}

	return resp
}

func (h *Handler) importFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeError(w, http.StatusBadRequest, "files field is required")
		return
	}

	var files []importing.File

	for _, header := range r.MultipartForm.File["files"] {
		if header.Size > h.maxFileSize {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large: "+header.Filename)
			return
		}

		data, err := readUpload(header)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read file: "+header.Filename)
			return
		}

		files = append(files, importing.File{Name: header.Filename, Data: data})
	}

	start := time.Now()

	set, err := h.svc.ImportFiles(r.Context(), userID, files)
	if err != nil {
		writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(set, len(files), time.Since(start)))
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

type importTextRequest struct {
	Text string `json:"text"`
}

func (h *Handler) importText(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	text, err := readTextBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()

	set, err := h.svc.ImportText(r.Context(), userID, text)
	if err != nil {
		writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(set, 1, time.Since(start)))
}

// readTextBody accepts either a JSON envelope or a raw text body. Raw
// bodies, typically file uploads pasted straight through, may be in a
// legacy charset and are decoded to UTF-8.
func readTextBody(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req importTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.New("invalid request body")
		}

		return req.Text, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", errors.New("failed to read body")
	}

	text, err := encoding.DecodeString(raw)
	if err != nil {
		return "", errors.New("failed to decode text")
	}

	return text, nil
}

type commitRequest struct {
	Candidates []candidateDTO `json:"candidates"`
}

type commitResponse struct {
	Inserted      int `json:"inserted"`
	Updated       int `json:"updated"`
	FailedUpdates int `json:"failed_updates"`
	Skipped       int `json:"skipped"`
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "candidates field is required")
		return
	}

	set := toReviewSet(req.Candidates)

	result, err := h.svc.Commit(r.Context(), userID, set)
	if err != nil {
		writeImportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commitResponse{
		Inserted:      result.Inserted,
		Updated:       result.Updated,
		FailedUpdates: result.FailedUpdates,
		Skipped:       result.Skipped,
	})
}

// toReviewSet rebuilds the review state the client carried between the
// review and commit calls. The server keeps nothing in between.
func toReviewSet(dtos []candidateDTO) *importing.ReviewSet {
	set := &importing.ReviewSet{
		Candidates: make([]*importing.Candidate, 0, len(dtos)),
		Overlays:   make(map[uuid.UUID]*importing.Overlay, len(dtos)),
		Selected:   make(map[uuid.UUID]bool),
	}

	for _, dto := range dtos {
		c := &importing.Candidate{
			ID: dto.ID,
			ParsedTransaction: parser.ParsedTransaction{
				Amount:            dto.Amount,
				Description:       dto.Description,
				Date:              dto.Date,
				Type:              parser.Type(dto.Type),
				SuggestedCategory: dto.SuggestedCategory,
			},
			SourceLabel:           dto.Source,
			IsIntraDuplicate:      dto.IsIntraDuplicate,
			DuplicateOfIndex:      dto.DuplicateOfIndex,
			IsExistingDuplicate:   dto.IsExistingDuplicate,
			ExistingTransactionID: dto.ExistingTransactionID,
		}

		set.Candidates = append(set.Candidates, c)

		overlay := dto.Overlay
		if overlay == nil {
			overlay = &importing.Overlay{
				Amount: c.Amount,
				Date:   c.Date,
				Type:   transaction.Type(c.Type),
			}
		}

		set.Overlays[c.ID] = overlay

		if dto.Selected {
			set.Selected[c.ID] = true
		}
	}

	return set
}

func writeImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, importing.ErrNoInput),
		errors.Is(err, importing.ErrNothingToSave):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, importing.ErrNoTransactions),
		errors.Is(err, parser.ErrUnparseable),
		errors.Is(err, ocr.ErrNoText):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ocr.ErrTimeout),
		errors.Is(err, parser.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		slog.Error("import failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
