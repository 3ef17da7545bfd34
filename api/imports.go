package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/taxi/internal/importer"
	"github.com/garnizeh/taxi/pkg/models"
	"github.com/garnizeh/taxi/pkg/repository"
)

// DefaultMaxUploadBytes caps uploaded import files.
const DefaultMaxUploadBytes int64 = 5 << 20

// multipartOverhead is the room left in the request body for multipart
// boundaries and part headers around the file.
const multipartOverhead int64 = 64 << 10

const passengerItemSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"address": {"type": "string"},
		"neighborhood": {"type": "string"},
		"city": {"type": "string"},
		"phone": {"type": "string"},
		"cost_center": {"type": "string"},
		"shift": {"type": "string"},
		"area": {"type": "string"}
	}
}`

// importBodySchema accepts either a bare array of passengers or an object
// wrapping the array under "passengers".
var importBodySchema = mustSchema(`{
	"anyOf": [
		{"type": "array", "items": ` + passengerItemSchema + `},
		{
			"type": "object",
			"required": ["passengers"],
			"properties": {"passengers": {"type": "array", "items": ` + passengerItemSchema + `}}
		}
	]
}`)

func mustSchema(s string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(s), rs); err != nil {
		panic(fmt.Sprintf("import schema: %v", err))
	}
	return rs
}

type ImportHandler struct {
	repo     repository.PassengerRepo
	maxBytes int64
}

func NewImportHandler(repo repository.PassengerRepo, maxBytes int64) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ImportHandler{repo: repo, maxBytes: maxBytes}
}

type commitSummary struct {
	Total      int `json:"total"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type commitResponse struct {
	Success  bool                     `json:"success"`
	Message  string                   `json:"message"`
	Imported []models.Passenger       `json:"imported"`
	Invalid  []importer.InvalidRecord `json:"invalid"`
	Summary  commitSummary            `json:"summary"`
}

type previewSummary struct {
	Total      int `json:"total"`
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type previewBody struct {
	Valid      []models.Passenger       `json:"valid"`
	Duplicates []models.Passenger       `json:"duplicates"`
	Invalid    []importer.InvalidRecord `json:"invalid"`
	Summary    previewSummary           `json:"summary"`
}

func (h *ImportHandler) classify(ctx context.Context, records []models.Passenger) (importer.Result, error) {
	existing, err := h.repo.ListPassengers(ctx)
	if err != nil {
		return importer.Result{}, err
	}
	return importer.Classify(records, existing), nil
}

// commit stores the unique records and reports what was skipped.
func (h *ImportHandler) commit(w http.ResponseWriter, r *http.Request, records []models.Passenger) {
	res, err := h.classify(r.Context(), records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	imported := []models.Passenger{}
	if len(res.Unique) > 0 {
		if imported, err = h.repo.CreatePassengers(r.Context(), res.Unique); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	logger.Info("passengers imported",
		slog.Int("total", res.Summary.Total),
		slog.Int("imported", len(imported)),
		slog.Int("duplicates", res.Summary.Duplicates),
		slog.Int("invalid", res.Summary.Invalid),
	)
	writeJSON(w, commitResponse{
		Success:  true,
		Message:  fmt.Sprintf("%d passageiros importados com sucesso", len(imported)),
		Imported: imported,
		Invalid:  res.Invalid,
		Summary: commitSummary{
			Total:      res.Summary.Total,
			Imported:   len(imported),
			Duplicates: res.Summary.Duplicates,
			Invalid:    res.Summary.Invalid,
		},
	}, http.StatusOK)
}

// ImportJSON imports passengers posted as JSON.
func (h *ImportHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	keyErrs, err := importBodySchema.ValidateBytes(r.Context(), body)
	if err != nil {
		writeJSON(w, errorResponse{Error: "JSON inválido", Message: err.Error()}, http.StatusBadRequest)
		return
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, strings.TrimSpace(ke.PropertyPath+" "+ke.Message))
		}
		writeJSON(w, errorResponse{
			Error:   "Formato de importação inválido",
			Message: strings.Join(msgs, "; "),
		}, http.StatusBadRequest)
		return
	}

	var records []models.Passenger
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &records)
	} else {
		var wrapped struct {
			Passengers []models.Passenger `json:"passengers"`
		}
		err = json.Unmarshal(trimmed, &wrapped)
		records = wrapped.Passengers
	}
	if err != nil {
		writeJSON(w, errorResponse{Error: "JSON inválido", Message: err.Error()}, http.StatusBadRequest)
		return
	}

	h.commit(w, r, records)
}

func (h *ImportHandler) tooLargeMessage() string {
	if h.maxBytes >= 1<<20 {
		return fmt.Sprintf("Arquivo muito grande. Tamanho máximo: %dMB", h.maxBytes>>20)
	}
	return fmt.Sprintf("Arquivo muito grande. Tamanho máximo: %dKB", h.maxBytes>>10)
}

// upload parses the multipart "file" field. It writes the error response
// itself and returns ok=false when the upload is rejected.
func (h *ImportHandler) upload(w http.ResponseWriter, r *http.Request) ([]models.Passenger, bool) {
	limit := h.maxBytes + multipartOverhead
	if r.ContentLength > limit {
		writeJSON(w, errorResponse{Error: "Arquivo muito grande", Message: h.tooLargeMessage()}, http.StatusRequestEntityTooLarge)
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, errorResponse{Error: "Arquivo muito grande", Message: h.tooLargeMessage()}, http.StatusRequestEntityTooLarge)
			return nil, false
		}
		writeJSON(w, errorResponse{Error: "Nenhum arquivo enviado", Message: err.Error()}, http.StatusBadRequest)
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, errorResponse{Error: "Nenhum arquivo enviado", Message: "Envie o arquivo no campo \"file\""}, http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeJSON(w, errorResponse{Error: "Arquivo muito grande", Message: h.tooLargeMessage()}, http.StatusRequestEntityTooLarge)
		return nil, false
	}
	if !importer.Allowed(header.Filename) {
		writeJSON(w, errorResponse{Error: "Tipo de arquivo não permitido", Message: importer.ErrUnsupportedFormat.Error()}, http.StatusBadRequest)
		return nil, false
	}

	records, err := importer.ParseFile(header.Filename, file)
	if err != nil {
		writeJSON(w, errorResponse{Error: "Erro ao processar arquivo", Message: err.Error()}, http.StatusBadRequest)
		return nil, false
	}
	return records, true
}

// ImportFile imports the unique passengers of an uploaded file.
func (h *ImportHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	records, ok := h.upload(w, r)
	if !ok {
		return
	}
	h.commit(w, r, records)
}

// Preview classifies an uploaded file without storing anything.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	records, ok := h.upload(w, r)
	if !ok {
		return
	}
	res, err := h.classify(r.Context(), records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, map[string]previewBody{"preview": {
		Valid:      res.Unique,
		Duplicates: res.Duplicates,
		Invalid:    res.Invalid,
		Summary: previewSummary{
			Total:      res.Summary.Total,
			Unique:     res.Summary.Unique,
			Duplicates: res.Summary.Duplicates,
			Invalid:    res.Summary.Invalid,
		},
	}}, http.StatusOK)
}
