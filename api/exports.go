package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/garnizeh/taxi/internal/export"
	"github.com/garnizeh/taxi/internal/mailer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter produces request reports.
type Exporter interface {
	Download(ctx context.Context, f export.Filters) (*export.Download, error)
	EmailReport(ctx context.Context, to string, f export.Filters) (*export.EmailResult, error)
}

// MailChecker checks and exercises the mail configuration.
type MailChecker interface {
	SendTest(ctx context.Context, to string) (string, error)
	Verify(ctx context.Context) mailer.VerifyResult
}

// writeMailError maps dispatch failures to responses. Missing credentials and
// rejected credentials are client errors with a remediation hint; anything
// else is reported as a server error under fallback.
func writeMailError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		writeJSON(w, errorResponse{
			Error:      "Email não configurado",
			Message:    "Configure as variáveis EMAIL_USER e EMAIL_PASS no arquivo .env",
			Suggestion: "Para Gmail, você precisa usar uma SENHA DE APLICATIVO. Veja o arquivo .env.example para instruções.",
		}, http.StatusBadRequest)
	case errors.Is(err, mailer.ErrAuthFailed):
		writeJSON(w, errorResponse{
			Error:      "Erro de autenticação de email",
			Message:    err.Error(),
			Suggestion: "Gere uma senha de aplicativo do Gmail e atualize o arquivo .env",
		}, http.StatusBadRequest)
	case errors.Is(err, export.ErrInvalidFilter):
		writeJSON(w, errorResponse{Error: "Filtro inválido", Message: err.Error()}, http.StatusBadRequest)
	default:
		logger.Error(fallback, "err", err)
		writeJSON(w, errorResponse{Error: fallback, Message: err.Error()}, http.StatusInternalServerError)
	}
}

type ExportHandler struct {
	exporter Exporter
}

func NewExportHandler(e Exporter) *ExportHandler {
	return &ExportHandler{exporter: e}
}

type emailExportBody struct {
	Email   string         `json:"email"`
	Filters export.Filters `json:"filters"`
}

// EmailRequests mails the filtered requests as a spreadsheet.
func (h *ExportHandler) EmailRequests(w http.ResponseWriter, r *http.Request) {
	var body emailExportBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if msg := checkEmail(body.Email); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := h.exporter.EmailReport(r.Context(), body.Email, body.Filters)
	if err != nil {
		writeMailError(w, err, "Erro interno do servidor")
		return
	}
	writeJSON(w, res, http.StatusOK)
}

type downloadBody struct {
	Filters export.Filters `json:"filters"`
}

// Download streams the filtered requests as an xlsx attachment.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	var body downloadBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	d, err := h.exporter.Download(r.Context(), body.Filters)
	if err != nil {
		if errors.Is(err, export.ErrInvalidFilter) {
			writeJSON(w, errorResponse{Error: "Filtro inválido", Message: err.Error()}, http.StatusBadRequest)
			return
		}
		writeJSON(w, errorResponse{Error: "Erro interno do servidor", Message: err.Error()}, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(d.Data); err != nil {
		logger.Error("write download", "err", err)
	}
}

type EmailHandler struct {
	mail MailChecker
}

func NewEmailHandler(m MailChecker) *EmailHandler {
	return &EmailHandler{mail: m}
}

// Check reports whether the mail server accepts the configured credentials.
func (h *EmailHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.mail.Verify(r.Context()), http.StatusOK)
}

type testEmailBody struct {
	Email string `json:"email"`
}

func (h *EmailHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var body testEmailBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if msg := checkEmail(body.Email); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := h.mail.SendTest(r.Context(), body.Email)
	if err != nil {
		writeMailError(w, err, "Erro ao enviar email de teste")
		return
	}
	writeJSON(w, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Email de teste enviado com sucesso para %s", body.Email),
		"messageId": id,
	}, http.StatusOK)
}
