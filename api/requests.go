package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/garnizeh/taxi/internal/textfix"
	"github.com/garnizeh/taxi/pkg/models"
	"github.com/garnizeh/taxi/pkg/repository"
)

// MaxPassengersPerRequest is how many passengers fit in one car.
const MaxPassengersPerRequest = 4

type RequestsHandler struct {
	repo repository.RequestRepo
}

func NewRequestsHandler(repo repository.RequestRepo) *RequestsHandler {
	return &RequestsHandler{repo: repo}
}

func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.repo.ListRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reqs == nil {
		reqs = []models.Request{}
	}
	for i := range reqs {
		reqs[i].CreatedAtFormatted = models.FormatCreatedAt(reqs[i].CreatedAt)
	}
	writeJSON(w, reqs, http.StatusOK)
}

// requestInput trims and repairs req in place and returns a user-facing
// message when it cannot be stored.
func requestInput(req *models.Request) string {
	fields := []*string{&req.Date, &req.Requester, &req.Origin, &req.Destination, &req.Time, &req.CarNumber, &req.CostCenter}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
	textfix.RepairAll(fields...)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"date", req.Date}, {"requester", req.Requester}, {"origin", req.Origin},
		{"destination", req.Destination}, {"time", req.Time},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "Campos obrigatórios ausentes: " + strings.Join(missing, ", ")
	}
	if _, err := time.Parse(models.DateLayout, req.Date); err != nil {
		return "Data inválida, use o formato AAAA-MM-DD"
	}
	if len(req.PassengerIDs) > MaxPassengersPerRequest {
		return fmt.Sprintf("Máximo de %d passageiros por solicitação", MaxPassengersPerRequest)
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !req.Status.Valid() {
		return "Status inválido"
	}
	return ""
}

func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if msg := requestInput(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	req.ID = 0
	req.Passengers = nil
	req.PassengerDetails = nil

	created, err := h.repo.CreateRequest(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if created.PassengerIDs == nil {
		created.PassengerIDs = []int64{}
	}
	writeJSON(w, created, http.StatusCreated)
}

type statusBody struct {
	Status models.RequestStatus `json:"status"`
}

// UpdateStatus sets any of the known statuses regardless of the current one;
// cancelled requests can be reopened.
func (h *RequestsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}
	var body statusBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if !body.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Status inválido")
		return
	}

	if _, err := h.repo.UpdateRequestStatus(r.Context(), id, body.Status); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"id": id, "status": body.Status}, http.StatusOK)
}

func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}
	n, err := h.repo.DeleteRequest(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]int64{"deleted": n}, http.StatusOK)
}
