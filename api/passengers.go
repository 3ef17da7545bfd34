package api

import (
	"net/http"

	"github.com/garnizeh/taxi/internal/importer"
	"github.com/garnizeh/taxi/pkg/models"
	"github.com/garnizeh/taxi/pkg/repository"
)

type PassengersHandler struct {
	repo repository.PassengerRepo
}

func NewPassengersHandler(repo repository.PassengerRepo) *PassengersHandler {
	return &PassengersHandler{repo: repo}
}

// passengerInput normalizes p in place and returns a user-facing message when
// it cannot be stored.
func passengerInput(p *models.Passenger) string {
	importer.Normalize(p)
	if p.Name == "" {
		return "Nome é obrigatório"
	}
	if !p.Area.Valid() {
		return "Área inválida: " + string(p.Area)
	}
	return ""
}

func (h *PassengersHandler) List(w http.ResponseWriter, r *http.Request) {
	ps, err := h.repo.ListPassengers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ps == nil {
		ps = []models.Passenger{}
	}
	for i := range ps {
		ps[i].CreatedAtFormatted = models.FormatCreatedAt(ps[i].CreatedAt)
	}
	writeJSON(w, ps, http.StatusOK)
}

func (h *PassengersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}
	p, err := h.repo.GetPassenger(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Passageiro não encontrado")
		return
	}
	p.CreatedAtFormatted = models.FormatCreatedAt(p.CreatedAt)
	writeJSON(w, p, http.StatusOK)
}

func (h *PassengersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Passenger
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if msg := passengerInput(&p); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.CreatePassenger(r.Context(), &p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

func (h *PassengersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}
	var p models.Passenger
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if msg := passengerInput(&p); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p.ID = id
	p.CreatedAt = ""
	if err := h.repo.UpdatePassenger(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, p, http.StatusOK)
}

func (h *PassengersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return
	}
	n, err := h.repo.DeletePassenger(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]int64{"deleted": n}, http.StatusOK)
}
