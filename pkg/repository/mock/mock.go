package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/garnizeh/taxi/pkg/models"
)

// Test helpers and mocks
type Mocks struct {
	Passengers *PassengerRepo
	Requests   *RequestRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Passengers: &PassengerRepo{},
		Requests:   &RequestRepo{},
	}
}

// PassengerRepo is an in-memory repository.PassengerRepo. Err, when set, is
// returned by every call.
type PassengerRepo struct {
	mu     sync.Mutex
	Stored []models.Passenger
	nextID int64
	Err    error
}

func (m *PassengerRepo) ListPassengers(ctx context.Context) ([]models.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := append([]models.Passenger(nil), m.Stored...)
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *PassengerRepo) GetPassenger(ctx context.Context, id int64) (*models.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Stored {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *PassengerRepo) add(p models.Passenger) models.Passenger {
	m.nextID++
	p.ID = m.nextID
	if p.Area == "" {
		p.Area = models.DefaultArea
	}
	p.CreatedAt = "2024-01-15 09:00:00"
	m.Stored = append(m.Stored, p)
	return p
}

func (m *PassengerRepo) CreatePassenger(ctx context.Context, p *models.Passenger) (*models.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	created := m.add(*p)
	return &created, nil
}

func (m *PassengerRepo) CreatePassengers(ctx context.Context, ps []models.Passenger) ([]models.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Passenger, 0, len(ps))
	for _, p := range ps {
		out = append(out, m.add(p))
	}
	return out, nil
}

func (m *PassengerRepo) UpdatePassenger(ctx context.Context, p *models.Passenger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.Stored {
		if m.Stored[i].ID == p.ID {
			created := m.Stored[i].CreatedAt
			m.Stored[i] = *p
			m.Stored[i].CreatedAt = created
		}
	}
	return nil
}

func (m *PassengerRepo) DeletePassenger(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for i, p := range m.Stored {
		if p.ID == id {
			m.Stored = append(m.Stored[:i], m.Stored[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// RequestRepo is an in-memory repository.RequestRepo. Listed requests come
// back newest first, without passenger enrichment.
type RequestRepo struct {
	mu     sync.Mutex
	Stored []models.Request
	nextID int64
	Err    error
}

func (m *RequestRepo) ListRequests(ctx context.Context) ([]models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Request, 0, len(m.Stored))
	for i := len(m.Stored) - 1; i >= 0; i-- {
		out = append(out, m.Stored[i])
	}
	return out, nil
}

func (m *RequestRepo) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.Stored {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *RequestRepo) CreateRequest(ctx context.Context, r *models.Request) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextID++
	created := *r
	created.ID = m.nextID
	if created.Status == "" {
		created.Status = models.StatusPending
	}
	created.CreatedAt = "2024-01-15 09:00:00"
	m.Stored = append(m.Stored, created)
	return &created, nil
}

func (m *RequestRepo) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			m.Stored[i].Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (m *RequestRepo) DeleteRequest(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for i, r := range m.Stored {
		if r.ID == id {
			m.Stored = append(m.Stored[:i], m.Stored[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}
