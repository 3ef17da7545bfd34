package repository

import (
	"context"

	"github.com/garnizeh/taxi/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

type PassengerRepo interface {
	ListPassengers(ctx context.Context) ([]models.Passenger, error)
	GetPassenger(ctx context.Context, id int64) (*models.Passenger, error)
	CreatePassenger(ctx context.Context, p *models.Passenger) (*models.Passenger, error)
	CreatePassengers(ctx context.Context, ps []models.Passenger) ([]models.Passenger, error)
	UpdatePassenger(ctx context.Context, p *models.Passenger) error
	DeletePassenger(ctx context.Context, id int64) (int64, error)
}

type RequestRepo interface {
	ListRequests(ctx context.Context) ([]models.Request, error)
	GetRequest(ctx context.Context, id int64) (*models.Request, error)
	CreateRequest(ctx context.Context, r *models.Request) (*models.Request, error)
	UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) (int64, error)
	DeleteRequest(ctx context.Context, id int64) (int64, error)
}
