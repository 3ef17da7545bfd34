package models

// Domain models matching the database schema in db/migrations/0001_init.sql

// Area is the organizational unit a passenger belongs to.
type Area string

const (
	AreaProduction Area = "Produção"
	AreaWarehouse  Area = "Warehouse"
	AreaRCB        Area = "RCB"
	AreaSAR        Area = "SAR"

	DefaultArea = AreaRCB
)

// Areas lists every valid area, in display order.
var Areas = []Area{AreaProduction, AreaWarehouse, AreaRCB, AreaSAR}

// Valid reports whether a is one of the known areas.
func (a Area) Valid() bool {
	for _, v := range Areas {
		if a == v {
			return true
		}
	}
	return false
}

// RequestStatus is the lifecycle state of a ride request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Label returns the status as shown to end users.
func (s RequestStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pendente"
	case StatusCompleted:
		return "Concluída"
	case StatusCancelled:
		return "Cancelada"
	}
	return string(s)
}

type Passenger struct {
	ID                 int64  `json:"id" db:"id"`
	Name               string `json:"name" db:"name" validate:"required"`
	Address            string `json:"address" db:"address"`
	Neighborhood       string `json:"neighborhood" db:"neighborhood"`
	City               string `json:"city" db:"city"`
	Phone              string `json:"phone" db:"phone"`
	CostCenter         string `json:"cost_center" db:"cost_center"`
	Shift              string `json:"shift" db:"shift"`
	Area               Area   `json:"area" db:"area"`
	CreatedAt          string `json:"created_at,omitempty" db:"created_at"`
	CreatedAtFormatted string `json:"created_at_formatted,omitempty" db:"-"`
}

// PassengerDetail is the subset of a passenger carried by an enriched request.
type PassengerDetail struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Phone        string `json:"phone"`
	CostCenter   string `json:"cost_center"`
	Shift        string `json:"shift"`
}

// Request is a taxi request. PassengerIDs is the input side of the link
// table; the enriched read fills Passengers, PassengerIDs and PassengerDetails.
type Request struct {
	ID                 int64             `json:"id" db:"id"`
	Date               string            `json:"date" db:"date" validate:"required"`
	Requester          string            `json:"requester" db:"requester" validate:"required"`
	Origin             string            `json:"origin" db:"origin" validate:"required"`
	Destination        string            `json:"destination" db:"destination" validate:"required"`
	Time               string            `json:"time" db:"time" validate:"required"`
	CarNumber          string            `json:"car_number" db:"car_number"`
	CostCenter         string            `json:"cost_center" db:"cost_center"`
	Status             RequestStatus     `json:"status" db:"status"`
	CreatedAt          string            `json:"created_at,omitempty" db:"created_at"`
	CreatedAtFormatted string            `json:"created_at_formatted,omitempty" db:"-"`
	Passengers         []string          `json:"passengers" db:"-"`
	PassengerIDs       []int64           `json:"passengerIds" db:"-"`
	PassengerDetails   []PassengerDetail `json:"passengersDetails" db:"-"`
}
