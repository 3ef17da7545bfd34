package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/taxi/pkg/models"
)

// requestPassengerRow is one (request, linked passenger) pair of the enriched
// read. Requests without links produce a single row with a NULL linked_id.
type requestPassengerRow struct {
	ID          int64                `db:"id"`
	Date        string               `db:"date"`
	Requester   string               `db:"requester"`
	Origin      string               `db:"origin"`
	Destination string               `db:"destination"`
	Time        string               `db:"time"`
	CarNumber   string               `db:"car_number"`
	CostCenter  string               `db:"cost_center"`
	Status      models.RequestStatus `db:"status"`
	CreatedAt   string               `db:"created_at"`

	LinkedID     sql.NullInt64  `db:"linked_id"`
	Name         sql.NullString `db:"p_name"`
	Address      sql.NullString `db:"p_address"`
	Neighborhood sql.NullString `db:"p_neighborhood"`
	City         sql.NullString `db:"p_city"`
	Phone        sql.NullString `db:"p_phone"`
	PCostCenter  sql.NullString `db:"p_cost_center"`
	Shift        sql.NullString `db:"p_shift"`
}

const enrichedRequestQuery = `SELECT tr.id, tr.date, tr.requester, tr.origin, tr.destination, tr.time,
	COALESCE(tr.car_number, '') AS car_number, COALESCE(tr.cost_center, '') AS cost_center,
	COALESCE(tr.status, 'pending') AS status, COALESCE(tr.created_at, '') AS created_at,
	rp.passenger_id AS linked_id, p.name AS p_name, p.address AS p_address, p.neighborhood AS p_neighborhood,
	p.city AS p_city, p.phone AS p_phone, p.cost_center AS p_cost_center, p.shift AS p_shift
FROM taxi_requests tr
LEFT JOIN request_passengers rp ON rp.request_id = tr.id
LEFT JOIN passengers p ON p.id = rp.passenger_id
%s
ORDER BY tr.created_at DESC, tr.id DESC, rp.id ASC`

// ListRequests returns every request, newest first, each carrying the
// passengers linked to it. A link to a deleted passenger yields a detail with
// only the id set.
func (r *SQLiteRepo) ListRequests(ctx context.Context) ([]models.Request, error) {
	var rows []requestPassengerRow
	if err := r.conn.Select(ctx, &rows, fmt.Sprintf(enrichedRequestQuery, "")); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return groupRequestRows(rows), nil
}

func (r *SQLiteRepo) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	var rows []requestPassengerRow
	if err := r.conn.Select(ctx, &rows, fmt.Sprintf(enrichedRequestQuery, "WHERE tr.id = ?"), id); err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	reqs := groupRequestRows(rows)
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// groupRequestRows folds consecutive rows of the same request into one
// enriched request. The query orders rows so a request's rows are adjacent.
func groupRequestRows(rows []requestPassengerRow) []models.Request {
	out := make([]models.Request, 0, len(rows))
	index := make(map[int64]int, len(rows))

	for _, row := range rows {
		i, seen := index[row.ID]
		if !seen {
			out = append(out, models.Request{
				ID:               row.ID,
				Date:             row.Date,
				Requester:        row.Requester,
				Origin:           row.Origin,
				Destination:      row.Destination,
				Time:             row.Time,
				CarNumber:        row.CarNumber,
				CostCenter:       row.CostCenter,
				Status:           row.Status,
				CreatedAt:        row.CreatedAt,
				Passengers:       []string{},
				PassengerIDs:     []int64{},
				PassengerDetails: []models.PassengerDetail{},
			})
			i = len(out) - 1
			index[row.ID] = i
		}

		if !row.LinkedID.Valid {
			continue
		}

		req := &out[i]
		req.Passengers = append(req.Passengers, row.Name.String)
		req.PassengerIDs = append(req.PassengerIDs, row.LinkedID.Int64)
		req.PassengerDetails = append(req.PassengerDetails, models.PassengerDetail{
			ID:           row.LinkedID.Int64,
			Name:         row.Name.String,
			Address:      row.Address.String,
			Neighborhood: row.Neighborhood.String,
			City:         row.City.String,
			Phone:        row.Phone.String,
			CostCenter:   row.PCostCenter.String,
			Shift:        row.Shift.String,
		})
	}

	return out
}

// CreateRequest stores the request and its passenger links atomically.
func (r *SQLiteRepo) CreateRequest(ctx context.Context, req *models.Request) (*models.Request, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	created := *req
	if created.Status == "" {
		created.Status = models.StatusPending
	}
	created.CreatedAt = r.now()

	err := r.conn.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO taxi_requests (date, requester, origin, destination, time, car_number, cost_center, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			created.Date, created.Requester, created.Origin, created.Destination, created.Time, created.CarNumber, created.CostCenter, created.Status, created.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		if created.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, pid := range created.PassengerIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO request_passengers (request_id, passenger_id) VALUES (?, ?)`, created.ID, pid); err != nil {
				return fmt.Errorf("link passenger %d: %w", pid, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return &created, nil
}

// UpdateRequestStatus sets the status and returns how many rows changed.
func (r *SQLiteRepo) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatus) (int64, error) {
	res, err := r.conn.Exec(ctx, `UPDATE taxi_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return 0, fmt.Errorf("update request %d status: %w", id, err)
	}
	return res.RowsAffected()
}

// DeleteRequest removes the request's links and then the request itself in a
// single transaction. It returns the number of request rows deleted.
func (r *SQLiteRepo) DeleteRequest(ctx context.Context, id int64) (int64, error) {
	var deleted int64
	err := r.conn.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM request_passengers WHERE request_id = ?`, id); err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM taxi_requests WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete request row: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete request %d: %w", id, err)
	}
	return deleted, nil
}
