package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/taxi/pkg/models"
)

const passengerColumns = `id, name, COALESCE(address, '') AS address, COALESCE(neighborhood, '') AS neighborhood,
	COALESCE(city, '') AS city, COALESCE(phone, '') AS phone, COALESCE(cost_center, '') AS cost_center,
	COALESCE(shift, '') AS shift, COALESCE(area, 'RCB') AS area, COALESCE(created_at, '') AS created_at`

const insertPassenger = `INSERT INTO passengers (name, address, neighborhood, city, phone, cost_center, shift, area, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *SQLiteRepo) ListPassengers(ctx context.Context) ([]models.Passenger, error) {
	var out []models.Passenger
	if err := r.conn.Select(ctx, &out, `SELECT `+passengerColumns+` FROM passengers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepo) GetPassenger(ctx context.Context, id int64) (*models.Passenger, error) {
	var p models.Passenger
	if err := r.conn.Get(ctx, &p, `SELECT `+passengerColumns+` FROM passengers WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get passenger %d: %w", id, err)
	}
	return &p, nil
}

// CreatePassenger stores p and returns a copy carrying the new id and created_at.
func (r *SQLiteRepo) CreatePassenger(ctx context.Context, p *models.Passenger) (*models.Passenger, error) {
	if p == nil {
		return nil, fmt.Errorf("passenger is nil")
	}

	created := *p
	if created.Area == "" {
		created.Area = models.DefaultArea
	}
	created.CreatedAt = r.now()

	res, err := r.conn.Exec(ctx, insertPassenger, created.Name, created.Address, created.Neighborhood, created.City,
		created.Phone, created.CostCenter, created.Shift, created.Area, created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create passenger: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	created.ID = id
	return &created, nil
}

// CreatePassengers inserts all passengers in one transaction; either every
// row is stored or none is.
func (r *SQLiteRepo) CreatePassengers(ctx context.Context, ps []models.Passenger) ([]models.Passenger, error) {
	out := make([]models.Passenger, 0, len(ps))
	createdAt := r.now()

	err := r.conn.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, insertPassenger)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range ps {
			if p.Area == "" {
				p.Area = models.DefaultArea
			}
			p.CreatedAt = createdAt

			res, err := stmt.ExecContext(ctx, p.Name, p.Address, p.Neighborhood, p.City, p.Phone, p.CostCenter, p.Shift, p.Area, p.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert passenger %q: %w", p.Name, err)
			}
			if p.ID, err = res.LastInsertId(); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create passengers: %w", err)
	}

	r.logger.Info("passengers created", "count", len(out))
	return out, nil
}

func (r *SQLiteRepo) UpdatePassenger(ctx context.Context, p *models.Passenger) error {
	if p == nil {
		return fmt.Errorf("passenger is nil")
	}
	if p.Area == "" {
		p.Area = models.DefaultArea
	}

	_, err := r.conn.Exec(ctx, `UPDATE passengers SET name = ?, address = ?, neighborhood = ?, city = ?, phone = ?, cost_center = ?, shift = ?, area = ? WHERE id = ?`,
		p.Name, p.Address, p.Neighborhood, p.City, p.Phone, p.CostCenter, p.Shift, p.Area, p.ID)
	if err != nil {
		return fmt.Errorf("update passenger %d: %w", p.ID, err)
	}
	return nil
}

// DeletePassenger removes the row and returns how many rows were deleted.
// Links from requests are left in place.
func (r *SQLiteRepo) DeletePassenger(ctx context.Context, id int64) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM passengers WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete passenger %d: %w", id, err)
	}
	return res.RowsAffected()
}
