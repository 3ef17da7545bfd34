package sqlite

import (
	"log/slog"
	"time"

	"github.com/garnizeh/taxi/internal/db"
	"github.com/garnizeh/taxi/pkg/models"
	"github.com/garnizeh/taxi/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
	loc    *time.Location
	clock  func() time.Time
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.PassengerRepo = (*SQLiteRepo)(nil)
var _ repository.RequestRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger, loc: models.Location, clock: time.Now}
}

// WithClock replaces the clock used for created_at values.
func (r *SQLiteRepo) WithClock(clock func() time.Time) *SQLiteRepo {
	r.clock = clock
	return r
}

func (r *SQLiteRepo) now() string {
	return r.clock().In(r.loc).Format(models.TimestampLayout)
}
