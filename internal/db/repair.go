package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/taxi/internal/textfix"
)

var legacyTextColumns = []struct {
	table   string
	columns []string
}{
	{"passengers", []string{"name", "address", "neighborhood", "city", "phone", "cost_center", "shift"}},
	{"taxi_requests", []string{"requester", "origin", "destination", "car_number", "cost_center"}},
}

type textCell struct {
	ID    int64          `db:"id"`
	Value sql.NullString `db:"value"`
}

// RepairTextMigration rewrites text stored before input was repaired at the
// API boundary. It only touches rows whose value actually changes.
func RepairTextMigration() DataMigration {
	return DataMigration{
		Version: "0003_repair_text",
		Apply:   repairLegacyText,
	}
}

func repairLegacyText(ctx context.Context, tx *sqlx.Tx) error {
	for _, t := range legacyTextColumns {
		for _, col := range t.columns {
			var cells []textCell
			q := fmt.Sprintf(`SELECT id, %s AS value FROM %s WHERE %s IS NOT NULL`, col, t.table, col)
			if err := tx.SelectContext(ctx, &cells, q); err != nil {
				return fmt.Errorf("read %s.%s: %w", t.table, col, err)
			}

			update := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, t.table, col)
			for _, c := range cells {
				fixed := textfix.LegacyRepair(c.Value.String)
				if fixed == c.Value.String {
					continue
				}
				if _, err := tx.ExecContext(ctx, update, fixed, c.ID); err != nil {
					return fmt.Errorf("repair %s.%s id=%d: %w", t.table, col, c.ID, err)
				}
			}
		}
	}
	return nil
}
