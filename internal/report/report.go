// Package report lays out taxi requests as a spreadsheet grouped by car and
// renders it as xlsx. The download and the email attachment paths share
// Layout and render, so both produce the same rows for the same input.
package report

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/taxi/internal/textfix"
	"github.com/garnizeh/taxi/pkg/models"
)

const (
	SheetName = "Solicitações de Táxi"

	// NoCarGroup is the group for requests without a car label.
	NoCarGroup = "SEM CARRO DEFINIDO"

	missing = "N/A"
)

// Columns is the fixed column order of every table row.
var Columns = []string{
	"Nome", "Endereço", "Bairro", "Cidade", "Telefone", "Centro de Custo",
	"Turno", "Data", "Horário", "Origem", "Destino",
}

type RowKind int

const (
	RowHeader RowKind = iota
	RowRequester
	RowCar
	RowColumnHeader
	RowData
	RowBlank
	RowGeneratedAt
	RowTotal
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowRequester:
		return "requester"
	case RowCar:
		return "car"
	case RowColumnHeader:
		return "column-header"
	case RowData:
		return "data"
	case RowBlank:
		return "blank"
	case RowGeneratedAt:
		return "generated-at"
	case RowTotal:
		return "total"
	}
	return fmt.Sprintf("RowKind(%d)", int(k))
}

// Row is one sheet row. Merged rows carry a single cell.
type Row struct {
	Kind  RowKind
	Cells []string
}

// Merged reports whether the row spans every column.
func (r Row) Merged() bool {
	switch r.Kind {
	case RowRequester, RowCar, RowGeneratedAt, RowTotal:
		return true
	}
	return false
}

type Builder struct {
	dir    string
	clock  func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

type Option func(*Builder)

// WithClock sets the clock used for the generation timestamp.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

// WithLocation sets where dates and the generation timestamp are rendered.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) { b.loc = loc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New returns a Builder that saves files under dir.
func New(dir string, opts ...Option) *Builder {
	b := &Builder{dir: dir, clock: time.Now, loc: models.Location, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

type group struct {
	label    string
	requests []models.Request
}

// groupByCar partitions requests by exact car label, in first-seen order.
func groupByCar(reqs []models.Request) []group {
	var groups []group
	index := map[string]int{}

	for _, r := range reqs {
		label := r.CarNumber
		if label == "" {
			label = NoCarGroup
		}
		i, ok := index[label]
		if !ok {
			groups = append(groups, group{label: label})
			i = len(groups) - 1
			index[label] = i
		}
		groups[i].requests = append(groups[i].requests, r)
	}
	return groups
}

// Layout returns every row of the report, starting with the main header.
// The footer total counts the input requests, not the rendered rows.
func (b *Builder) Layout(reqs []models.Request) []Row {
	cleaned := make([]models.Request, len(reqs))
	for i, r := range reqs {
		cleaned[i] = repairRequest(r)
	}

	rows := []Row{{Kind: RowHeader, Cells: append([]string(nil), Columns...)}}

	groups := groupByCar(cleaned)
	for gi, g := range groups {
		first := g.requests[0]
		rows = append(rows,
			Row{Kind: RowRequester, Cells: []string{fmt.Sprintf("Solicitante: %s | Data: %s | Horário: %s | %s → %s",
				orNA(first.Requester), b.formatDate(first.Date), orNA(first.Time), orNA(first.Origin), orNA(first.Destination))}},
			Row{Kind: RowCar, Cells: []string{g.label}},
			Row{Kind: RowColumnHeader, Cells: append([]string(nil), Columns...)},
		)

		for _, r := range g.requests {
			rows = append(rows, b.dataRows(r)...)
		}

		if gi < len(groups)-1 {
			rows = append(rows, Row{Kind: RowBlank})
		}
	}

	now := b.clock().In(b.loc)
	rows = append(rows,
		Row{Kind: RowBlank},
		Row{Kind: RowBlank},
		Row{Kind: RowGeneratedAt, Cells: []string{"Relatório gerado em: " + now.Format("02/01/2006, 15:04:05")}},
		Row{Kind: RowTotal, Cells: []string{fmt.Sprintf("Total de solicitações: %d", len(reqs))}},
	)
	return rows
}

func (b *Builder) dataRows(r models.Request) []Row {
	date := b.formatDate(r.Date)

	if len(r.PassengerDetails) == 0 {
		return []Row{{Kind: RowData, Cells: []string{
			orNA(r.Requester), orNA(r.Origin), "", "", "", orNA(r.CostCenter), "",
			date, orNA(r.Time), orNA(r.Origin), orNA(r.Destination),
		}}}
	}

	rows := make([]Row, 0, len(r.PassengerDetails))
	for _, p := range r.PassengerDetails {
		rows = append(rows, Row{Kind: RowData, Cells: []string{
			orNA(p.Name), orNA(p.Address), orNA(p.Neighborhood), orNA(p.City), orNA(p.Phone), orNA(p.CostCenter), orNA(p.Shift),
			date, orNA(r.Time), orNA(r.Origin), orNA(r.Destination),
		}})
	}
	return rows
}

// formatDate renders a stored calendar date as DD/MM/YYYY. Values that do
// not parse are returned unchanged.
func (b *Builder) formatDate(s string) string {
	if s == "" {
		return missing
	}
	t, err := time.ParseInLocation(models.DateLayout, s, b.loc)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}

func orNA(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// repairRequest returns a copy of r with every text field repaired.
func repairRequest(r models.Request) models.Request {
	textfix.RepairAll(&r.Date, &r.Requester, &r.Origin, &r.Destination, &r.Time, &r.CarNumber, &r.CostCenter)

	if r.PassengerDetails != nil {
		details := make([]models.PassengerDetail, len(r.PassengerDetails))
		for i, p := range r.PassengerDetails {
			textfix.RepairAll(&p.Name, &p.Address, &p.Neighborhood, &p.City, &p.Phone, &p.CostCenter, &p.Shift)
			details[i] = p
		}
		r.PassengerDetails = details
	}
	return r
}
