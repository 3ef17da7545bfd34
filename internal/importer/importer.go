// Package importer turns uploaded passenger spreadsheets into passenger
// records and classifies them for import. It never writes to storage; callers
// decide what to do with the unique records.
package importer

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/garnizeh/taxi/internal/textfix"
	"github.com/garnizeh/taxi/pkg/models"
)

var (
	// ErrUnsupportedFormat is returned for files that are not CSV, XLS or XLSX.
	ErrUnsupportedFormat = errors.New("formato de arquivo não suportado. Use CSV, XLS ou XLSX")
	// ErrEmptyFile is returned when a file has no data rows after the header.
	ErrEmptyFile = errors.New("arquivo deve ter pelo menos 2 linhas (cabeçalho + dados)")
)

// headerFields maps lower-cased header names to passenger fields.
var headerFields = map[string]string{
	"nome":            "name",
	"name":            "name",
	"endereco":        "address",
	"endereço":        "address",
	"address":         "address",
	"bairro":          "neighborhood",
	"neighborhood":    "neighborhood",
	"cidade":          "city",
	"city":            "city",
	"telefone":        "phone",
	"phone":           "phone",
	"centro_custo":    "cost_center",
	"centro de custo": "cost_center",
	"cost_center":     "cost_center",
	"turno":           "shift",
	"shift":           "shift",
	"area":            "area",
	"área":            "area",
}

var areaSynonyms = map[string]models.Area{
	"producao":   models.AreaProduction,
	"produção":   models.AreaProduction,
	"production": models.AreaProduction,
	"warehouse":  models.AreaWarehouse,
	"armazem":    models.AreaWarehouse,
	"armazém":    models.AreaWarehouse,
	"rcb":        models.AreaRCB,
	"sar":        models.AreaSAR,
}

// NormalizeArea resolves an area name or one of its synonyms to the canonical
// tag. The second result is false when the value is not recognized.
func NormalizeArea(s string) (models.Area, bool) {
	if a := models.Area(s); a.Valid() {
		return a, true
	}
	a, ok := areaSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return a, ok
}

// NormalizeHeaders lower-cases and trims header cells so they can be looked
// up in the header dictionary.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return out
}

// MapColumns builds a passenger from one data row. headers must already be
// normalized. Unknown headers are ignored; a missing or unrecognized area
// falls back to the default area.
func MapColumns(headers, cols []string) models.Passenger {
	p := models.Passenger{Area: models.DefaultArea}

	for i, h := range headers {
		field, ok := headerFields[h]
		if !ok || i >= len(cols) {
			continue
		}
		v := strings.TrimSpace(cols[i])
		switch field {
		case "name":
			p.Name = v
		case "address":
			p.Address = v
		case "neighborhood":
			p.Neighborhood = v
		case "city":
			p.City = v
		case "phone":
			p.Phone = v
		case "cost_center":
			p.CostCenter = v
		case "shift":
			p.Shift = v
		case "area":
			p.Area = models.Area(v)
		}
	}

	if a, ok := NormalizeArea(string(p.Area)); ok {
		p.Area = a
	} else {
		p.Area = models.DefaultArea
	}
	return p
}

// Normalize trims and repairs the text fields of p and resolves area
// synonyms. An empty area becomes the default; an unrecognized one is kept
// so Validate can report it.
func Normalize(p *models.Passenger) {
	fields := []*string{&p.Name, &p.Address, &p.Neighborhood, &p.City, &p.Phone, &p.CostCenter, &p.Shift}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
	textfix.RepairAll(fields...)

	switch a, ok := NormalizeArea(string(p.Area)); {
	case strings.TrimSpace(string(p.Area)) == "":
		p.Area = models.DefaultArea
	case ok:
		p.Area = a
	}
}

// Validate returns the problems found in p, or nil if it can be imported.
func Validate(p models.Passenger) []string {
	var errs []string

	if utf8.RuneCountInString(strings.TrimSpace(p.Name)) < 2 {
		errs = append(errs, "Nome é obrigatório e deve ter pelo menos 2 caracteres")
	}

	if p.Area != "" {
		if _, ok := NormalizeArea(string(p.Area)); !ok {
			errs = append(errs, "Área deve ser uma das seguintes: "+areaList())
		}
	}

	return errs
}

func areaList() string {
	names := make([]string, len(models.Areas))
	for i, a := range models.Areas {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// InvalidRecord is a record rejected by Validate. Index is 1-based.
type InvalidRecord struct {
	Index     int              `json:"index"`
	Passenger models.Passenger `json:"passenger"`
	Errors    []string         `json:"errors"`
}

type Summary struct {
	Total      int `json:"total"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
}

// Result partitions a batch of records. Valid is Unique plus Duplicates.
type Result struct {
	Valid      []models.Passenger `json:"valid"`
	Invalid    []InvalidRecord    `json:"invalid"`
	Unique     []models.Passenger `json:"unique"`
	Duplicates []models.Passenger `json:"duplicates"`
	Summary    Summary            `json:"summary"`
}

// Classify normalizes and validates records, then splits the valid ones into
// unique and duplicate. A record is a duplicate when an existing passenger has
// the same name, ignoring case and surrounding spaces, and the same area.
// Records are only compared with existing passengers, not with each other.
func Classify(records, existing []models.Passenger) Result {
	res := Result{
		Valid:      []models.Passenger{},
		Invalid:    []InvalidRecord{},
		Unique:     []models.Passenger{},
		Duplicates: []models.Passenger{},
	}

	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[dedupKey(p)] = struct{}{}
	}

	for i, p := range records {
		Normalize(&p)
		if errs := Validate(p); len(errs) > 0 {
			res.Invalid = append(res.Invalid, InvalidRecord{Index: i + 1, Passenger: p, Errors: errs})
			continue
		}
		res.Valid = append(res.Valid, p)

		if _, dup := known[dedupKey(p)]; dup {
			res.Duplicates = append(res.Duplicates, p)
		} else {
			res.Unique = append(res.Unique, p)
		}
	}

	res.Summary = Summary{
		Total:      len(records),
		Valid:      len(res.Valid),
		Invalid:    len(res.Invalid),
		Unique:     len(res.Unique),
		Duplicates: len(res.Duplicates),
	}
	return res
}

func dedupKey(p models.Passenger) string {
	area := p.Area
	if area == "" {
		area = models.DefaultArea
	}
	return strings.ToLower(strings.TrimSpace(p.Name)) + "\x00" + string(area)
}
