package api_test

import (
	"bytes"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/taxi/pkg/models"
)

type importSummary struct {
	Total      int `json:"total"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type importResponse struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Imported []models.Passenger `json:"imported"`
	Summary  importSummary      `json:"summary"`
}

const sampleCSV = "Nome;Endereço;Cidade;Área\n" +
	"Maria Silva;Rua A;Indaiatuba;Produção\n" +
	"J;Rua B;Campinas;RCB\n" +
	"Ana Souza;Rua C;Campinas;warehouse\n" +
	"Pedro Lima;Rua D;Salto;desconhecida\n"

func seedPassenger(ts *testServer, name string, area models.Area) {
	ts.mocks.Passengers.Stored = append(ts.mocks.Passengers.Stored, models.Passenger{ID: 100 + int64(len(ts.mocks.Passengers.Stored)), Name: name, Area: area})
}

func TestImportPreview_DoesNotWrite(t *testing.T) {
	ts := newTestServer(t, 0)
	seedPassenger(ts, "maria silva", models.AreaProduction)

	res := ts.upload(t, "/import/passengers/preview", "file", "passageiros.csv", []byte(sampleCSV))
	expectStatus(t, res, http.StatusOK)

	var body struct {
		Preview struct {
			Valid      []models.Passenger `json:"valid"`
			Duplicates []models.Passenger `json:"duplicates"`
			Invalid    []struct {
				Index  int      `json:"index"`
				Errors []string `json:"errors"`
			} `json:"invalid"`
			Summary struct {
				Total      int `json:"total"`
				Unique     int `json:"unique"`
				Duplicates int `json:"duplicates"`
				Invalid    int `json:"invalid"`
			} `json:"summary"`
		} `json:"preview"`
	}
	decode(t, res, &body)
	p := body.Preview

	// Unknown areas in files fall back to the default area, so Pedro is valid.
	if p.Summary.Total != 4 || p.Summary.Unique != 2 || p.Summary.Duplicates != 1 || p.Summary.Invalid != 1 {
		t.Fatalf("unexpected summary: %+v", p.Summary)
	}
	if len(p.Valid) != 2 || p.Valid[0].Name != "Ana Souza" || p.Valid[0].Area != models.AreaWarehouse || p.Valid[1].Area != models.DefaultArea {
		t.Fatalf("unexpected valid records: %+v", p.Valid)
	}
	if p.Invalid[0].Index != 2 || len(p.Invalid[0].Errors) != 1 {
		t.Fatalf("unexpected invalid records: %+v", p.Invalid)
	}
	if len(ts.mocks.Passengers.Stored) != 1 {
		t.Fatalf("preview must not write, got %d stored", len(ts.mocks.Passengers.Stored))
	}
}

func TestImportFile_CommitsUnique(t *testing.T) {
	ts := newTestServer(t, 0)
	seedPassenger(ts, "Maria Silva", models.AreaProduction)

	res := ts.upload(t, "/import/passengers/file", "file", "PASSAGEIROS.CSV", []byte(sampleCSV))
	expectStatus(t, res, http.StatusOK)

	var body importResponse
	decode(t, res, &body)
	want := importSummary{Total: 4, Imported: 2, Duplicates: 1, Invalid: 1}
	if body.Summary != want || !body.Success || body.Message != "2 passageiros importados com sucesso" {
		t.Fatalf("unexpected response: %+v", body)
	}
	if len(ts.mocks.Passengers.Stored) != 3 {
		t.Fatalf("expected 3 stored passengers, got %d", len(ts.mocks.Passengers.Stored))
	}
}

func TestImportFile_XLSX(t *testing.T) {
	ts := newTestServer(t, 0)

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{{"name", "phone", "area"}, {"Lucas", "1199", "SAR"}, {"Bia", "", ""}}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	res := ts.upload(t, "/import/passengers/file", "file", "lista.xlsx", buf.Bytes())
	expectStatus(t, res, http.StatusOK)
	var body importResponse
	decode(t, res, &body)
	if body.Summary.Imported != 2 {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
}

func TestImportFile_XLS(t *testing.T) {
	ts := newTestServer(t, 0)
	seedPassenger(ts, "ana souza", models.AreaWarehouse)

	raw, err := os.ReadFile("../internal/importer/testdata/passageiros.xls")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	res := ts.upload(t, "/import/passengers/file", "file", "passageiros.xls", raw)
	expectStatus(t, res, http.StatusOK)
	var body importResponse
	decode(t, res, &body)
	want := importSummary{Total: 4, Imported: 2, Duplicates: 1, Invalid: 1}
	if body.Summary != want {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
	if body.Imported[1].Name != "João Pereira" || body.Imported[1].Area != models.DefaultArea {
		t.Fatalf("unexpected imported records: %+v", body.Imported)
	}
}

func TestImportFile_Rejections(t *testing.T) {
	ts := newTestServer(t, 1024)

	res := ts.upload(t, "/import/passengers/file", "file", "passageiros.txt", []byte(sampleCSV))
	expectStatus(t, res, http.StatusBadRequest)
	var eb errBody
	decode(t, res, &eb)
	if !strings.Contains(eb.Message, "CSV, XLS ou XLSX") {
		t.Fatalf("unexpected error body: %+v", eb)
	}

	big := bytes.Repeat([]byte("Nome;Área\nFulano;RCB\n"), 200)
	res = ts.upload(t, "/import/passengers/preview", "file", "grande.csv", big)
	expectStatus(t, res, http.StatusRequestEntityTooLarge)

	res = ts.upload(t, "/import/passengers/file", "other", "passageiros.csv", []byte(sampleCSV))
	expectStatus(t, res, http.StatusBadRequest)

	res = ts.upload(t, "/import/passengers/file", "file", "vazio.csv", []byte("Nome;Área\n"))
	expectStatus(t, res, http.StatusOK)
	if len(ts.mocks.Passengers.Stored) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestImportJSON(t *testing.T) {
	ts := newTestServer(t, 0)
	seedPassenger(ts, "Carla", models.AreaRCB)

	body := map[string]any{"passengers": []map[string]any{
		{"name": "Carla "},
		{"name": "Davi", "area": "SAR"},
		{"name": "Eva", "area": "Marketing"},
		{"city": "sem nome"},
	}}
	res := ts.do(t, http.MethodPost, "/import/passengers", body)
	expectStatus(t, res, http.StatusOK)
	var got importResponse
	decode(t, res, &got)
	want := importSummary{Total: 4, Imported: 1, Duplicates: 1, Invalid: 2}
	if got.Summary != want || len(got.Imported) != 1 || got.Imported[0].Name != "Davi" {
		t.Fatalf("unexpected response: %+v", got)
	}

	// A bare array is accepted too.
	res = ts.do(t, http.MethodPost, "/import/passengers", []map[string]any{{"name": "Fabio"}})
	expectStatus(t, res, http.StatusOK)
}

func TestImportJSON_SchemaViolations(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, body := range []string{
		`{"people": []}`,
		`{"passengers": [{"name": 42}]}`,
		`{"passengers": "Ana"}`,
		`"Ana"`,
		`{`,
	} {
		res := ts.do(t, http.MethodPost, "/import/passengers", body)
		expectStatus(t, res, http.StatusBadRequest)
	}
	if len(ts.mocks.Passengers.Stored) != 0 {
		t.Fatalf("nothing should be stored")
	}
}
