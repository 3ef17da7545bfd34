package api_test

import (
	"net/http"
	"testing"

	"github.com/garnizeh/taxi/pkg/models"
)

func validRequest() map[string]any {
	return map[string]any{
		"date":         "2024-03-10",
		"requester":    "Carlos",
		"origin":       "Centro",
		"destination":  "ERICSSON",
		"time":         "22:00",
		"car_number":   "Carro 1",
		"cost_center":  "4088",
		"passengerIds": []int64{1, 2},
	}
}

func TestRequests_CreateListStatusDelete(t *testing.T) {
	ts := newTestServer(t, 0)

	res := ts.do(t, http.MethodPost, "/requests", validRequest())
	expectStatus(t, res, http.StatusCreated)
	var created models.Request
	decode(t, res, &created)
	if created.ID != 1 || created.Status != models.StatusPending || len(created.PassengerIDs) != 2 {
		t.Fatalf("unexpected created request: %+v", created)
	}

	res = ts.do(t, http.MethodPut, "/requests/1/status", map[string]string{"status": "completed"})
	expectStatus(t, res, http.StatusOK)
	var st struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, res, &st)
	if st.ID != 1 || st.Status != "completed" {
		t.Fatalf("unexpected status response: %+v", st)
	}

	res = ts.do(t, http.MethodGet, "/requests", nil)
	expectStatus(t, res, http.StatusOK)
	var list []models.Request
	decode(t, res, &list)
	if len(list) != 1 || list[0].Status != models.StatusCompleted || list[0].CreatedAtFormatted != "15/01/2024, 09:00" {
		t.Fatalf("unexpected list: %+v", list)
	}

	res = ts.do(t, http.MethodDelete, "/requests/1", nil)
	expectStatus(t, res, http.StatusOK)
	if len(ts.mocks.Requests.Stored) != 0 {
		t.Fatalf("request not deleted")
	}
}

func TestRequests_CancelledCanBeReopened(t *testing.T) {
	ts := newTestServer(t, 0)
	expectStatus(t, ts.do(t, http.MethodPost, "/requests", validRequest()), http.StatusCreated)

	for _, s := range []string{"cancelled", "pending", "cancelled", "completed"} {
		expectStatus(t, ts.do(t, http.MethodPut, "/requests/1/status", map[string]string{"status": s}), http.StatusOK)
	}
	if got := ts.mocks.Requests.Stored[0].Status; got != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestRequests_Validation(t *testing.T) {
	ts := newTestServer(t, 0)

	tooMany := validRequest()
	tooMany["passengerIds"] = []int64{1, 2, 3, 4, 5}
	noRequester := validRequest()
	delete(noRequester, "requester")
	badDate := validRequest()
	badDate["date"] = "10/03/2024"
	badStatus := validRequest()
	badStatus["status"] = "done"

	cases := []struct {
		name string
		body any
	}{
		{"too many passengers", tooMany},
		{"missing requester", noRequester},
		{"bad date", badDate},
		{"bad status", badStatus},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			expectStatus(t, ts.do(t, http.MethodPost, "/requests", c.body), http.StatusBadRequest)
		})
	}

	four := validRequest()
	four["passengerIds"] = []int64{1, 2, 3, 4}
	expectStatus(t, ts.do(t, http.MethodPost, "/requests", four), http.StatusCreated)

	expectStatus(t, ts.do(t, http.MethodPut, "/requests/1/status", map[string]string{"status": "archived"}), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPut, "/requests/1/status", map[string]string{}), http.StatusBadRequest)
}

func TestRequests_RepairsTextOnEntry(t *testing.T) {
	ts := newTestServer(t, 0)
	body := validRequest()
	body["origin"] = "SÃ£o Paulo"

	res := ts.do(t, http.MethodPost, "/requests", body)
	expectStatus(t, res, http.StatusCreated)
	if got := ts.mocks.Requests.Stored[0].Origin; got != "São Paulo" {
		t.Fatalf("origin not repaired: %q", got)
	}
}
