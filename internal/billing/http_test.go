package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

func seededMux(t *testing.T) (*http.ServeMux, string) {
	t.Helper()
	ctx := context.Background()
	b := store.NewMemoryBackend()
	clients := store.NewCollection[model.Client](b, "clients")
	retainers := store.NewCollection[model.Retainer](b, "retainers")
	entries := store.NewCollection[model.TimeEntry](b, "time_entries")
	users := store.NewCollection[model.User](b, "users")

	acme, err := clients.Create(ctx, model.Client{Name: "Acme"})
	require.NoError(t, err)
	_, err = clients.Create(ctx, model.Client{Name: "Beta"})
	require.NoError(t, err)
	_, err = retainers.Create(ctx, model.Retainer{ClientID: acme.ID, MonthlyHours: 1, HourlyRate: 100, OverageRate: 150, IsActive: true})
	require.NoError(t, err)
	_, err = users.Create(ctx, model.User{Email: "ann@x.com", FullName: "Ann", HourlyRate: 55})
	require.NoError(t, err)

	for _, e := range []model.TimeEntry{
		entry(acme.ID, "ann@x.com", minutes(100), 50, march),
		entry(acme.ID, "ann@x.com", minutes(60), 50, march.AddDate(0, 1, 0)),
		entry(acme.ID, "bo@x.com", nil, 30, march),
	} {
		_, err := entries.Create(ctx, e)
		require.NoError(t, err)
	}

	rp := NewReporter(clients, retainers, entries, users).WithClock(func() time.Time { return march })
	h := NewHandler(rp)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clients/{id}/retainer-summary", h.RetainerSummary)
	mux.HandleFunc("/api/reports/subcontractors", h.Subcontractors)
	mux.HandleFunc("/api/reports/monthly", h.Monthly)
	return mux, acme.ID
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandler_RetainerSummary(t *testing.T) {
	mux, acmeID := seededMux(t)

	rr := get(mux, "/api/clients/"+acmeID+"/retainer-summary?month=2024-03")
	require.Equal(t, 200, rr.Code, rr.Body.String())
	var rep RetainerReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, "2024-03", rep.Month)
	assert.Equal(t, 1.67, rep.Summary.UsedHours)
	assert.Equal(t, 0.67, rep.Summary.OverageHours)
	assert.Equal(t, 100.0, rep.Summary.RetainerCost)
	assert.Equal(t, 100.0, rep.Summary.OverageCost)
	assert.Equal(t, 200.0, rep.Summary.TotalCost)

	// defaults to the current month
	rr = get(mux, "/api/clients/"+acmeID+"/retainer-summary")
	require.Equal(t, 200, rr.Code)

	assert.Equal(t, 404, get(mux, "/api/clients/nobody/retainer-summary").Code)
	assert.Equal(t, 400, get(mux, "/api/clients/"+acmeID+"/retainer-summary?month=March").Code)
}

func TestHandler_Subcontractors(t *testing.T) {
	mux, _ := seededMux(t)

	rr := get(mux, "/api/reports/subcontractors?month=2024-03")
	require.Equal(t, 200, rr.Code)
	var rep SubcontractorReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	require.Len(t, rep.Users, 2)
	assert.Equal(t, "ann@x.com", rep.Users[0].UserEmail)
	assert.Equal(t, "Ann", rep.Users[0].FullName)
	assert.Equal(t, 83.33, rep.Users[0].Cost)
	assert.Equal(t, 83.33, rep.TotalCost)
}

func TestHandler_Monthly(t *testing.T) {
	mux, _ := seededMux(t)

	rr := get(mux, "/api/reports/monthly?month=2024-04")
	require.Equal(t, 200, rr.Code)
	var rep MonthlyReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, "2024-04", rep.Month)
	require.Len(t, rep.Clients, 2)
	assert.Equal(t, "Acme", rep.Clients[0].ClientName)
	assert.Equal(t, 1.0, rep.Clients[0].Hours)
	assert.Equal(t, 100.0, rep.TotalCost)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reports/monthly", nil))
	assert.Equal(t, 405, rr.Code)
}
