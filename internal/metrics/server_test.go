package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

type staticSource struct {
	snap *lending.Snapshot
}

func (s staticSource) Latest() *lending.Snapshot {
	return s.snap
}

func testSnapshot(updated time.Time) *lending.Snapshot {
	pos := risk.Position{Collateral: amount.SUI.MustParse("10"), Debt: amount.SUSD.MustParse("5")}
	price := decimal.NewFromInt(2)
	return &lending.Snapshot{
		Owner:     "0xa11ce",
		Position:  pos,
		Price:     lending.Price{Value: price},
		Metrics:   risk.Evaluate(pos, price, risk.ParamsFromPercent(50, 75)),
		UpdatedAt: updated,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerHealth(t *testing.T) {
	empty := NewServer(":0", NewCollector(nil), staticSource{}, time.Minute, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, empty.Handler(), "/healthz").Code)

	stale := NewServer(":0", NewCollector(nil), staticSource{snap: testSnapshot(time.Now().Add(-time.Hour))}, time.Minute, nil)
	rec := get(t, stale.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "stale")

	fresh := NewServer(":0", NewCollector(nil), staticSource{snap: testSnapshot(time.Now())}, time.Minute, nil)
	assert.Equal(t, http.StatusOK, get(t, fresh.Handler(), "/healthz").Code)
}

func TestServerPosition(t *testing.T) {
	srv := NewServer(":0", NewCollector(nil), staticSource{snap: testSnapshot(time.Now())}, 0, nil)

	rec := get(t, srv.Handler(), "/api/position")
	require.Equal(t, http.StatusOK, rec.Code)

	var view PositionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "10", view.Collateral)
	assert.Equal(t, "5", view.Debt)
	assert.Equal(t, "25.00", view.LTV)
	assert.Equal(t, "3.00", view.Health)
	assert.Equal(t, string(risk.StatusHealthy), view.Status)

	missing := NewServer(":0", NewCollector(nil), nil, 0, nil)
	assert.Equal(t, http.StatusNotFound, get(t, missing.Handler(), "/api/position").Code)
}

func TestServerMetricsRoute(t *testing.T) {
	c := NewCollector(nil)
	c.SetPrice(decimal.RequireFromString("1.25"), false)
	srv := NewServer(":0", c, nil, 0, nil)

	rec := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sui_lending_oracle_price_usd")
}
