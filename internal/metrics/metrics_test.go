package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(http.MethodGet, "/all-products", 200, 20*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/all-products", 200, 30*time.Millisecond)
	c.RecordRequest(http.MethodGet, "", 404, time.Millisecond)

	mf := gather(t, reg, "shop_http_requests_total")
	require.Len(t, mf.GetMetric(), 2)

	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "route" && lp.GetValue() == "/all-products" {
				assert.Equal(t, float64(2), m.GetCounter().GetValue())
			}
		}
	}
	assert.Equal(t, float64(3), total)

	hist := gather(t, reg, "shop_http_request_duration_seconds")
	require.NotEmpty(t, hist.GetMetric())
}

func TestDomainCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOrderCreated()
	c.RecordOrderCreated()
	c.RecordUploadRejected()

	assert.Equal(t, float64(2), gather(t, reg, "shop_orders_created_total").GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(1), gather(t, reg, "shop_uploads_rejected_total").GetMetric()[0].GetCounter().GetValue())
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordOrderCreated()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "shop_orders_created_total 1"))
}
