package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDataset(t *testing.T) {
	RecordDataset(10, 7, 2, 1)

	assert.Equal(t, 10.0, testutil.ToFloat64(DatasetRows.WithLabelValues("input")))
	assert.Equal(t, 7.0, testutil.ToFloat64(DatasetRows.WithLabelValues("output")))
	assert.Equal(t, 1.0, testutil.ToFloat64(DatasetRows.WithLabelValues("dropped_status")))
	assert.Greater(t, testutil.ToFloat64(DatasetLoadedAt), 0.0)
}

func TestObserveDuration(t *testing.T) {
	before := testutil.CollectAndCount(AggregationDuration)
	ObserveDuration(AggregationDuration, time.Now(), "observe-test", "single")
	assert.Equal(t, before+1, testutil.CollectAndCount(AggregationDuration))

	// counters are ignored
	ObserveDuration(ImportsTotal, time.Now(), "success")
}

func TestHandler(t *testing.T) {
	CacheLookups.WithLabelValues("hit").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "txdash_cache_lookups_total"))
}
