package prometheusmetrics

import (
	"testing"

	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMetricsForTesting() *Metrics {
	return NewMetrics(config.PrometheusMetrics{
		Namespace: "prebid",
		Subsystem: "floors",
	})
}

func TestMetricCountGatekeeping(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordFloorsFetch("acct", openrtb_ext.FetchSuccess)
	m.RecordDynamicFetchFailure("acct", "decode")
	m.RecordFloorsRequestForAccount("acct")
	m.RecordFloorsSkipped("acct")
	m.RecordFloorsResolveError("acct")
	m.RecordInvalidAccountFloorsConfig("acct")
	m.RecordRejectedBids("acct", "appnexus", "301")

	families, err := m.Gatherer.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)
	for _, family := range families {
		assert.Contains(t, family.GetName(), "prebid_floors_")
	}
}

func TestRecordFloorsFetch(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordFloorsFetch("acct", openrtb_ext.FetchTimeout)
	m.RecordFloorsFetch("acct", openrtb_ext.FetchTimeout)
	m.RecordFloorsFetch("acct", openrtb_ext.FetchSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.floorsFetch.WithLabelValues("acct", openrtb_ext.FetchTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.floorsFetch.WithLabelValues("acct", openrtb_ext.FetchSuccess)))
}

func TestRecordRejectedBids(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordRejectedBids("acct", "appnexus", "301")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedBids.WithLabelValues("acct", "appnexus", "301")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rejectedBids.WithLabelValues("acct", "rubicon", "301")))
}

func TestRecordAccountCounters(t *testing.T) {
	m := createMetricsForTesting()

	m.RecordFloorsRequestForAccount("acct")
	m.RecordFloorsSkipped("acct")
	m.RecordFloorsResolveError("acct")
	m.RecordFloorsResolveError("acct")
	m.RecordInvalidAccountFloorsConfig("other")
	m.RecordDynamicFetchFailure("acct", "status")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.floorsRequests.WithLabelValues("acct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.floorsSkipped.WithLabelValues("acct")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.floorsResolveErrors.WithLabelValues("acct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidAccountFloorsConfigs.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dynamicFetchFailure.WithLabelValues("acct", "status")))
}
