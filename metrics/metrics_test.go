package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilMetricsEngineDoesNotPanic(t *testing.T) {
	var me MetricsEngine = &NilMetricsEngine{}

	assert.NotPanics(t, func() {
		me.RecordFloorsFetch(PublisherUnknown, "success")
		me.RecordDynamicFetchFailure(PublisherUnknown, FetchFailureStatus)
		me.RecordFloorsRequestForAccount(PublisherUnknown)
		me.RecordFloorsSkipped(PublisherUnknown)
		me.RecordFloorsResolveError(PublisherUnknown)
		me.RecordInvalidAccountFloorsConfig(PublisherUnknown)
		me.RecordRejectedBids(PublisherUnknown, "appnexus", "301")
	})
}

func TestMetricsEngineMockRecordsCalls(t *testing.T) {
	me := &MetricsEngineMock{}
	me.On("RecordRejectedBids", "pub", "appnexus", "301").Return()
	me.On("RecordDynamicFetchFailure", "pub", FetchFailureDecode).Return()

	me.RecordRejectedBids("pub", "appnexus", "301")
	me.RecordDynamicFetchFailure("pub", FetchFailureDecode)

	me.AssertExpectations(t)
	me.AssertNumberOfCalls(t, "RecordRejectedBids", 1)
}
