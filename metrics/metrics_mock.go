package metrics

import (
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

var _ MetricsEngine = &MetricsEngineMock{}

// RecordFloorsFetch mock
func (me *MetricsEngineMock) RecordFloorsFetch(pubID, fetchStatus string) {
	me.Called(pubID, fetchStatus)
}

// RecordDynamicFetchFailure mock
func (me *MetricsEngineMock) RecordDynamicFetchFailure(pubID, code string) {
	me.Called(pubID, code)
}

// RecordFloorsRequestForAccount mock
func (me *MetricsEngineMock) RecordFloorsRequestForAccount(pubID string) {
	me.Called(pubID)
}

// RecordFloorsSkipped mock
func (me *MetricsEngineMock) RecordFloorsSkipped(pubID string) {
	me.Called(pubID)
}

// RecordFloorsResolveError mock
func (me *MetricsEngineMock) RecordFloorsResolveError(pubID string) {
	me.Called(pubID)
}

// RecordInvalidAccountFloorsConfig mock
func (me *MetricsEngineMock) RecordInvalidAccountFloorsConfig(pubID string) {
	me.Called(pubID)
}

// RecordRejectedBids mock
func (me *MetricsEngineMock) RecordRejectedBids(pubID, bidder, code string) {
	me.Called(pubID, bidder, code)
}
