package metrics

// NilMetricsEngine implements all the MetricsEngine methods as no-ops.
type NilMetricsEngine struct{}

var _ MetricsEngine = &NilMetricsEngine{}

func (me *NilMetricsEngine) RecordFloorsFetch(pubID, fetchStatus string) {
}

func (me *NilMetricsEngine) RecordDynamicFetchFailure(pubID, code string) {
}

func (me *NilMetricsEngine) RecordFloorsRequestForAccount(pubID string) {
}

func (me *NilMetricsEngine) RecordFloorsSkipped(pubID string) {
}

func (me *NilMetricsEngine) RecordFloorsResolveError(pubID string) {
}

func (me *NilMetricsEngine) RecordInvalidAccountFloorsConfig(pubID string) {
}

func (me *NilMetricsEngine) RecordRejectedBids(pubID, bidder, code string) {
}
