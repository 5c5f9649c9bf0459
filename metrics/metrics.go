package metrics

// Labels of the dynamic fetch failure metric. The codes identify the stage at which
// a provider response was abandoned.
const (
	FetchFailureRequest  = "request"
	FetchFailureStatus   = "status"
	FetchFailureSize     = "size"
	FetchFailureDecode   = "decode"
	FetchFailureValidate = "validate"
	FetchFailurePool     = "pool"
)

// PublisherUnknown is the account label used when the request carries no account id.
const PublisherUnknown = "unknown"

// MetricsEngine is a generic interface to record floors metrics into the desired backend
type MetricsEngine interface {
	// RecordFloorsFetch counts every fetch attempt by the fetch status handed back to the auction.
	RecordFloorsFetch(pubID, fetchStatus string)
	RecordDynamicFetchFailure(pubID, code string)
	RecordFloorsRequestForAccount(pubID string)
	RecordFloorsSkipped(pubID string)
	RecordFloorsResolveError(pubID string)
	RecordInvalidAccountFloorsConfig(pubID string)
	RecordRejectedBids(pubID, bidder, code string)
}
