package exchange

// RejectionTracker records, for one bidder in one auction, which imps got a bid and why the
// others did not. It is not safe for concurrent use.
type RejectionTracker struct {
	bidder    string
	involved  []string
	succeeded map[string]struct{}
	rejected  map[string]NonBidReason
}

func NewRejectionTracker(bidder string, impIDs []string) *RejectionTracker {
	involved := make([]string, 0, len(impIDs))
	seen := make(map[string]struct{}, len(impIDs))
	for _, impID := range impIDs {
		if _, ok := seen[impID]; ok {
			continue
		}
		seen[impID] = struct{}{}
		involved = append(involved, impID)
	}

	return &RejectionTracker{
		bidder:    bidder,
		involved:  involved,
		succeeded: make(map[string]struct{}, len(involved)),
		rejected:  make(map[string]NonBidReason),
	}
}

func (t *RejectionTracker) Bidder() string {
	return t.bidder
}

// Succeed marks the imp as served and drops any earlier rejection.
func (t *RejectionTracker) Succeed(impID string) {
	t.succeeded[impID] = struct{}{}
	delete(t.rejected, impID)
}

// Reject marks the imps as rejected for reason and drops any earlier success.
func (t *RejectionTracker) Reject(reason NonBidReason, impIDs ...string) {
	for _, impID := range impIDs {
		t.rejected[impID] = reason
		delete(t.succeeded, impID)
	}
}

func (t *RejectionTracker) RejectAll(reason NonBidReason) {
	t.Reject(reason, t.involved...)
}

// RejectionReasons returns a reason for every imp the tracker was created with that did not
// succeed. Imps that were neither served nor rejected are reported as NoBid.
func (t *RejectionTracker) RejectionReasons() map[string]NonBidReason {
	reasons := make(map[string]NonBidReason, len(t.involved))
	for _, impID := range t.involved {
		if reason, ok := t.rejected[impID]; ok {
			reasons[impID] = reason
			continue
		}
		if _, ok := t.succeeded[impID]; !ok {
			reasons[impID] = NoBid
		}
	}
	return reasons
}
