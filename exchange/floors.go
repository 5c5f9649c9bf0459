package exchange

import (
	"strconv"
	"sync"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/currency"
	"github.com/prebid/prebid-server-floors/exchange/entities"
	"github.com/prebid/prebid-server-floors/floors"
	"github.com/prebid/prebid-server-floors/logger"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/util/randomutil"
)

// FloorsPipeline applies price floors to one auction: it enriches the request once, derives
// the floors each bidder sees and enforces them on the bidder responses. Bidder responses may
// be processed concurrently.
type FloorsPipeline struct {
	account       config.Account
	conversions   currency.Conversions
	fetcher       floors.FloorFetcher
	rg            randomutil.RandomGenerator
	metricsEngine metrics.MetricsEngine

	request *openrtb2.BidRequest

	mu       sync.Mutex
	trackers map[string]*RejectionTracker
}

func NewFloorsPipeline(account config.Account, conversions currency.Conversions, fetcher floors.FloorFetcher, rg randomutil.RandomGenerator, me metrics.MetricsEngine) *FloorsPipeline {
	if rg == nil {
		rg = randomutil.RandomNumberGenerator{}
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	return &FloorsPipeline{
		account:       account,
		conversions:   conversions,
		fetcher:       fetcher,
		rg:            rg,
		metricsEngine: me,
		trackers:      make(map[string]*RejectionTracker),
	}
}

// Enrich resolves the floors of the auction request. It must run before any bidder request
// is built.
func (p *FloorsPipeline) Enrich(request *openrtb2.BidRequest) (*openrtb2.BidRequest, []error) {
	enriched, errs := floors.EnrichWithPriceFloors(request, p.account, p.conversions, p.fetcher, p.rg, p.metricsEngine)
	if enriched != nil {
		p.request = enriched
	}
	return enriched, errs
}

// BidderRequest returns a copy of the enriched request carrying the floors adjusted for
// bidder. Imps without a floor for the bidder have bidfloor and bidfloorcur removed.
func (p *FloorsPipeline) BidderRequest(bidder string) (*openrtb2.BidRequest, []error) {
	if p.request == nil {
		return nil, nil
	}

	var errs []error
	bidderRequest := *p.request
	bidderRequest.Imp = make([]openrtb2.Imp, len(p.request.Imp))
	impIDs := make([]string, 0, len(p.request.Imp))

	for i := range p.request.Imp {
		imp := p.request.Imp[i]
		price, impErrs := floors.AdjustForImp(&imp, bidder, p.request, p.account)
		errs = append(errs, impErrs...)
		if price == nil {
			imp.BidFloor = 0
			imp.BidFloorCur = ""
		} else {
			imp.BidFloor = *price
		}
		bidderRequest.Imp[i] = imp
		impIDs = append(impIDs, imp.ID)
	}

	p.mu.Lock()
	p.trackers[bidder] = NewRejectionTracker(bidder, impIDs)
	p.mu.Unlock()

	return &bidderRequest, errs
}

// ProcessBidderResponse enforces the floors on the response and records the outcome of every
// imp of the bidder.
func (p *FloorsPipeline) ProcessBidderResponse(response *entities.BidderResponse) *entities.BidderResponse {
	if response == nil {
		return nil
	}
	tracker := p.tracker(response)

	if !response.HasBids() {
		if len(response.Errors) > 0 {
			tracker.RejectAll(ErrorToNonBidReason(response.Errors[0]))
		}
		return response
	}

	enforced, rejected := floors.Enforce(p.request, response, p.account, p.conversions, p.rg)

	for _, bid := range rejected {
		tracker.Reject(RejectedDueToPriceFloor, bid.Bid.ImpID)
		p.metricsEngine.RecordRejectedBids(p.account.ID, response.Bidder, strconv.Itoa(RejectedDueToPriceFloor.Code()))
	}
	for _, bid := range enforced.SeatBid.Bids {
		if bid != nil && bid.Bid != nil {
			tracker.Succeed(bid.Bid.ImpID)
		}
	}
	if len(rejected) > 0 {
		logger.Debugf("Floors rejected %d bids of bidder %s for account %s", len(rejected), response.Bidder, p.account.ID)
	}
	return enforced
}

// RejectionReasons returns the reason of every imp of the bidder that did not get a bid.
func (p *FloorsPipeline) RejectionReasons(bidder string) map[string]NonBidReason {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.trackers[bidder]
	if !ok {
		return nil
	}
	return tracker.RejectionReasons()
}

func (p *FloorsPipeline) tracker(response *entities.BidderResponse) *lockedTracker {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.trackers[response.Bidder]
	if !ok {
		var impIDs []string
		if p.request != nil {
			for _, imp := range p.request.Imp {
				impIDs = append(impIDs, imp.ID)
			}
		}
		tracker = NewRejectionTracker(response.Bidder, impIDs)
		p.trackers[response.Bidder] = tracker
	}
	return &lockedTracker{mu: &p.mu, tracker: tracker}
}

// lockedTracker serializes tracker updates of concurrent bidder responses.
type lockedTracker struct {
	mu      *sync.Mutex
	tracker *RejectionTracker
}

func (t *lockedTracker) Succeed(impID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracker.Succeed(impID)
}

func (t *lockedTracker) Reject(reason NonBidReason, impIDs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracker.Reject(reason, impIDs...)
}

func (t *lockedTracker) RejectAll(reason NonBidReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracker.RejectAll(reason)
}
