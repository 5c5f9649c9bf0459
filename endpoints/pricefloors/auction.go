package pricefloors

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/exchange"
	"github.com/prebid/prebid-server-floors/exchange/entities"
)

type auctionRequest struct {
	Request *openrtb2.BidRequest  `json:"request"`
	Bidders map[string]bidderBids `json:"bidders"`
}

// bidderBids is what one bidder answered. Timeout simulates a bidder that never answered.
type bidderBids struct {
	Currency string         `json:"cur,omitempty"`
	Bids     []openrtb2.Bid `json:"bids,omitempty"`
	Timeout  bool           `json:"timeout,omitempty"`
}

type auctionResponse struct {
	Request *openrtb2.BidRequest     `json:"request"`
	Bidders map[string]bidderOutcome `json:"bidders"`
	Errors  []responseError          `json:"errors,omitempty"`
}

type bidderOutcome struct {
	Request *openrtb2.BidRequest `json:"request"`
	Bids    []openrtb2.Bid       `json:"bids"`
	NonBids []nonBid             `json:"nonbids,omitempty"`
	Errors  []responseError      `json:"errors,omitempty"`
}

type nonBid struct {
	ImpID      string `json:"impid"`
	StatusCode int    `json:"statuscode"`
	Reason     string `json:"reason"`
}

// Auction handles POST /floors/auction?account=ID. It runs the floors part of an auction over
// bids supplied in the body: the request is enriched, every bidder gets its floors and the
// floors are enforced on its bids. Bidders are processed concurrently.
func (e *Endpoints) Auction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body := &auctionRequest{}
	if err := readBody(r, body); err != nil {
		writeErrors(w, http.StatusBadRequest, []error{err})
		return
	}
	if err := validateRequest(body.Request); err != nil {
		writeErrors(w, http.StatusBadRequest, []error{err})
		return
	}
	if err := validateBids(body.Request, body.Bidders); err != nil {
		writeErrors(w, http.StatusBadRequest, []error{err})
		return
	}

	acct, status, errs := e.loadAccount(r.Context(), r.URL.Query().Get("account"))
	if status != http.StatusOK {
		writeErrors(w, status, errs)
		return
	}

	pipeline := exchange.NewFloorsPipeline(*acct, e.conversions(body.Request), e.fetcher, e.rg, e.metricsEngine)
	enriched, errs := pipeline.Enrich(body.Request)

	bidders := make([]string, 0, len(body.Bidders))
	for bidder := range body.Bidders {
		bidders = append(bidders, bidder)
	}
	sort.Strings(bidders)

	outcomes := make([]bidderOutcome, len(bidders))
	var wg sync.WaitGroup
	for i, bidder := range bidders {
		wg.Add(1)
		go func(i int, bidder string) {
			defer wg.Done()
			outcomes[i] = runBidder(pipeline, bidder, body.Bidders[bidder])
		}(i, bidder)
	}
	wg.Wait()

	response := auctionResponse{
		Request: enriched,
		Bidders: make(map[string]bidderOutcome, len(bidders)),
		Errors:  toResponseErrors(errs),
	}
	for i, bidder := range bidders {
		response.Bidders[bidder] = outcomes[i]
	}
	writeJSON(w, http.StatusOK, response)
}

func runBidder(pipeline *exchange.FloorsPipeline, bidder string, answer bidderBids) bidderOutcome {
	bidderRequest, errs := pipeline.BidderRequest(bidder)

	response := &entities.BidderResponse{
		Bidder:        bidder,
		BidderRequest: bidderRequest,
	}
	if answer.Timeout {
		response.Errors = []error{&errortypes.Timeout{Message: "bidder " + bidder + " timed out"}}
	} else {
		seatBid := &entities.PbsOrtbSeatBid{Currency: answer.Currency, Seat: bidder}
		for i := range answer.Bids {
			seatBid.Bids = append(seatBid.Bids, &entities.PbsOrtbBid{Bid: &answer.Bids[i]})
		}
		response.SeatBid = seatBid
	}

	enforced := pipeline.ProcessBidderResponse(response)

	outcome := bidderOutcome{
		Request: bidderRequest,
		Bids:    []openrtb2.Bid{},
		NonBids: toNonBids(pipeline.RejectionReasons(bidder)),
		Errors:  toResponseErrors(append(errs, enforced.Errors...)),
	}
	if enforced.SeatBid != nil {
		for _, bid := range enforced.SeatBid.Bids {
			if bid != nil && bid.Bid != nil {
				outcome.Bids = append(outcome.Bids, *bid.Bid)
			}
		}
	}
	return outcome
}

// validateBids makes sure every bid answers an imp of the request.
func validateBids(request *openrtb2.BidRequest, bidders map[string]bidderBids) error {
	impIDs := make(map[string]struct{}, len(request.Imp))
	for _, imp := range request.Imp {
		impIDs[imp.ID] = struct{}{}
	}
	for bidder, answer := range bidders {
		for i, bid := range answer.Bids {
			if _, ok := impIDs[bid.ImpID]; !ok {
				return fmt.Errorf("bidders.%s.bids[%d] references unknown imp %q", bidder, i, bid.ImpID)
			}
		}
	}
	return nil
}

func toNonBids(reasons map[string]exchange.NonBidReason) []nonBid {
	if len(reasons) == 0 {
		return nil
	}
	nonBids := make([]nonBid, 0, len(reasons))
	for impID, reason := range reasons {
		nonBids = append(nonBids, nonBid{ImpID: impID, StatusCode: reason.Code(), Reason: reason.String()})
	}
	sort.Slice(nonBids, func(i, j int) bool { return nonBids[i].ImpID < nonBids[j].ImpID })
	return nonBids
}
