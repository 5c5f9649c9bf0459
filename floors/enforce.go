package floors

import (
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/currency"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/exchange/entities"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/ptrutil"
	"github.com/prebid/prebid-server-floors/util/randomutil"
)

// Enforce drops the bids priced below the floor of their imp. The second return value holds
// the rejected bids. When no bid is dropped the given response is returned as is.
//
// Every bid must belong to an imp of the request; a bid for an unknown imp panics.
func Enforce(request *openrtb2.BidRequest, response *entities.BidderResponse, account config.Account, conversions currency.Conversions, rg randomutil.RandomGenerator) (*entities.BidderResponse, []*entities.PbsOrtbBid) {
	if !response.HasBids() {
		return response, nil
	}
	if !account.PriceFloors.Enabled {
		return response, nil
	}

	requestExt, err := openrtb_ext.ParseRequestExt(request.Ext)
	if err != nil {
		return response, nil
	}
	rules := requestExt.Prebid.Floors
	if !rules.GetEnabled() || rules.GetFloorsSkippedFlag() || !rules.GetEnforcePBS() {
		return response, nil
	}

	if rg == nil {
		rg = randomutil.RandomNumberGenerator{}
	}
	if !passesEnforceRate(rules.GetEnforceRate(), rg) || !passesEnforceRate(ptrutil.ToPtr(account.PriceFloors.EnforceFloorsRate), rg) {
		return response, nil
	}

	enforceDeals := account.PriceFloors.EnforceDealFloors && rules.GetEnforceDealsFlag()
	floorsRequest := request
	if response.BidderRequest != nil {
		floorsRequest = response.BidderRequest
	}
	imps := impsByID(floorsRequest)

	seatBid := response.SeatBid
	bidCur := seatBid.Currency
	if bidCur == "" {
		bidCur = defaultCurrency
	}

	var (
		kept     = make([]*entities.PbsOrtbBid, 0, len(seatBid.Bids))
		rejected []*entities.PbsOrtbBid
		errs     []error
	)
	for _, bid := range seatBid.Bids {
		if bid == nil || bid.Bid == nil {
			kept = append(kept, bid)
			continue
		}
		if bid.Bid.DealID != "" && !enforceDeals {
			kept = append(kept, bid)
			continue
		}

		imp, ok := imps[bid.Bid.ImpID]
		if !ok {
			panic(fmt.Sprintf("bid %s of bidder %s refers to unknown imp %s", bid.Bid.ID, response.Bidder, bid.Bid.ImpID))
		}
		if imp.BidFloor <= 0 {
			kept = append(kept, bid)
			continue
		}

		price, err := bidPriceInFloorCurrency(bid.Bid.Price, bidCur, imp.BidFloorCur, conversions)
		if err != nil {
			errs = append(errs, &errortypes.Warning{
				Message:     fmt.Sprintf("Bid with id '%s' was not checked against the floor: %v", bid.Bid.ID, err),
				WarningCode: errortypes.FloorCurrencyConversionWarningCode,
			})
			kept = append(kept, bid)
			continue
		}

		if price < imp.BidFloor {
			rejected = append(rejected, bid)
			errs = append(errs, &errortypes.Warning{
				Message:     fmt.Sprintf("Bid with id '%s' was rejected by floor enforcement: price %v is below the floor %v", bid.Bid.ID, bid.Bid.Price, imp.BidFloor),
				WarningCode: errortypes.FloorBidRejectionWarningCode,
			})
			continue
		}
		kept = append(kept, bid)
	}

	if len(errs) == 0 {
		return response, nil
	}

	newSeatBid := *seatBid
	newSeatBid.Bids = kept
	newResponse := *response
	newResponse.SeatBid = &newSeatBid
	newResponse.Errors = append(append([]error(nil), response.Errors...), errs...)
	return &newResponse, rejected
}

// passesEnforceRate draws once against rate. A nil rate always passes and a rate outside
// [0,100] never does.
func passesEnforceRate(rate *int, rg randomutil.RandomGenerator) bool {
	if rate == nil {
		return true
	}
	if *rate < enforceRateMin || *rate > enforceRateMax {
		return false
	}
	return rg.Float64()*100 < float64(*rate)
}

func impsByID(request *openrtb2.BidRequest) map[string]*openrtb2.Imp {
	imps := make(map[string]*openrtb2.Imp, len(request.Imp))
	for i := range request.Imp {
		imps[request.Imp[i].ID] = &request.Imp[i]
	}
	return imps
}

func bidPriceInFloorCurrency(price float64, bidCur, floorCur string, conversions currency.Conversions) (float64, error) {
	if floorCur == "" {
		floorCur = defaultCurrency
	}
	if bidCur == floorCur {
		return price, nil
	}
	if conversions == nil {
		return 0, fmt.Errorf("no currency conversion available from %s to %s", bidCur, floorCur)
	}
	rate, err := conversions.GetRate(bidCur, floorCur)
	if err != nil {
		return 0, fmt.Errorf("currency conversion from %s to %s failed: %w", bidCur, floorCur, err)
	}
	return price * rate, nil
}
