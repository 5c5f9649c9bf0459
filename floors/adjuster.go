package floors

import (
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/bidadjustment"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/sliceutil"
)

// AdjustForImp returns the floor the bidder should see for imp. A nil price means the bidder
// gets no floor at all, either because the imp has none or because the bidder is listed as a
// no floor signal bidder.
func AdjustForImp(imp *openrtb2.Imp, bidder string, request *openrtb2.BidRequest, account config.Account) (*float64, []error) {
	requestExt, err := openrtb_ext.ParseRequestExt(request.Ext)
	if err != nil {
		return basicAdjustForImp(imp, bidder, nil, account), []error{err}
	}
	return adjustForImp(imp, bidder, requestExt, account)
}

func adjustForImp(imp *openrtb2.Imp, bidder string, requestExt *openrtb_ext.ExtRequest, account config.Account) (*float64, []error) {
	rules := requestExt.Prebid.Floors
	if rules == nil || !rules.GetEnabled() || rules.GetFloorsSkippedFlag() {
		return basicAdjustForImp(imp, bidder, requestExt, account), nil
	}

	if isNoFloorSignalBidder(noFloorSignalBidders(rules), bidder) {
		return nil, []error{&errortypes.Warning{
			Message:     fmt.Sprintf("noFloorSignal to bidder %s", bidder),
			WarningCode: errortypes.NoFloorSignalWarningCode,
		}}
	}
	return basicAdjustForImp(imp, bidder, requestExt, account), nil
}

// noFloorSignalBidders returns the first list set on the model group, the data or the
// enforcement, in that order.
func noFloorSignalBidders(rules *openrtb_ext.PriceFloorRules) []string {
	if rules == nil {
		return nil
	}
	if group := selectedModelGroup(rules); group != nil && group.NoFloorSignalBidders != nil {
		return group.NoFloorSignalBidders
	}
	if rules.Data != nil && rules.Data.NoFloorSignalBidders != nil {
		return rules.Data.NoFloorSignalBidders
	}
	if rules.Enforcement != nil {
		return rules.Enforcement.NoFloorSignalBidders
	}
	return nil
}

func isNoFloorSignalBidder(bidders []string, bidder string) bool {
	return sliceutil.Contains(bidders, catchAll) || sliceutil.ContainsStringIgnoreCase(bidders, bidder)
}

func basicAdjustForImp(imp *openrtb2.Imp, bidder string, requestExt *openrtb_ext.ExtRequest, account config.Account) *float64 {
	if imp.BidFloor == 0 {
		return nil
	}
	floor := imp.BidFloor

	if !account.PriceFloors.IsAdjustForBidAdjustmentEnabled() || requestExt == nil || !requestExt.Prebid.Floors.GetBidAdjustment() {
		return &floor
	}

	factor, found := bidadjustment.ResolveFactor(requestExt.Prebid.BidAdjustmentFactors, bidder, impMediaTypes(imp))
	if !found {
		return &floor
	}
	adjusted := bidadjustment.AdjustFloor(floor, factor)
	return &adjusted
}
