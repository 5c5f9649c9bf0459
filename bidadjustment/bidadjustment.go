package bidadjustment

import (
	"strings"

	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/mathutil"
)

// ResolveFactor returns the adjustment factor configured for the bidder. A media type
// specific factor wins over the bidder wide one; when the imp offers several media types
// the smallest factor is used. found is false when no factor applies.
func ResolveFactor(factors *openrtb_ext.ExtRequestBidAdjustmentFactors, bidder string, mediaTypes []openrtb_ext.BidType) (factor float64, found bool) {
	if factors == nil {
		return 1, false
	}
	bidder = strings.ToLower(bidder)

	for _, mediaType := range mediaTypes {
		candidate, ok := lookupFactor(factors, bidder, mediaType)
		if !ok {
			continue
		}
		if !found || candidate < factor {
			factor = candidate
			found = true
		}
	}

	if found {
		return factor, true
	}
	if bidderFactor, ok := factors.Bidders[bidder]; ok {
		return bidderFactor, true
	}
	return 1, false
}

func lookupFactor(factors *openrtb_ext.ExtRequestBidAdjustmentFactors, bidder string, mediaType openrtb_ext.BidType) (float64, bool) {
	if factor, ok := factors.MediaTypes[mediaType][bidder]; ok {
		return factor, true
	}
	if mediaType == openrtb_ext.BidTypeVideoInstream || mediaType == openrtb_ext.BidTypeVideoOutstream {
		if factor, ok := factors.MediaTypes[openrtb_ext.BidTypeVideo][bidder]; ok {
			return factor, true
		}
	}
	factor, ok := factors.Bidders[bidder]
	return factor, ok
}

// AdjustFloor divides the floor by the factor so an adjusted bid still clears the original floor.
// Non positive factors leave the floor unchanged.
func AdjustFloor(floor, factor float64) float64 {
	if factor <= 0 {
		return floor
	}
	return mathutil.RoundTo4Decimals(floor / factor)
}
