package exchange

import (
	"github.com/prebid/prebid-server-floors/errortypes"
)

// NonBidReason says why an imp ended up without a bid from a bidder.
// Reference: https://github.com/InteractiveAdvertisingBureau/openrtb/blob/master/extensions/community_extensions/seat-non-bid.md#list-non-bid-status-codes
type NonBidReason int

const (
	NoBid NonBidReason = iota
	RejectedByHook
	RejectedByMediaType
	TimedOut
	RejectedDueToPriceFloor
	FailedToRequestBids
	OtherError
)

var nonBidReasonCodes = map[NonBidReason]int{
	NoBid:                   0,
	RejectedByHook:          200,
	RejectedByMediaType:     204,
	TimedOut:                101,
	RejectedDueToPriceFloor: 301,
	FailedToRequestBids:     100,
	OtherError:              100,
}

var nonBidReasonNames = map[NonBidReason]string{
	NoBid:                   "NO_BID",
	RejectedByHook:          "REJECTED_BY_HOOK",
	RejectedByMediaType:     "REJECTED_BY_MEDIA_TYPE",
	TimedOut:                "TIMED_OUT",
	RejectedDueToPriceFloor: "REJECTED_DUE_TO_PRICE_FLOOR",
	FailedToRequestBids:     "FAILED_TO_REQUEST_BIDS",
	OtherError:              "OTHER_ERROR",
}

// Code returns the seat non bid status code. Unknown reasons map to NoBid.
func (n NonBidReason) Code() int {
	return nonBidReasonCodes[n]
}

func (n NonBidReason) String() string {
	if name, ok := nonBidReasonNames[n]; ok {
		return name
	}
	return nonBidReasonNames[NoBid]
}

// Ptr returns pointer to own value.
func (n NonBidReason) Ptr() *NonBidReason {
	return &n
}

// Val safely dereferences pointer, returning default value (NoBid) for nil.
func (n *NonBidReason) Val() NonBidReason {
	if n == nil {
		return NoBid
	}
	return *n
}

// ErrorToNonBidReason maps a bidder error to the reason reported for its imps.
func ErrorToNonBidReason(err error) NonBidReason {
	switch errortypes.ReadCode(err) {
	case errortypes.TimeoutErrorCode:
		return TimedOut
	case errortypes.FloorBidRejectionWarningCode:
		return RejectedDueToPriceFloor
	case errortypes.BadServerResponseErrorCode, errortypes.BadInputErrorCode:
		return FailedToRequestBids
	}
	return OtherError
}
