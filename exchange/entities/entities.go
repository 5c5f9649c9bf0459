package entities

import (
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
)

// PbsOrtbBid is a bid returned by a bidder, with the metadata the auction needs.
type PbsOrtbBid struct {
	Bid            *openrtb2.Bid
	BidType        openrtb_ext.BidType
	OriginalBidCPM float64
	OriginalBidCur string
}

// PbsOrtbSeatBid is the bids of one seat. Currency applies to every bid in Bids, an
// empty value means USD.
type PbsOrtbSeatBid struct {
	Bids     []*PbsOrtbBid
	Currency string
	Seat     string
}

// BidderResponse is what one bidder returned for an auction. BidderRequest is the request
// sent to the bidder, carrying the floors adjusted for it.
type BidderResponse struct {
	Bidder        string
	BidderRequest *openrtb2.BidRequest
	SeatBid       *PbsOrtbSeatBid
	Errors        []error
}

// HasBids reports whether the response carries at least one bid. It is safe on a nil response.
func (r *BidderResponse) HasBids() bool {
	return r != nil && r.SeatBid != nil && len(r.SeatBid.Bids) > 0
}
