package entities

import (
	"testing"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
)

func TestHasBids(t *testing.T) {
	testCases := []struct {
		description string
		response    *BidderResponse
		expected    bool
	}{
		{
			description: "nil response",
			expected:    false,
		},
		{
			description: "no seat bid",
			response:    &BidderResponse{Bidder: "appnexus"},
			expected:    false,
		},
		{
			description: "empty seat bid",
			response:    &BidderResponse{SeatBid: &PbsOrtbSeatBid{}},
			expected:    false,
		},
		{
			description: "one bid",
			response:    &BidderResponse{SeatBid: &PbsOrtbSeatBid{Bids: []*PbsOrtbBid{{Bid: &openrtb2.Bid{ID: "1"}}}}},
			expected:    true,
		},
	}

	for _, test := range testCases {
		t.Run(test.description, func(t *testing.T) {
			assert.Equal(t, test.expected, test.response.HasBids())
		})
	}
}
