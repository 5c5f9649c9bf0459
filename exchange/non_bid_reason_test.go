package exchange

import (
	"errors"
	"testing"

	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/stretchr/testify/assert"
)

func TestNonBidReasonCode(t *testing.T) {
	tests := []struct {
		reason NonBidReason
		code   int
		name   string
	}{
		{reason: NoBid, code: 0, name: "NO_BID"},
		{reason: RejectedByHook, code: 200, name: "REJECTED_BY_HOOK"},
		{reason: RejectedByMediaType, code: 204, name: "REJECTED_BY_MEDIA_TYPE"},
		{reason: TimedOut, code: 101, name: "TIMED_OUT"},
		{reason: RejectedDueToPriceFloor, code: 301, name: "REJECTED_DUE_TO_PRICE_FLOOR"},
		{reason: FailedToRequestBids, code: 100, name: "FAILED_TO_REQUEST_BIDS"},
		{reason: OtherError, code: 100, name: "OTHER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.reason.Code())
			assert.Equal(t, tt.name, tt.reason.String())
		})
	}
}

func TestNonBidReasonVal(t *testing.T) {
	var reason *NonBidReason
	assert.Equal(t, NoBid, reason.Val())
	assert.Equal(t, TimedOut, TimedOut.Ptr().Val())
}

func TestErrorToNonBidReason(t *testing.T) {
	assert.Equal(t, TimedOut, ErrorToNonBidReason(&errortypes.Timeout{Message: "late"}))
	assert.Equal(t, FailedToRequestBids, ErrorToNonBidReason(&errortypes.BadServerResponse{Message: "500"}))
	assert.Equal(t, RejectedDueToPriceFloor, ErrorToNonBidReason(&errortypes.Warning{WarningCode: errortypes.FloorBidRejectionWarningCode}))
	assert.Equal(t, OtherError, ErrorToNonBidReason(errors.New("boom")))
}
