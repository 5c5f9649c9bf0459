package exchange

import (
	"encoding/json"
	"testing"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/exchange/entities"
	"github.com/prebid/prebid-server-floors/floors"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noFetcher struct{}

func (noFetcher) Fetch(config.Account) floors.FetchResult {
	return floors.FetchResult{FetchStatus: openrtb_ext.FetchNone}
}

// zeroRandom always draws the lowest value.
type zeroRandom struct{}

func (zeroRandom) Intn(int) int                { return 0 }
func (zeroRandom) Float64() float64            { return 0 }
func (zeroRandom) Shuffle(int, func(i, j int)) {}

func pipelineRequest() *openrtb2.BidRequest {
	return &openrtb2.BidRequest{
		ID: "auction-1",
		Imp: []openrtb2.Imp{
			{ID: "imp-1", Banner: &openrtb2.Banner{}},
			{ID: "imp-2", Banner: &openrtb2.Banner{}},
		},
		Ext: json.RawMessage(`{"prebid":{"bidadjustmentfactors":{"appnexus":0.5},"floors":{"enforcement":{"nofloorsignalbidders":["rubicon"]},"data":{"modelgroups":[{"schema":{"fields":["mediaType"]},"values":{"banner":2}}]}}}}`),
	}
}

func newTestPipeline(me metrics.MetricsEngine) *FloorsPipeline {
	account := config.Account{ID: "pub", PriceFloors: config.DefaultAccountPriceFloors()}
	return NewFloorsPipeline(account, nil, noFetcher{}, zeroRandom{}, me)
}

func TestFloorsPipelineBidderRequest(t *testing.T) {
	pipeline := newTestPipeline(nil)
	enriched, errs := pipeline.Enrich(pipelineRequest())
	require.Empty(t, errs)
	require.Equal(t, 2.0, enriched.Imp[0].BidFloor)

	appnexusRequest, errs := pipeline.BidderRequest("appnexus")
	assert.Empty(t, errs)
	assert.Equal(t, 4.0, appnexusRequest.Imp[0].BidFloor, "floor divided by the bid adjustment factor")
	assert.Equal(t, "USD", appnexusRequest.Imp[0].BidFloorCur)

	rubiconRequest, errs := pipeline.BidderRequest("rubicon")
	assert.Len(t, errs, 2)
	for _, err := range errs {
		assert.Equal(t, errortypes.NoFloorSignalWarningCode, errortypes.ReadCode(err))
	}
	assert.Zero(t, rubiconRequest.Imp[0].BidFloor)
	assert.Empty(t, rubiconRequest.Imp[0].BidFloorCur)

	assert.Equal(t, 2.0, enriched.Imp[0].BidFloor, "bidder requests must not change the enriched request")
}

func TestFloorsPipelineProcessBidderResponse(t *testing.T) {
	me := &metrics.MetricsEngineMock{}
	me.On("RecordFloorsRequestForAccount", "pub").Return()
	me.On("RecordFloorsFetch", "pub", openrtb_ext.FetchNone).Return()
	me.On("RecordRejectedBids", "pub", "appnexus", "301").Return()

	pipeline := newTestPipeline(me)
	_, errs := pipeline.Enrich(pipelineRequest())
	require.Empty(t, errs)
	bidderRequest, _ := pipeline.BidderRequest("appnexus")

	response := &entities.BidderResponse{
		Bidder:        "appnexus",
		BidderRequest: bidderRequest,
		SeatBid: &entities.PbsOrtbSeatBid{
			Currency: "USD",
			Bids: []*entities.PbsOrtbBid{
				{Bid: &openrtb2.Bid{ID: "bid-1", ImpID: "imp-1", Price: 3}},
				{Bid: &openrtb2.Bid{ID: "bid-2", ImpID: "imp-2", Price: 5}},
			},
		},
	}

	enforced := pipeline.ProcessBidderResponse(response)

	require.Len(t, enforced.SeatBid.Bids, 1)
	assert.Equal(t, "bid-2", enforced.SeatBid.Bids[0].Bid.ID)
	assert.Len(t, enforced.Errors, 1)
	assert.Equal(t, map[string]NonBidReason{"imp-1": RejectedDueToPriceFloor}, pipeline.RejectionReasons("appnexus"))
	me.AssertExpectations(t)
}

func TestFloorsPipelineErrorResponse(t *testing.T) {
	pipeline := newTestPipeline(nil)
	_, _ = pipeline.Enrich(pipelineRequest())
	_, _ = pipeline.BidderRequest("openx")

	response := &entities.BidderResponse{Bidder: "openx", Errors: []error{&errortypes.Timeout{Message: "timeout"}}}
	assert.Same(t, response, pipeline.ProcessBidderResponse(response))

	assert.Equal(t, map[string]NonBidReason{"imp-1": TimedOut, "imp-2": TimedOut}, pipeline.RejectionReasons("openx"))
}

func TestFloorsPipelineUnknownBidder(t *testing.T) {
	pipeline := newTestPipeline(nil)
	_, _ = pipeline.Enrich(pipelineRequest())

	assert.Nil(t, pipeline.RejectionReasons("unknown"))

	pipeline.ProcessBidderResponse(&entities.BidderResponse{Bidder: "late"})
	assert.Equal(t, map[string]NonBidReason{"imp-1": NoBid, "imp-2": NoBid}, pipeline.RejectionReasons("late"))
}

func TestFloorsPipelineAccountFloorsDisabled(t *testing.T) {
	account := config.Account{ID: "pub", PriceFloors: config.DefaultAccountPriceFloors()}
	account.PriceFloors.Enabled = false
	pipeline := NewFloorsPipeline(account, nil, noFetcher{}, zeroRandom{}, nil)

	request := &openrtb2.BidRequest{
		ID:  "auction-1",
		Imp: []openrtb2.Imp{{ID: "imp-1", BidFloor: 1.5, BidFloorCur: "USD", Banner: &openrtb2.Banner{}}},
	}
	enriched, errs := pipeline.Enrich(request)
	require.Empty(t, errs)
	require.Same(t, request, enriched)

	var bidderRequest *openrtb2.BidRequest
	assert.NotPanics(t, func() {
		bidderRequest, errs = pipeline.BidderRequest("appnexus")
	})
	assert.Empty(t, errs)
	require.NotNil(t, bidderRequest)
	assert.Equal(t, 1.5, bidderRequest.Imp[0].BidFloor)

	response := &entities.BidderResponse{
		Bidder:        "appnexus",
		BidderRequest: bidderRequest,
		SeatBid: &entities.PbsOrtbSeatBid{Bids: []*entities.PbsOrtbBid{
			{Bid: &openrtb2.Bid{ID: "low", ImpID: "imp-1", Price: 0.5}},
		}},
	}
	enforced := pipeline.ProcessBidderResponse(response)
	require.Len(t, enforced.SeatBid.Bids, 1, "disabled floors never reject")
	assert.Empty(t, pipeline.RejectionReasons("appnexus"))
}
