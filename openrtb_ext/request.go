package openrtb_ext

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// ExtRequest defines the contract for bidrequest.ext
type ExtRequest struct {
	Prebid ExtRequestPrebid `json:"prebid"`
}

// ExtRequestPrebid defines the contract for bidrequest.ext.prebid
type ExtRequestPrebid struct {
	Channel              *ExtRequestPrebidChannel        `json:"channel,omitempty"`
	Currency             *ExtRequestCurrency             `json:"currency,omitempty"`
	Floors               *PriceFloorRules                `json:"floors,omitempty"`
	BidAdjustmentFactors *ExtRequestBidAdjustmentFactors `json:"bidadjustmentfactors,omitempty"`
}

// ExtRequestPrebidChannel defines the contract for bidrequest.ext.prebid.channel
type ExtRequestPrebidChannel struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ExtRequestCurrency defines the contract for bidrequest.ext.prebid.currency
type ExtRequestCurrency struct {
	ConversionRates map[string]map[string]float64 `json:"rates"`
	UsePBSRates     *bool                         `json:"usepbsrates"`
}

const mediaTypesKey = "mediatypes"

// ExtRequestBidAdjustmentFactors holds bidrequest.ext.prebid.bidadjustmentfactors. The wire
// form mixes bidder factors with a nested "mediatypes" object:
//
//	{"appnexus": 0.9, "mediatypes": {"banner": {"appnexus": 0.8}}}
type ExtRequestBidAdjustmentFactors struct {
	Bidders    map[string]float64
	MediaTypes map[BidType]map[string]float64
}

func (f *ExtRequestBidAdjustmentFactors) UnmarshalJSON(data []byte) error {
	bidders := map[string]float64{}
	mediaTypes := map[BidType]map[string]float64{}

	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if string(key) != mediaTypesKey {
			factor, err := jsonparser.ParseFloat(value)
			if err != nil {
				return fmt.Errorf("bid adjustment factor for %s must be a number", key)
			}
			bidders[strings.ToLower(string(key))] = factor
			return nil
		}
		if dataType != jsonparser.Object {
			return fmt.Errorf("%s must be an object", mediaTypesKey)
		}
		return jsonparser.ObjectEach(value, func(mediaType []byte, factors []byte, _ jsonparser.ValueType, _ int) error {
			byBidder := map[string]float64{}
			if err := jsonparser.ObjectEach(factors, func(bidder []byte, factor []byte, _ jsonparser.ValueType, _ int) error {
				parsed, err := jsonparser.ParseFloat(factor)
				if err != nil {
					return fmt.Errorf("bid adjustment factor for %s.%s must be a number", mediaType, bidder)
				}
				byBidder[strings.ToLower(string(bidder))] = parsed
				return nil
			}); err != nil {
				return err
			}
			mediaTypes[BidType(mediaType)] = byBidder
			return nil
		})
	})
	if err != nil {
		return err
	}

	f.Bidders = bidders
	f.MediaTypes = mediaTypes
	return nil
}

func (f ExtRequestBidAdjustmentFactors) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(f.Bidders)+1)
	for bidder, factor := range f.Bidders {
		out[bidder] = factor
	}
	if len(f.MediaTypes) > 0 {
		out[mediaTypesKey] = f.MediaTypes
	}
	return json.Marshal(out)
}

// ExtImp defines the floors relevant parts of imp.ext
type ExtImp struct {
	Prebid *ExtImpPrebid `json:"prebid,omitempty"`
	Data   *ExtImpData   `json:"data,omitempty"`
	GPID   string        `json:"gpid,omitempty"`
}

// ExtImpPrebid defines the contract for imp.ext.prebid
type ExtImpPrebid struct {
	StoredRequest *ExtStoredRequest   `json:"storedrequest,omitempty"`
	Floors        *ExtImpPrebidFloors `json:"floors,omitempty"`
}

// ExtStoredRequest defines the contract for imp.ext.prebid.storedrequest
type ExtStoredRequest struct {
	ID string `json:"id"`
}

// ExtImpData defines the contract for imp.ext.data
type ExtImpData struct {
	PbAdslot string              `json:"pbadslot,omitempty"`
	AdServer *ExtImpDataAdServer `json:"adserver,omitempty"`
}

// ExtImpDataAdServer defines the contract for imp.ext.data.adserver
type ExtImpDataAdServer struct {
	Name   string `json:"name,omitempty"`
	AdSlot string `json:"adslot,omitempty"`
}

// ParseRequestExt decodes bidrequest.ext. An empty ext yields a zero value.
func ParseRequestExt(ext json.RawMessage) (*ExtRequest, error) {
	requestExt := &ExtRequest{}
	if len(ext) == 0 {
		return requestExt, nil
	}
	if err := json.Unmarshal(ext, requestExt); err != nil {
		return nil, err
	}
	return requestExt, nil
}

// ParseImpExt decodes imp.ext. An empty ext yields a zero value.
func ParseImpExt(ext json.RawMessage) (*ExtImp, error) {
	impExt := &ExtImp{}
	if len(ext) == 0 {
		return impExt, nil
	}
	if err := json.Unmarshal(ext, impExt); err != nil {
		return nil, err
	}
	return impExt, nil
}
