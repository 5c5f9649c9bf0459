package currency

import (
	"github.com/prebid/prebid-server-floors/openrtb_ext"
)

// GetAuctionCurrencyRates picks the conversions used for one auction from the host
// rates and the optional rates sent in ext.prebid.currency.
func GetAuctionCurrencyRates(hostRates Conversions, requestRates *openrtb_ext.ExtRequestCurrency) Conversions {
	if requestRates == nil || len(requestRates.ConversionRates) == 0 {
		return hostRates
	}

	customRates := NewRates(requestRates.ConversionRates)
	if hostRates == nil {
		return customRates
	}

	// usepbsrates defaults to true when absent
	if requestRates.UsePBSRates != nil && !*requestRates.UsePBSRates {
		return customRates
	}
	return NewAggregateConversions(customRates, hostRates)
}
