package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
)

// currencyRatesInfo holds currency rates information.
type currencyRatesInfo struct {
	Active bool                           `json:"active"`
	Rates  *map[string]map[string]float64 `json:"rates,omitempty"`
}

// NewCurrencyRatesEndpoint returns the static host rates used to convert floors and bids.
func NewCurrencyRatesEndpoint(rates map[string]map[string]float64) http.HandlerFunc {
	info := currencyRatesInfo{Active: len(rates) > 0}
	if info.Active {
		info.Rates = &rates
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		jsonOutput, err := json.Marshal(info)
		if err != nil {
			glog.Errorf("/currency/rates Critical error when trying to marshal currencyRateInfo: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(jsonOutput)
	}
}
