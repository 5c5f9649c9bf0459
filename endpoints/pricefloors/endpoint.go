package pricefloors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/account"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/currency"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/floors"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/stored_requests"
	"github.com/prebid/prebid-server-floors/util/randomutil"
)

const maxRequestBodyBytes = 1 << 20

// Endpoints serves the floors HTTP API. All handlers are safe for concurrent use.
type Endpoints struct {
	cfg           *config.Configuration
	accounts      stored_requests.AccountFetcher
	fetcher       floors.FloorFetcher
	hostRates     currency.Conversions
	metricsEngine metrics.MetricsEngine
	rg            randomutil.RandomGenerator
}

func New(cfg *config.Configuration, accounts stored_requests.AccountFetcher, fetcher floors.FloorFetcher, hostRates currency.Conversions, me metrics.MetricsEngine, rg randomutil.RandomGenerator) (*Endpoints, error) {
	if cfg == nil || accounts == nil || fetcher == nil {
		return nil, errors.New("pricefloors.New requires non-nil cfg, accounts and fetcher")
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	if rg == nil {
		rg = randomutil.RandomNumberGenerator{}
	}
	return &Endpoints{
		cfg:           cfg,
		accounts:      accounts,
		fetcher:       fetcher,
		hostRates:     hostRates,
		metricsEngine: me,
		rg:            rg,
	}, nil
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func toResponseErrors(errs []error) []responseError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]responseError, 0, len(errs))
	for _, err := range errs {
		out = append(out, responseError{Code: errortypes.ReadCode(err), Message: err.Error()})
	}
	return out
}

// loadAccount resolves the account and applies the host wide floors switch. The returned status is
// the HTTP status to answer with when the account cannot be used.
func (e *Endpoints) loadAccount(ctx context.Context, accountID string) (*config.Account, int, []error) {
	if accountID == "" {
		accountID = metrics.PublisherUnknown
	}
	acct, errs := account.GetAccount(ctx, e.cfg, e.accounts, accountID, e.metricsEngine)
	if len(errs) > 0 {
		if errortypes.ReadCode(errs[0]) == errortypes.AccountDisabledErrorCode {
			return nil, http.StatusServiceUnavailable, errs
		}
		return nil, http.StatusInternalServerError, errs
	}
	if !e.cfg.PriceFloors.Enabled {
		acct.PriceFloors.Enabled = false
	}
	return acct, http.StatusOK, nil
}

// conversions returns the rates for one auction: the host rates and the rates sent in the request.
func (e *Endpoints) conversions(request *openrtb2.BidRequest) currency.Conversions {
	requestExt, err := openrtb_ext.ParseRequestExt(request.Ext)
	if err != nil {
		return e.hostRates
	}
	return currency.GetAuctionCurrencyRates(e.hostRates, requestExt.Prebid.Currency)
}

func readBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxRequestBodyBytes {
		return fmt.Errorf("request body exceeds %d bytes", maxRequestBodyBytes)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &errortypes.FailedToUnmarshal{Message: err.Error()}
	}
	return nil
}

func validateRequest(request *openrtb2.BidRequest) error {
	if request == nil {
		return errors.New("request must be present")
	}
	if len(request.Imp) < 1 {
		return errors.New("request.imp must contain at least one element.")
	}
	for index, imp := range request.Imp {
		if imp.ID == "" {
			return fmt.Errorf("request.imp[%d] missing required field: \"id\"", index)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("Failed to marshal floors response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeErrors(w http.ResponseWriter, status int, errs []error) {
	writeJSON(w, status, struct {
		Errors []responseError `json:"errors"`
	}{Errors: toResponseErrors(errs)})
}
