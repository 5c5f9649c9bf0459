package pricefloors

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/floors"
)

type enrichResponse struct {
	Request *openrtb2.BidRequest `json:"request"`
	Errors  []responseError      `json:"errors,omitempty"`
}

// Enrich handles POST /floors/enrich?account=ID. The body is an OpenRTB bid request; the answer
// carries the request with ext.prebid.floors and the imp floors resolved.
func (e *Endpoints) Enrich(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request := &openrtb2.BidRequest{}
	if err := readBody(r, request); err != nil {
		writeErrors(w, http.StatusBadRequest, []error{err})
		return
	}
	if err := validateRequest(request); err != nil {
		writeErrors(w, http.StatusBadRequest, []error{err})
		return
	}

	acct, status, errs := e.loadAccount(r.Context(), r.URL.Query().Get("account"))
	if status != http.StatusOK {
		writeErrors(w, status, errs)
		return
	}

	enriched, errs := floors.EnrichWithPriceFloors(request, *acct, e.conversions(request), e.fetcher, e.rg, e.metricsEngine)
	writeJSON(w, http.StatusOK, enrichResponse{
		Request: enriched,
		Errors:  toResponseErrors(errs),
	})
}
