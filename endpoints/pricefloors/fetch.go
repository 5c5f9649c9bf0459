package pricefloors

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
)

type fetchResponse struct {
	FetchStatus string                       `json:"fetchstatus"`
	Rules       *openrtb_ext.PriceFloorRules `json:"rules,omitempty"`
}

// Fetch handles GET /floors/fetch/:account. It reads the provider rules cached for the account,
// starting a fetch when none is cached.
func (e *Endpoints) Fetch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acct, status, errs := e.loadAccount(r.Context(), ps.ByName("account"))
	if status != http.StatusOK {
		writeErrors(w, status, errs)
		return
	}

	result := e.fetcher.Fetch(*acct)
	writeJSON(w, http.StatusOK, fetchResponse{
		FetchStatus: result.FetchStatus,
		Rules:       result.Rules,
	})
}
