package account

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/floors"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/stored_requests"
)

// GetAccount looks up the config.Account object referenced by the given accountID, with the floors
// config checked and replaced by the host defaults when it is invalid.
func GetAccount(ctx context.Context, cfg *config.Configuration, fetcher stored_requests.AccountFetcher, accountID string, me metrics.MetricsEngine) (account *config.Account, errs []error) {
	if accountJSON, accErrs := fetcher.FetchAccount(ctx, cfg.AccountDefaultsJSON(), accountID); len(accErrs) > 0 || accountJSON == nil {
		// accountID does not reference a valid account
		for _, e := range accErrs {
			if _, ok := e.(stored_requests.NotFoundError); !ok {
				errs = append(errs, e)
			}
		}
		if len(errs) > 0 {
			return nil, errs
		}
		// Make a copy of AccountDefaults instead of taking a reference
		pubAccount := cfg.AccountDefaults
		pubAccount.ID = accountID
		account = &pubAccount
	} else {
		// accountID resolved to a valid account already merged over AccountDefaults
		account = &config.Account{}
		if err := json.Unmarshal(accountJSON, account); err != nil {
			return nil, []error{&errortypes.MalformedAcct{
				Message: fmt.Sprintf("The floors account config for account id \"%s\" is malformed. Please reach out to the host.", accountID),
			}}
		}
		// Fill in ID if needed, so it can be left out of account definition
		if len(account.ID) == 0 {
			account.ID = accountID
		}
	}

	if account.Disabled {
		return nil, []error{&errortypes.AccountDisabled{
			Message: fmt.Sprintf("The host has disabled Account ID: %s, please reach out to the host.", accountID),
		}}
	}

	resolved := floors.ResolveAccountFloors(*account, config.DefaultAccountPriceFloors(), me)
	return &resolved, nil
}
