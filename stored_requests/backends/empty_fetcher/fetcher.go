package empty_fetcher

import (
	"context"
	"encoding/json"

	"github.com/prebid/prebid-server-floors/stored_requests"
)

// EmptyFetcher is a nil-object which has no stored accounts.
// If the host is configured to use this, every account resolves to account_defaults.
type EmptyFetcher struct{}

func (fetcher EmptyFetcher) FetchAccount(ctx context.Context, accountDefaultJSON json.RawMessage, accountID string) (json.RawMessage, []error) {
	return nil, []error{stored_requests.NotFoundError{ID: accountID, DataType: "Account"}}
}
