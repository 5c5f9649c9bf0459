package empty_fetcher

import (
	"context"
	"testing"

	"github.com/prebid/prebid-server-floors/stored_requests"
	"github.com/stretchr/testify/assert"
)

func TestEmptyFetcherAccount(t *testing.T) {
	account, errs := EmptyFetcher{}.FetchAccount(context.Background(), []byte(`{}`), "acct")

	assert.Nil(t, account)
	assert.Equal(t, []error{stored_requests.NotFoundError{ID: "acct", DataType: "Account"}}, errs)
}
