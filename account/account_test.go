package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/stored_requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	jsonpatch "gopkg.in/evanphx/json-patch.v4"
)

var mockAccountData = map[string]json.RawMessage{
	"valid_acct":     json.RawMessage(`{"disabled":false,"price_floors":{"enforce_floors_rate":50}}`),
	"disabled_acct":  json.RawMessage(`{"disabled":true}`),
	"malformed_acct": json.RawMessage(`{"disabled":"invalid type"}`),
	"bad_floors":     json.RawMessage(`{"price_floors":{"enforce_floors_rate":500,"use_dynamic_data":false}}`),
	"named_acct":     json.RawMessage(`{"id":"other_name"}`),
}

type mockAccountFetcher struct {
	err error
}

func (af mockAccountFetcher) FetchAccount(ctx context.Context, accountDefaultsJSON json.RawMessage, accountID string) (json.RawMessage, []error) {
	if af.err != nil {
		return nil, []error{af.err}
	}
	if account, ok := mockAccountData[accountID]; ok {
		merged, err := jsonpatch.MergePatch(accountDefaultsJSON, account)
		if err != nil {
			return nil, []error{err}
		}
		return merged, nil
	}
	return nil, []error{stored_requests.NotFoundError{ID: accountID, DataType: "Account"}}
}

func accountTestConfig(t *testing.T, disabled bool) *config.Configuration {
	cfg := &config.Configuration{
		AccountDefaults: config.Account{
			Disabled:    disabled,
			PriceFloors: config.DefaultAccountPriceFloors(),
		},
	}
	require.NoError(t, cfg.MarshalAccountDefaults())
	return cfg
}

func TestGetAccount(t *testing.T) {
	testCases := []struct {
		accountID string
		// account_defaults.disabled
		disabled bool
		// expected error, or nil if account should be found
		err error
	}{
		// pubID given but is not a valid host account (does not exist)
		{accountID: "doesnt_exist_acct", disabled: false, err: nil},
		{accountID: "doesnt_exist_acct", disabled: true, err: &errortypes.AccountDisabled{}},

		// pubID given and matches a valid host account with Disabled: false
		{accountID: "valid_acct", disabled: false, err: nil},
		{accountID: "valid_acct", disabled: true, err: nil},

		// pubID given and matches a host account explicitly disabled (Disabled: true on account json)
		{accountID: "disabled_acct", disabled: false, err: &errortypes.AccountDisabled{}},
		{accountID: "disabled_acct", disabled: true, err: &errortypes.AccountDisabled{}},

		// pubID given and matches a host account that has a malformed config
		{accountID: "malformed_acct", disabled: false, err: &errortypes.MalformedAcct{}},
		{accountID: "malformed_acct", disabled: true, err: &errortypes.MalformedAcct{}},

		// account not provided (does not exist)
		{accountID: "", disabled: false, err: nil},
		{accountID: "", disabled: true, err: &errortypes.AccountDisabled{}},
	}

	for _, test := range testCases {
		description := fmt.Sprintf(`ID=%s/disabled=%t`, test.accountID, test.disabled)
		t.Run(description, func(t *testing.T) {
			cfg := accountTestConfig(t, test.disabled)

			account, errs := GetAccount(context.Background(), cfg, mockAccountFetcher{}, test.accountID, &metrics.NilMetricsEngine{})

			if test.err == nil {
				assert.Empty(t, errs)
				assert.Equal(t, test.accountID, account.ID, "account.ID must match requested ID")
				assert.Equal(t, false, account.Disabled, "returned account must not be disabled")
			} else {
				assert.NotEmpty(t, errs, "expected errors but got success")
				assert.Nil(t, account, "return account must be nil on error")
				assert.IsType(t, test.err, errs[0], "error is of unexpected type")
			}
		})
	}
}

func TestGetAccountMergesDefaults(t *testing.T) {
	cfg := accountTestConfig(t, false)

	me := &metrics.MetricsEngineMock{}

	account, errs := GetAccount(context.Background(), cfg, mockAccountFetcher{}, "valid_acct", me)

	require.Empty(t, errs)
	expected := config.DefaultAccountPriceFloors()
	expected.EnforceFloorsRate = 50
	assert.Equal(t, expected, account.PriceFloors)
	me.AssertNotCalled(t, "RecordInvalidAccountFloorsConfig", mock.Anything)
}

func TestGetAccountKeepsStoredID(t *testing.T) {
	cfg := accountTestConfig(t, false)

	account, errs := GetAccount(context.Background(), cfg, mockAccountFetcher{}, "named_acct", &metrics.NilMetricsEngine{})

	require.Empty(t, errs)
	assert.Equal(t, "other_name", account.ID)
}

func TestGetAccountInvalidFloorsFallBackToDefaults(t *testing.T) {
	cfg := accountTestConfig(t, false)
	me := &metrics.MetricsEngineMock{}
	me.On("RecordInvalidAccountFloorsConfig", "bad_floors").Return()

	account, errs := GetAccount(context.Background(), cfg, mockAccountFetcher{}, "bad_floors", me)

	require.Empty(t, errs)
	assert.Equal(t, config.DefaultAccountPriceFloors(), account.PriceFloors)
	me.AssertExpectations(t)
}

func TestGetAccountFetcherError(t *testing.T) {
	cfg := accountTestConfig(t, false)
	fetchErr := errors.New("storage unavailable")

	account, errs := GetAccount(context.Background(), cfg, mockAccountFetcher{err: fetchErr}, "valid_acct", &metrics.NilMetricsEngine{})

	assert.Nil(t, account)
	assert.Equal(t, []error{fetchErr}, errs)
}
