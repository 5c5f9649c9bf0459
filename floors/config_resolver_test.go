package floors

import (
	"testing"

	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/stretchr/testify/assert"
)

func TestResolveAccountFloors(t *testing.T) {
	validFloors := config.DefaultAccountPriceFloors()
	validFloors.EnforceFloorsRate = 50

	invalidFloors := config.DefaultAccountPriceFloors()
	invalidFloors.EnforceFloorsRate = 101

	fallback := config.DefaultAccountPriceFloors()

	tests := []struct {
		name          string
		account       config.Account
		expected      config.Account
		expectMetrics bool
	}{
		{
			name:     "valid_config_is_kept",
			account:  config.Account{ID: "valid", PriceFloors: validFloors},
			expected: config.Account{ID: "valid", PriceFloors: validFloors},
		},
		{
			name:          "invalid_config_is_replaced",
			account:       config.Account{ID: "invalid", PriceFloors: invalidFloors},
			expected:      config.Account{ID: "invalid", PriceFloors: fallback},
			expectMetrics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			me := &metrics.MetricsEngineMock{}
			if tt.expectMetrics {
				me.On("RecordInvalidAccountFloorsConfig", tt.account.ID).Return()
			}

			got := ResolveAccountFloors(tt.account, fallback, me)

			assert.Equal(t, tt.expected, got)
			me.AssertExpectations(t)
		})
	}
}

func TestResolveAccountFloorsNilMetrics(t *testing.T) {
	invalidFloors := config.DefaultAccountPriceFloors()
	invalidFloors.Fetcher.Timeout = 0

	got := ResolveAccountFloors(config.Account{ID: "a", PriceFloors: invalidFloors}, config.DefaultAccountPriceFloors(), nil)
	assert.Equal(t, config.DefaultAccountPriceFloors(), got.PriceFloors)
}
