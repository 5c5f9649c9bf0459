package config

import (
	"fmt"
	"math"
)

// Account represents a publisher account configuration
type Account struct {
	ID          string             `mapstructure:"id" json:"id"`
	Disabled    bool               `mapstructure:"disabled" json:"disabled"`
	PriceFloors AccountPriceFloors `mapstructure:"price_floors" json:"price_floors"`
}

// AccountPriceFloors represents account specific price floors configuration
type AccountPriceFloors struct {
	Enabled                bool              `mapstructure:"enabled" json:"enabled"`
	EnforceFloorsRate      int               `mapstructure:"enforce_floors_rate" json:"enforce_floors_rate"`
	AdjustForBidAdjustment bool              `mapstructure:"adjust_for_bid_adjustment" json:"adjust_for_bid_adjustment"`
	EnforceDealFloors      bool              `mapstructure:"enforce_deal_floors" json:"enforce_deal_floors"`
	UseDynamicData         bool              `mapstructure:"use_dynamic_data" json:"use_dynamic_data"`
	MaxRule                int               `mapstructure:"max_rules" json:"max_rules"`
	MaxSchemaDims          int               `mapstructure:"max_schema_dims" json:"max_schema_dims"`
	Fetcher                AccountFloorFetch `mapstructure:"fetch" json:"fetch"`
}

// AccountFloorFetch defines the configuration for dynamic floors fetching.
type AccountFloorFetch struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	URL           string `mapstructure:"url" json:"url"`
	Timeout       int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	MaxFileSizeKB int    `mapstructure:"max_file_size_kb" json:"max_file_size_kb"`
	MaxRules      int    `mapstructure:"max_rules" json:"max_rules"`
	MaxAge        int    `mapstructure:"max_age_sec" json:"max_age_sec"`
	Period        int    `mapstructure:"period_sec" json:"period_sec"`
	MaxSchemaDims int    `mapstructure:"max_schema_dims" json:"max_schema_dims"`
	AccountID     string `mapstructure:"accountID" json:"accountID"`
}

const (
	minFetchPeriodSec = 300
	minFetchMaxAgeSec = 600
	minFetchTimeoutMs = 10
	maxFetchTimeoutMs = 10000
	maxSchemaDims     = 20
)

// DefaultAccountPriceFloors returns a fresh copy of the host default floors config.
// Fetching stays disabled, so it is safe as a fallback for an invalid account config.
func DefaultAccountPriceFloors() AccountPriceFloors {
	return AccountPriceFloors{
		Enabled:                true,
		EnforceFloorsRate:      100,
		AdjustForBidAdjustment: true,
		EnforceDealFloors:      false,
		UseDynamicData:         true,
		MaxRule:                100,
		MaxSchemaDims:          3,
		Fetcher: AccountFloorFetch{
			Enabled:       false,
			Timeout:       3000,
			MaxFileSizeKB: 100,
			MaxRules:      1000,
			MaxAge:        86400,
			Period:        3600,
			MaxSchemaDims: 0,
		},
	}
}

// Validate appends one error per out of range setting.
func (pf *AccountPriceFloors) Validate(errs []error) []error {
	if pf.EnforceFloorsRate < 0 || pf.EnforceFloorsRate > 100 {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.enforce_floors_rate should be between 0 and 100`))
	}

	if pf.MaxRule < 0 || pf.MaxRule > math.MaxInt32 {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.max_rules should be between 0 and %v`, math.MaxInt32))
	}

	if pf.MaxSchemaDims < 0 || pf.MaxSchemaDims > maxSchemaDims {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.max_schema_dims should be between 0 and %v`, maxSchemaDims))
	}

	if pf.Fetcher.Period < minFetchPeriodSec {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.period_sec should not be less than %v seconds`, minFetchPeriodSec))
	}

	if pf.Fetcher.MaxAge < minFetchMaxAgeSec || pf.Fetcher.MaxAge > math.MaxInt32 {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.max_age_sec should not be less than %v seconds and greater than maximum integer value`, minFetchMaxAgeSec))
	}

	if pf.Fetcher.Period > pf.Fetcher.MaxAge {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.period_sec should be less than account_defaults.price_floors.fetch.max_age_sec`))
	}

	if pf.Fetcher.Timeout < minFetchTimeoutMs || pf.Fetcher.Timeout > maxFetchTimeoutMs {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.timeout_ms should be between %v to 10,000 miliseconds`, minFetchTimeoutMs))
	}

	if pf.Fetcher.MaxRules < 0 {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.max_rules should be greater than or equal to 0`))
	}

	if pf.Fetcher.MaxFileSizeKB < 0 {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.max_file_size_kb should be greater than or equal to 0`))
	}

	if pf.Fetcher.MaxSchemaDims < 0 || pf.Fetcher.MaxSchemaDims > maxSchemaDims {
		errs = append(errs, fmt.Errorf(`account_defaults.price_floors.fetch.max_schema_dims should not be less than 0 and greater than %v`, maxSchemaDims))
	}

	return errs
}

// IsAdjustForBidAdjustmentEnabled returns true if price floors should be divided by bid adjustment factors
func (pf *AccountPriceFloors) IsAdjustForBidAdjustmentEnabled() bool {
	return pf.AdjustForBidAdjustment
}
