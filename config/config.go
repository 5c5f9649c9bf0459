package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	ExternalURL string `mapstructure:"external_url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AdminPort   int    `mapstructure:"admin_port"`
	EnableGzip  bool   `mapstructure:"enable_gzip"`

	PriceFloors PriceFloors `mapstructure:"price_floors"`
	// AccountDefaults is merged under every stored account.
	AccountDefaults Account `mapstructure:"account_defaults"`
	// accountDefaultsJSON is the JSON form of AccountDefaults, computed once after validation.
	accountDefaultsJSON json.RawMessage

	Accounts          StoredAccounts    `mapstructure:"accounts"`
	CurrencyConverter CurrencyConverter `mapstructure:"currency_converter"`
	Metrics           Metrics           `mapstructure:"metrics"`
	CORS              CORS              `mapstructure:"cors"`

	RequestTimeoutHeaders RequestTimeoutHeaders `mapstructure:"request_timeout_headers"`
}

// PriceFloors holds the host wide floors settings.
type PriceFloors struct {
	Enabled bool              `mapstructure:"enabled"`
	Fetcher PriceFloorFetcher `mapstructure:"fetcher"`
}

// PriceFloorFetcher sizes the background fetch machinery shared by all accounts.
type PriceFloorFetcher struct {
	Worker        int `mapstructure:"worker"`
	Capacity      int `mapstructure:"capacity"`
	SoftTimeoutMs int `mapstructure:"soft_timeout_ms"`
	MaxTimeoutMs  int `mapstructure:"max_timeout_ms"`
}

func (f PriceFloorFetcher) SoftTimeout() time.Duration {
	return time.Duration(f.SoftTimeoutMs) * time.Millisecond
}

func (f PriceFloorFetcher) MaxTimeout() time.Duration {
	return time.Duration(f.MaxTimeoutMs) * time.Millisecond
}

func (f PriceFloorFetcher) validate(errs []error) []error {
	if f.Worker < 1 {
		errs = append(errs, fmt.Errorf("price_floors.fetcher.worker should be greater than 0"))
	}
	if f.Capacity < 0 {
		errs = append(errs, fmt.Errorf("price_floors.fetcher.capacity should be greater than or equal to 0"))
	}
	if f.SoftTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("price_floors.fetcher.soft_timeout_ms should be greater than 0"))
	}
	if f.MaxTimeoutMs < f.SoftTimeoutMs {
		errs = append(errs, fmt.Errorf("price_floors.fetcher.max_timeout_ms should not be less than price_floors.fetcher.soft_timeout_ms"))
	}
	return errs
}

// StoredAccounts points at the directory holding one "{account_id}.json" file per account.
type StoredAccounts struct {
	Filesystem FileFetcherConfig `mapstructure:"filesystem"`
}

type FileFetcherConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DirectoryPath string `mapstructure:"directorypath"`
}

// CurrencyConverter carries the static host rates, e.g. {"USD": {"EUR": 0.92}}.
type CurrencyConverter struct {
	Rates map[string]map[string]float64 `mapstructure:"rates"`
}

// NormalizedRates returns the rates with upper-cased currency codes. Viper lower-cases map keys.
func (cc CurrencyConverter) NormalizedRates() map[string]map[string]float64 {
	if len(cc.Rates) == 0 {
		return nil
	}
	rates := make(map[string]map[string]float64, len(cc.Rates))
	for from, conversions := range cc.Rates {
		to := make(map[string]float64, len(conversions))
		for cur, rate := range conversions {
			to[strings.ToUpper(cur)] = rate
		}
		rates[strings.ToUpper(from)] = to
	}
	return rates
}

type Metrics struct {
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

// PrometheusMetrics defines the namespace and subsystem of every floors metric.
type PrometheusMetrics struct {
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (cfg *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillisRaw) * time.Millisecond
}

type CORS struct {
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
}

// RequestTimeoutHeaders names the headers a load balancer sets with the seconds a request spent
// queued and the seconds it may stay queued.
type RequestTimeoutHeaders struct {
	RequestTimeInQueue    string `mapstructure:"request_time_in_queue"`
	RequestTimeoutInQueue string `mapstructure:"request_timeout_in_queue"`
}

func (cfg *Configuration) validate() []error {
	var errs []error
	if cfg.Port == cfg.AdminPort {
		errs = append(errs, fmt.Errorf("port and admin_port should differ, both are %d", cfg.Port))
	}
	errs = cfg.PriceFloors.Fetcher.validate(errs)
	errs = cfg.AccountDefaults.PriceFloors.Validate(errs)
	if cfg.Accounts.Filesystem.Enabled && cfg.Accounts.Filesystem.DirectoryPath == "" {
		errs = append(errs, fmt.Errorf("accounts.filesystem.directorypath must be set when accounts.filesystem.enabled is true"))
	}
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}

	glog.Infof("Resolved configuration: host=%q port=%d admin_port=%d price_floors.enabled=%t", c.Host, c.Port, c.AdminPort, c.PriceFloors.Enabled)

	if errs := c.validate(); len(errs) > 0 {
		return &c, fmt.Errorf("validation errors: %w", errors.Join(errs...))
	}

	if err := c.MarshalAccountDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarshalAccountDefaults compiles AccountDefaults into the JSON format used for the merge patch
func (cfg *Configuration) MarshalAccountDefaults() error {
	var err error
	if cfg.accountDefaultsJSON, err = json.Marshal(cfg.AccountDefaults); err != nil {
		glog.Warningf("converting %+v to json: %v", cfg.AccountDefaults, err)
	}
	return err
}

// AccountDefaultsJSON returns the precompiled JSON form of account_defaults
func (cfg *Configuration) AccountDefaultsJSON() json.RawMessage {
	return cfg.accountDefaultsJSON
}

// SetupViper sets the defaults and env bindings for every option. It reads filename
// from the working directory or /etc/config when given.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)

	v.SetDefault("price_floors.enabled", true)
	v.SetDefault("price_floors.fetcher.worker", 20)
	v.SetDefault("price_floors.fetcher.capacity", 20000)
	v.SetDefault("price_floors.fetcher.soft_timeout_ms", 100)
	v.SetDefault("price_floors.fetcher.max_timeout_ms", 5000)

	defaults := DefaultAccountPriceFloors()
	v.SetDefault("account_defaults.disabled", false)
	v.SetDefault("account_defaults.price_floors.enabled", defaults.Enabled)
	v.SetDefault("account_defaults.price_floors.enforce_floors_rate", defaults.EnforceFloorsRate)
	v.SetDefault("account_defaults.price_floors.adjust_for_bid_adjustment", defaults.AdjustForBidAdjustment)
	v.SetDefault("account_defaults.price_floors.enforce_deal_floors", defaults.EnforceDealFloors)
	v.SetDefault("account_defaults.price_floors.use_dynamic_data", defaults.UseDynamicData)
	v.SetDefault("account_defaults.price_floors.max_rules", defaults.MaxRule)
	v.SetDefault("account_defaults.price_floors.max_schema_dims", defaults.MaxSchemaDims)
	v.SetDefault("account_defaults.price_floors.fetch.enabled", defaults.Fetcher.Enabled)
	v.SetDefault("account_defaults.price_floors.fetch.url", defaults.Fetcher.URL)
	v.SetDefault("account_defaults.price_floors.fetch.timeout_ms", defaults.Fetcher.Timeout)
	v.SetDefault("account_defaults.price_floors.fetch.max_file_size_kb", defaults.Fetcher.MaxFileSizeKB)
	v.SetDefault("account_defaults.price_floors.fetch.max_rules", defaults.Fetcher.MaxRules)
	v.SetDefault("account_defaults.price_floors.fetch.max_age_sec", defaults.Fetcher.MaxAge)
	v.SetDefault("account_defaults.price_floors.fetch.period_sec", defaults.Fetcher.Period)
	v.SetDefault("account_defaults.price_floors.fetch.max_schema_dims", defaults.Fetcher.MaxSchemaDims)

	v.SetDefault("accounts.filesystem.enabled", false)
	v.SetDefault("accounts.filesystem.directorypath", "./stored_requests/data/by_id/accounts")

	v.SetDefault("metrics.prometheus.namespace", "floors")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)

	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("request_timeout_headers.request_time_in_queue", "")
	v.SetDefault("request_timeout_headers.request_timeout_in_queue", "")

	v.SetEnvPrefix("PBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("No config file %s found, using defaults and environment: %v", filename, err)
		}
	}
}
