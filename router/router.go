package router

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/currency"
	"github.com/prebid/prebid-server-floors/endpoints"
	"github.com/prebid/prebid-server-floors/endpoints/pricefloors"
	"github.com/prebid/prebid-server-floors/floors"
	prometheusmetrics "github.com/prebid/prebid-server-floors/metrics/prometheus"
	"github.com/prebid/prebid-server-floors/router/aspects"
	"github.com/prebid/prebid-server-floors/stored_requests"
	"github.com/prebid/prebid-server-floors/stored_requests/backends/empty_fetcher"
	"github.com/prebid/prebid-server-floors/stored_requests/backends/file_fetcher"
	"github.com/prebid/prebid-server-floors/util/randomutil"
	"github.com/rs/cors"
)

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *prometheusmetrics.Metrics
	Shutdown      func()
}

func getTransport(cfg *config.Configuration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   time.Duration(cfg.PriceFloors.Fetcher.MaxTimeoutMs) * time.Millisecond,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: cfg.PriceFloors.Fetcher.Worker,
		IdleConnTimeout:     90 * time.Second,
	}
}

func newAccountFetcher(cfg *config.Configuration) (stored_requests.AccountFetcher, error) {
	if !cfg.Accounts.Filesystem.Enabled {
		glog.Infof("No stored accounts configured, every account uses account_defaults")
		return empty_fetcher.EmptyFetcher{}, nil
	}
	fetcher, err := file_fetcher.NewFileFetcher(cfg.Accounts.Filesystem.DirectoryPath)
	if err != nil {
		return nil, fmt.Errorf("loading accounts from %s: %v", cfg.Accounts.Filesystem.DirectoryPath, err)
	}
	return fetcher, nil
}

// New wires the floors endpoints on a fresh router. Shutdown stops the background floors fetches.
func New(cfg *config.Configuration) (r *Router, err error) {
	r = &Router{
		Router:        httprouter.New(),
		MetricsEngine: prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus),
	}

	accounts, err := newAccountFetcher(cfg)
	if err != nil {
		return nil, err
	}

	floorFetcher := floors.NewPriceFloorFetcher(cfg.PriceFloors.Fetcher, &http.Client{Transport: getTransport(cfg)}, clock.New(), r.MetricsEngine)
	r.Shutdown = floorFetcher.Stop

	var hostRates currency.Conversions
	if rates := cfg.CurrencyConverter.NormalizedRates(); rates != nil {
		hostRates = currency.NewRates(rates)
	}

	floorsEndpoints, err := pricefloors.New(cfg, accounts, floorFetcher, hostRates, r.MetricsEngine, randomutil.RandomNumberGenerator{})
	if err != nil {
		floorFetcher.Stop()
		return nil, err
	}

	r.POST("/floors/enrich", aspects.QueuedRequestTimeout(floorsEndpoints.Enrich, cfg.RequestTimeoutHeaders))
	r.POST("/floors/auction", aspects.QueuedRequestTimeout(floorsEndpoints.Auction, cfg.RequestTimeoutHeaders))
	r.GET("/floors/fetch/:account", floorsEndpoints.Fetch)
	r.GET("/status", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r, nil
}

// Admin returns the handler of the admin port. /metrics is added by the server.
func Admin(revision string, cfg *config.Configuration) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/version", endpoints.NewVersionEndpoint(version, revision))
	mux.Handle("/currency/rates", endpoints.NewCurrencyRatesEndpoint(cfg.CurrencyConverter.NormalizedRates()))
	return mux
}

// Version is set at build time with -ldflags "-X github.com/prebid/prebid-server-floors/router.version=..."
var version string

// SupportCORS wraps handler with CORS support. With no configured origin, or with "*", every
// origin is echoed back.
//
// This is an inherent security risk. However, the floors endpoints don't use cookies for authorization.
//
// For more info, see:
//
// - https://github.com/rs/cors/issues/55
// - https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS/Errors/CORSNotSupportingCredentials
func SupportCORS(handler http.Handler, corsCfg config.CORS) http.Handler {
	options := cors.Options{
		AllowCredentials: corsCfg.AllowCredentials,
		AllowedHeaders:   []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
	}
	if allowsAnyOrigin(corsCfg.AllowedOrigins) {
		options.AllowOriginFunc = func(string) bool {
			return true
		}
	} else {
		options.AllowedOrigins = corsCfg.AllowedOrigins
	}
	return cors.New(options).Handler(handler)
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
