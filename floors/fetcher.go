package floors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond"
	validator "github.com/asaskevich/govalidator"
	"github.com/benbjohnson/clock"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/logger"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"golang.org/x/net/context/ctxhttp"
)

type FloorFetcher interface {
	Fetch(account config.Account) FetchResult
}

// FetchResult carries the provider rules for an account, if any, and how the fetch went.
type FetchResult struct {
	Rules       *openrtb_ext.PriceFloorRules
	FetchStatus string
}

type WorkerPool interface {
	TrySubmit(task func()) bool
	Stop()
}

// PriceFloorFetcher fetches floor rules from the provider configured for each account and
// caches them until max-age. At most one fetch per account is in flight.
type PriceFloorFetcher struct {
	pool          WorkerPool
	clock         clock.Clock
	httpClient    *http.Client
	softTimeout   time.Duration
	maxTimeout    time.Duration
	metricsEngine metrics.MetricsEngine

	// inflight holds the ids of accounts with a provider request on the way
	inflight sync.Map

	mu         sync.RWMutex
	cache      map[string]*accountFetchContext
	generation uint64
	stopped    bool
}

type accountFetchContext struct {
	rules        *openrtb_ext.PriceFloorRules
	expiresAt    time.Time
	generation   uint64
	evictTimer   *clock.Timer
	refreshTimer *clock.Timer
}

func (c *accountFetchContext) stopTimers() {
	if c.evictTimer != nil {
		c.evictTimer.Stop()
	}
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
}

func NewPriceFloorFetcher(cfg config.PriceFloorFetcher, httpClient *http.Client, clk clock.Clock, metricsEngine metrics.MetricsEngine) *PriceFloorFetcher {
	return newPriceFloorFetcher(pond.New(cfg.Worker, cfg.Capacity), cfg, httpClient, clk, metricsEngine)
}

func newPriceFloorFetcher(pool WorkerPool, cfg config.PriceFloorFetcher, httpClient *http.Client, clk clock.Clock, metricsEngine metrics.MetricsEngine) *PriceFloorFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if clk == nil {
		clk = clock.New()
	}
	if metricsEngine == nil {
		metricsEngine = &metrics.NilMetricsEngine{}
	}
	return &PriceFloorFetcher{
		pool:          pool,
		clock:         clk,
		httpClient:    httpClient,
		softTimeout:   cfg.SoftTimeout(),
		maxTimeout:    cfg.MaxTimeout(),
		metricsEngine: metricsEngine,
		cache:         make(map[string]*accountFetchContext),
	}
}

// Fetch returns the cached rules of the account or starts a provider fetch and waits for it
// up to the soft timeout. A fetch outliving the soft timeout still fills the cache.
func (f *PriceFloorFetcher) Fetch(account config.Account) FetchResult {
	if rules, ok := f.cached(account.ID); ok {
		return FetchResult{Rules: rules, FetchStatus: openrtb_ext.FetchSuccess}
	}

	fetchConfig := account.PriceFloors.Fetcher
	if !fetchConfig.Enabled {
		return FetchResult{FetchStatus: openrtb_ext.FetchNone}
	}

	if len(fetchConfig.URL) == 0 || !validator.IsURL(fetchConfig.URL) {
		logger.Errorf("Malformed fetch.url: '%s', passed for account %s", fetchConfig.URL, account.ID)
		return FetchResult{FetchStatus: openrtb_ext.FetchError}
	}

	if _, loaded := f.inflight.LoadOrStore(account.ID, struct{}{}); loaded {
		return FetchResult{FetchStatus: openrtb_ext.FetchInprogress}
	}

	done := make(chan *openrtb_ext.PriceFloorRules, 1)
	if !f.submit(func() { done <- f.fetchAndStore(account.ID, fetchConfig) }) {
		f.inflight.Delete(account.ID)
		f.metricsEngine.RecordDynamicFetchFailure(account.ID, metrics.FetchFailurePool)
		logger.Errorf("Floors fetch for account %s dropped, worker pool is full", account.ID)
		return FetchResult{FetchStatus: openrtb_ext.FetchError}
	}

	var timeout <-chan time.Time
	if f.softTimeout > 0 {
		timeout = f.clock.After(f.softTimeout)
	}

	select {
	case rules := <-done:
		if rules == nil {
			return FetchResult{FetchStatus: openrtb_ext.FetchError}
		}
		return FetchResult{Rules: rules, FetchStatus: openrtb_ext.FetchSuccess}
	case <-timeout:
		return FetchResult{FetchStatus: openrtb_ext.FetchTimeout}
	}
}

// Stop cancels every eviction and refresh timer and shuts down the worker pool.
func (f *PriceFloorFetcher) Stop() {
	f.mu.Lock()
	f.stopped = true
	for _, entry := range f.cache {
		entry.stopTimers()
	}
	f.mu.Unlock()

	f.pool.Stop()
	logger.Infof("Price Floor fetcher terminated")
}

func (f *PriceFloorFetcher) submit(task func()) bool {
	f.mu.RLock()
	stopped := f.stopped
	f.mu.RUnlock()
	if stopped {
		return false
	}
	return f.pool.TrySubmit(task)
}

func (f *PriceFloorFetcher) cached(accountID string) (*openrtb_ext.PriceFloorRules, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entry, ok := f.cache[accountID]
	if !ok || !f.clock.Now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.rules, true
}

// fetchAndStore runs on a pool worker. The in-flight marker is cleared only after the cache
// is updated so no caller can start a second fetch in between.
func (f *PriceFloorFetcher) fetchAndStore(accountID string, fetchConfig config.AccountFloorFetch) *openrtb_ext.PriceFloorRules {
	defer f.inflight.Delete(accountID)

	rules, maxAge, code, err := f.fetchAndValidate(fetchConfig)
	if err != nil {
		f.metricsEngine.RecordDynamicFetchFailure(accountID, code)
		logger.Errorf("Failed to fetch price floor from provider for fetch.url: '%s', account = %s with a reason : %v", fetchConfig.URL, accountID, err)
		return nil
	}

	ttl := time.Duration(fetchConfig.MaxAge) * time.Second
	if maxAge > 0 {
		ttl = time.Duration(maxAge) * time.Second
	}
	f.store(accountID, fetchConfig, rules, ttl)
	return rules
}

func (f *PriceFloorFetcher) store(accountID string, fetchConfig config.AccountFloorFetch, rules *openrtb_ext.PriceFloorRules, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}

	if previous, ok := f.cache[accountID]; ok {
		previous.stopTimers()
	}

	f.generation++
	generation := f.generation
	entry := &accountFetchContext{
		rules:      rules,
		expiresAt:  f.clock.Now().Add(ttl),
		generation: generation,
	}
	entry.evictTimer = f.clock.AfterFunc(ttl, func() { f.evict(accountID, generation) })
	if fetchConfig.Period > 0 {
		period := time.Duration(fetchConfig.Period) * time.Second
		entry.refreshTimer = f.clock.AfterFunc(period, func() { f.refresh(accountID, fetchConfig) })
	}
	f.cache[accountID] = entry
	logger.Infof("Updated price floors cache for account %s, expires in %v", accountID, ttl)
}

// evict removes the entry only if no newer fetch replaced it since the timer was set.
func (f *PriceFloorFetcher) evict(accountID string, generation uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry, ok := f.cache[accountID]; ok && entry.generation == generation {
		delete(f.cache, accountID)
	}
}

func (f *PriceFloorFetcher) refresh(accountID string, fetchConfig config.AccountFloorFetch) {
	if _, loaded := f.inflight.LoadOrStore(accountID, struct{}{}); loaded {
		return
	}
	if !f.submit(func() { f.fetchAndStore(accountID, fetchConfig) }) {
		f.inflight.Delete(accountID)
		f.metricsEngine.RecordDynamicFetchFailure(accountID, metrics.FetchFailurePool)
	}
}

func (f *PriceFloorFetcher) fetchAndValidate(fetchConfig config.AccountFloorFetch) (*openrtb_ext.PriceFloorRules, int, string, error) {
	body, maxAge, code, err := f.fetchFloorRulesFromURL(fetchConfig)
	if err != nil {
		return nil, 0, code, err
	}

	var rules openrtb_ext.PriceFloorRules
	if err := json.Unmarshal(body, &rules); err != nil {
		return nil, 0, metrics.FetchFailureDecode, &errortypes.FailedToUnmarshal{
			Message: fmt.Sprintf("failed to parse price floor response: %v", err),
		}
	}

	if err := ValidateRules(&rules, fetchConfig.MaxRules, fetchConfig.MaxSchemaDims); err != nil {
		return nil, 0, metrics.FetchFailureValidate, err
	}

	return &rules, maxAge, "", nil
}

// fetchFloorRulesFromURL returns the provider body and the max-age it announced, 0 when absent.
func (f *PriceFloorFetcher) fetchFloorRulesFromURL(fetchConfig config.AccountFloorFetch) ([]byte, int, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), f.requestTimeout(fetchConfig))
	defer cancel()

	httpResp, err := ctxhttp.Get(ctx, f.httpClient, fetchConfig.URL)
	if err != nil {
		return nil, 0, metrics.FetchFailureRequest, fmt.Errorf("error while getting response from url: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, 0, metrics.FetchFailureStatus, &errortypes.BadServerResponse{
			Message: fmt.Sprintf("provider respond with status %d", httpResp.StatusCode),
		}
	}

	var reader io.Reader = httpResp.Body
	maxBytes := int64(fetchConfig.MaxFileSizeKB) * 1024
	if maxBytes > 0 {
		reader = io.LimitReader(httpResp.Body, maxBytes+1)
	}

	respBody, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, metrics.FetchFailureRequest, fmt.Errorf("unable to read response: %w", err)
	}
	if maxBytes > 0 && int64(len(respBody)) > maxBytes {
		return nil, 0, metrics.FetchFailureSize, &errortypes.BadServerResponse{
			Message: fmt.Sprintf("floor file size is greater than %d kb", fetchConfig.MaxFileSizeKB),
		}
	}
	if len(strings.TrimSpace(string(respBody))) == 0 {
		return nil, 0, metrics.FetchFailureStatus, &errortypes.BadServerResponse{
			Message: "response body can not be empty",
		}
	}

	return respBody, parseMaxAge(httpResp.Header.Get("Cache-Control"), fetchConfig.URL), "", nil
}

func (f *PriceFloorFetcher) requestTimeout(fetchConfig config.AccountFloorFetch) time.Duration {
	timeout := time.Duration(fetchConfig.Timeout) * time.Millisecond
	if f.maxTimeout > 0 && (timeout <= 0 || timeout > f.maxTimeout) {
		timeout = f.maxTimeout
	}
	return timeout
}

// parseMaxAge reads max-age out of a Cache-Control header such as "public, max-age=600".
func parseMaxAge(cacheControl, fetchURL string) int {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		value, found := strings.CutPrefix(directive, "max-age=")
		if !found {
			continue
		}
		maxAge, err := strconv.Atoi(value)
		if err != nil || maxAge <= 0 {
			logger.Errorf("Can't parse Cache Control header '%s', fetch.url: '%s'", cacheControl, fetchURL)
			return 0
		}
		return maxAge
	}
	return 0
}
