package floors

import (
	"time"

	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/logger"
	"github.com/prebid/prebid-server-floors/metrics"
	"golang.org/x/time/rate"
)

// One message per account per minute is enough to spot a broken account config.
var accountConfigLogger = logger.NewConditionalLogger(rate.Every(time.Minute), 1, nil)

// ResolveAccountFloors returns the account unchanged when its floors config is valid. Otherwise
// the floors config is replaced by fallback and the problem is logged and counted.
func ResolveAccountFloors(account config.Account, fallback config.AccountPriceFloors, me metrics.MetricsEngine) config.Account {
	errs := account.PriceFloors.Validate(nil)
	if len(errs) == 0 {
		return account
	}

	accountConfigLogger.Errorf(account.ID, "Invalid price floors config for account %s, using defaults: %v", account.ID, errs[0])
	if me != nil {
		me.RecordInvalidAccountFloorsConfig(account.ID)
	}

	account.PriceFloors = fallback
	return account
}
