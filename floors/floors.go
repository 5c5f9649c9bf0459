package floors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buger/jsonparser"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/config"
	"github.com/prebid/prebid-server-floors/currency"
	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/logger"
	"github.com/prebid/prebid-server-floors/metrics"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/mathutil"
	"github.com/prebid/prebid-server-floors/util/ptrutil"
	"github.com/prebid/prebid-server-floors/util/randomutil"
	"golang.org/x/time/rate"
)

const (
	defaultDelimiter string  = "|"
	catchAll         string  = "*"
	defaultCurrency  string  = "USD"
	skipRateMin      int     = 0
	skipRateMax      int     = 100
	modelWeightMax   int     = 100
	modelWeightMin   int     = 1
	enforceRateMin   int     = 0
	enforceRateMax   int     = 100
)

var requestFloorsLogger = logger.NewConditionalLogger(rate.Every(time.Second), 10, nil)

// EnrichWithPriceFloors resolves the rules of the auction, selects a model group and writes
// the resolved floor of every imp into a copy of the request. floors.enabled=false on the
// account or request returns the given request untouched.
func EnrichWithPriceFloors(request *openrtb2.BidRequest, account config.Account, conversions currency.Conversions, fetcher FloorFetcher, rg randomutil.RandomGenerator, me metrics.MetricsEngine) (*openrtb2.BidRequest, []error) {
	if request == nil {
		return nil, []error{errors.New("Empty bidrequest")}
	}

	if !account.PriceFloors.Enabled {
		return request, nil
	}

	requestExt, err := openrtb_ext.ParseRequestExt(request.Ext)
	if err != nil {
		return request, []error{&errortypes.Warning{
			Message:     fmt.Sprintf("Failed to parse request ext, floors not applied: %v", err),
			WarningCode: errortypes.InvalidRequestFloorsWarningCode,
		}}
	}
	requestFloors := requestExt.Prebid.Floors
	if !requestFloors.GetEnabled() {
		return request, nil
	}

	if rg == nil {
		rg = randomutil.RandomNumberGenerator{}
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	me.RecordFloorsRequestForAccount(account.ID)

	rules, errs := resolveFloors(account, request.ID, requestFloors, conversions, fetcher, me)

	if data := rules.Data; data != nil && len(data.ModelGroups) > 0 {
		if group, ok := selectFloorModelGroup(data.ModelGroups, rg); ok {
			rules = rules.WithModelGroup(group)
		} else {
			rules = withoutModelGroups(rules)
		}
	}

	skipRate := resolveSkipRate(rules)
	skipped := shouldSkipFloors(skipRate, rg)
	rules = rules.WithSkipped(skipped)
	rules.SkipRate = ptrutil.Clone(skipRate)

	enriched := *request
	if skipped {
		me.RecordFloorsSkipped(account.ID)
	} else if selectedModelGroup(rules) != nil {
		var impErrs []error
		enriched.Imp, impErrs = updateImpsWithFloors(request, rules, conversions)
		for range impErrs {
			me.RecordFloorsResolveError(account.ID)
		}
		errs = append(errs, impErrs...)
	}

	enriched.Ext, err = updateFloorsInRequest(request.Ext, rules)
	if err != nil {
		return request, append(errs, err)
	}
	return &enriched, errs
}

// resolveFloors picks provider rules when the fetch succeeded, else the request rules, else
// an empty rule set.
func resolveFloors(account config.Account, requestID string, requestFloors *openrtb_ext.PriceFloorRules, conversions currency.Conversions, fetcher FloorFetcher, me metrics.MetricsEngine) (*openrtb_ext.PriceFloorRules, []error) {
	fetchResult := FetchResult{FetchStatus: openrtb_ext.FetchNone}
	if fetcher != nil {
		fetchResult = fetcher.Fetch(account)
	}
	me.RecordFloorsFetch(account.ID, fetchResult.FetchStatus)

	if account.PriceFloors.UseDynamicData && fetchResult.FetchStatus == openrtb_ext.FetchSuccess && fetchResult.Rules != nil {
		merged := mergeFloors(requestFloors, fetchResult.Rules, conversions)
		return withFloorProvider(merged.WithProvenance(fetchResult.FetchStatus, openrtb_ext.FetchLocation)), nil
	}

	var errs []error
	if requestFloors != nil {
		err := validateRequestRules(requestFloors, account.PriceFloors.MaxRule, account.PriceFloors.MaxSchemaDims)
		if err == nil {
			return withFloorProvider(requestFloors.WithProvenance(fetchResult.FetchStatus, openrtb_ext.RequestLocation)), nil
		}
		errs = append(errs, &errortypes.Warning{
			Message:     fmt.Sprintf("Failed to parse price floors from request, with a reason : %v", err),
			WarningCode: errortypes.InvalidRequestFloorsWarningCode,
		})
		requestFloorsLogger.Warnf(account.ID, "Failed to parse price floors from request with id: '%s', with a reason : %v", requestID, err)
	}

	return new(openrtb_ext.PriceFloorRules).WithProvenance(fetchResult.FetchStatus, openrtb_ext.NoDataLocation), errs
}

// mergeFloors layers the request enabled, enforceRate and floorMin settings over the provider rules.
func mergeFloors(requestFloors, providerFloors *openrtb_ext.PriceFloorRules, conversions currency.Conversions) *openrtb_ext.PriceFloorRules {
	merged := providerFloors.DeepCopy()
	if requestFloors == nil {
		return merged
	}

	if requestFloors.Enabled != nil {
		merged.Enabled = ptrutil.ToPtr(*requestFloors.Enabled && providerFloors.GetEnabled())
	}

	if requestFloors.Enforcement != nil && requestFloors.Enforcement.EnforceRate != nil {
		if merged.Enforcement == nil {
			merged.Enforcement = &openrtb_ext.PriceFloorEnforcement{}
		}
		merged.Enforcement.EnforceRate = ptrutil.Clone(requestFloors.Enforcement.EnforceRate)
	}

	merged.FloorMin, merged.FloorMinCur = mergeFloorMin(requestFloors, providerFloors, conversions)
	return merged
}

// mergeFloorMin prefers the request floorMin. A provider floorMin is converted into the
// request currency when both are known.
func mergeFloorMin(requestFloors, providerFloors *openrtb_ext.PriceFloorRules, conversions currency.Conversions) (float64, string) {
	requestCur := requestFloors.FloorMinCur
	if requestCur == "" && requestFloors.Data != nil {
		requestCur = requestFloors.Data.Currency
	}
	providerCur := providerFloors.FloorMinCur
	if providerCur == "" && providerFloors.Data != nil {
		providerCur = providerFloors.Data.Currency
	}

	switch {
	case requestFloors.FloorMin > 0 && requestCur != "":
		return requestFloors.FloorMin, requestCur
	case requestFloors.FloorMin > 0:
		return requestFloors.FloorMin, providerCur
	case providerFloors.FloorMin > 0 && requestCur != "" && providerCur != "" && requestCur != providerCur && conversions != nil:
		if rate, err := conversions.GetRate(providerCur, requestCur); err == nil {
			return mathutil.RoundTo4Decimals(providerFloors.FloorMin * rate), requestCur
		}
	}
	return providerFloors.FloorMin, providerCur
}

func withFloorProvider(rules *openrtb_ext.PriceFloorRules) *openrtb_ext.PriceFloorRules {
	if rules.Data != nil && rules.Data.FloorProvider != "" {
		rules.FloorProvider = rules.Data.FloorProvider
	}
	return rules
}

func withoutModelGroups(rules *openrtb_ext.PriceFloorRules) *openrtb_ext.PriceFloorRules {
	newRules := rules.DeepCopy()
	newRules.Data.ModelGroups = nil
	return newRules
}

// updateImpsWithFloors returns a copy of the imps carrying the resolved floors. An imp whose
// floor cannot be resolved is copied unchanged and reported as a warning.
func updateImpsWithFloors(request *openrtb2.BidRequest, rules *openrtb_ext.PriceFloorRules, conversions currency.Conversions) ([]openrtb2.Imp, []error) {
	var errs []error
	imps := make([]openrtb2.Imp, len(request.Imp))
	copy(imps, request.Imp)

	for i := range imps {
		imp := &imps[i]
		result, err := Resolve(request, rules, imp, conversions, "")
		if err != nil {
			errs = append(errs, &errortypes.Warning{
				Message:     fmt.Sprintf("Cannot resolve bid floor for imp %s, error: %v", imp.ID, err),
				WarningCode: errortypes.FloorResolveWarningCode,
			})
			continue
		}
		if result == nil {
			continue
		}

		ext, err := updateImpExtWithFloorDetails(imp.Ext, result)
		if err != nil {
			errs = append(errs, &errortypes.Warning{
				Message:     fmt.Sprintf("Cannot update imp %s ext with floors, error: %v", imp.ID, err),
				WarningCode: errortypes.FloorResolveWarningCode,
			})
			continue
		}
		imp.BidFloor = result.FloorValue
		imp.BidFloorCur = result.Currency
		imp.Ext = ext
	}
	return imps, errs
}

func updateImpExtWithFloorDetails(impExt json.RawMessage, result *FloorResult) (json.RawMessage, error) {
	ext := []byte("{}")
	if len(impExt) > 0 {
		ext = append([]byte(nil), impExt...)
	}

	var err error
	if result.FloorRule != "" {
		if ext, err = jsonparser.Set(ext, []byte(`"`+result.FloorRule+`"`), "prebid", "floors", "floorRule"); err != nil {
			return nil, err
		}
		if ext, err = jsonparser.Set(ext, formatPrice(result.FloorRuleValue), "prebid", "floors", "floorRuleValue"); err != nil {
			return nil, err
		}
	}
	if ext, err = jsonparser.Set(ext, formatPrice(result.FloorValue), "prebid", "floors", "floorValue"); err != nil {
		return nil, err
	}
	return ext, nil
}

// updateFloorsInRequest writes the final rules to ext.prebid.floors of a copy of ext.
func updateFloorsInRequest(requestExt json.RawMessage, rules *openrtb_ext.PriceFloorRules) (json.RawMessage, error) {
	floorsJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}

	ext := []byte("{}")
	if len(requestExt) > 0 {
		ext = append([]byte(nil), requestExt...)
	}
	return jsonparser.Set(ext, floorsJSON, "prebid", "floors")
}

func formatPrice(price float64) []byte {
	value, _ := json.Marshal(roundFloor(price))
	return value
}
