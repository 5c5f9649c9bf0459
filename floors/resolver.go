package floors

import (
	"fmt"
	"math"
	"strings"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/currency"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/mathutil"
)

// FloorResult is the floor resolved for one impression.
type FloorResult struct {
	FloorValue     float64
	FloorRule      string
	FloorRuleValue float64
	Currency       string
}

// Resolve matches the imp against the first model group of rules. floorCur, when set, overrides
// the rules currency. A nil result with a nil error means no floor applies to the imp.
func Resolve(request *openrtb2.BidRequest, rules *openrtb_ext.PriceFloorRules, imp *openrtb2.Imp, conversions currency.Conversions, floorCur string) (*FloorResult, error) {
	group := selectedModelGroup(rules)
	if group == nil || len(group.Schema.Fields) == 0 || len(group.Values) == 0 {
		return nil, nil
	}

	delimiter := group.Schema.Delimiter
	if delimiter == "" {
		delimiter = defaultDelimiter
	}

	values := lowerCaseKeys(group.Values)
	candidates := createRuleCandidates(group.Schema, request, imp)
	rule, matched := findRule(values, strings.ToLower(delimiter), candidates)

	floor := group.Default
	var ruleValue float64
	if matched {
		ruleValue = values[rule]
		floor = ruleValue
	}

	rulesCur := resolveRulesCurrency(rules, group, floorCur)
	floorMin, err := resolveFloorMin(rules, imp, rulesCur, conversions)
	if err != nil {
		return nil, err
	}

	// floorMin is a lower bound even when the matched rule or the default is 0
	floor = math.Max(floor, floorMin)
	if floor <= 0 {
		return nil, nil
	}

	return &FloorResult{
		FloorValue:     roundFloor(floor),
		FloorRule:      rule,
		FloorRuleValue: ruleValue,
		Currency:       rulesCur,
	}, nil
}

func selectedModelGroup(rules *openrtb_ext.PriceFloorRules) *openrtb_ext.PriceFloorModelGroup {
	if rules == nil || rules.Data == nil || len(rules.Data.ModelGroups) == 0 {
		return nil
	}
	return &rules.Data.ModelGroups[0]
}

func resolveRulesCurrency(rules *openrtb_ext.PriceFloorRules, group *openrtb_ext.PriceFloorModelGroup, floorCur string) string {
	switch {
	case floorCur != "":
		return floorCur
	case group.Currency != "":
		return group.Currency
	case rules.Data != nil && rules.Data.Currency != "":
		return rules.Data.Currency
	}
	return defaultCurrency
}

// resolveFloorMin returns floorMin in the rules currency. imp.ext.prebid.floors overrides
// the request level value.
func resolveFloorMin(rules *openrtb_ext.PriceFloorRules, imp *openrtb2.Imp, rulesCur string, conversions currency.Conversions) (float64, error) {
	floorMin, floorMinCur := rules.FloorMin, rules.FloorMinCur

	if impExt, err := openrtb_ext.ParseImpExt(imp.Ext); err == nil && impExt.Prebid != nil && impExt.Prebid.Floors != nil {
		if impExt.Prebid.Floors.FloorMin > 0 {
			floorMin = impExt.Prebid.Floors.FloorMin
		}
		if impExt.Prebid.Floors.FloorMinCur != "" {
			floorMinCur = impExt.Prebid.Floors.FloorMinCur
		}
	}

	if floorMin <= 0 || floorMinCur == "" || strings.EqualFold(floorMinCur, rulesCur) {
		return floorMin, nil
	}

	if conversions == nil {
		return 0, fmt.Errorf("no currency conversion available from %s to %s", floorMinCur, rulesCur)
	}
	rate, err := conversions.GetRate(floorMinCur, rulesCur)
	if err != nil {
		return 0, fmt.Errorf("error in getting FloorMin value: %w", err)
	}
	return floorMin * rate, nil
}

func lowerCaseKeys(values map[string]float64) map[string]float64 {
	lowered := make(map[string]float64, len(values))
	for key, value := range values {
		lowered[strings.ToLower(key)] = value
	}
	return lowered
}

func roundFloor(value float64) float64 {
	return mathutil.RoundTo4Decimals(value)
}
