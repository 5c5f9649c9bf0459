package floors

import (
	"sort"

	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/randomutil"
)

// selectFloorModelGroup draws one group with probability proportional to its weight. Groups
// with an invalid weight or skip rate never take part. ok is false when none is left.
func selectFloorModelGroup(modelGroups []openrtb_ext.PriceFloorModelGroup, rg randomutil.RandomGenerator) (group openrtb_ext.PriceFloorModelGroup, ok bool) {
	validGroups := make([]openrtb_ext.PriceFloorModelGroup, 0, len(modelGroups))
	totalModelWeight := 0
	for _, modelGroup := range modelGroups {
		if !isValidModelGroup(modelGroup) {
			continue
		}
		validGroups = append(validGroups, modelGroup)
		totalModelWeight += modelGroupWeight(modelGroup)
	}
	if len(validGroups) == 0 {
		return group, false
	}

	rg.Shuffle(len(validGroups), func(i, j int) {
		validGroups[i], validGroups[j] = validGroups[j], validGroups[i]
	})
	sort.SliceStable(validGroups, func(i, j int) bool {
		return modelGroupWeight(validGroups[i]) < modelGroupWeight(validGroups[j])
	})

	winWeight := rg.Intn(totalModelWeight) + 1
	for _, modelGroup := range validGroups {
		winWeight -= modelGroupWeight(modelGroup)
		if winWeight <= 0 {
			return modelGroup, true
		}
	}
	return validGroups[len(validGroups)-1], true
}

func isValidModelGroup(modelGroup openrtb_ext.PriceFloorModelGroup) bool {
	if modelGroup.SkipRate != nil && !isValidSkipRate(*modelGroup.SkipRate) {
		return false
	}
	return modelGroup.ModelWeight == nil || isValidModelWeight(*modelGroup.ModelWeight)
}

func modelGroupWeight(modelGroup openrtb_ext.PriceFloorModelGroup) int {
	if modelGroup.ModelWeight == nil {
		return 1
	}
	return *modelGroup.ModelWeight
}

// resolveSkipRate returns the first valid skip rate of the selected model group, the data
// and the root, in that order. nil means floors are never skipped.
func resolveSkipRate(rules *openrtb_ext.PriceFloorRules) *int {
	if group := selectedModelGroup(rules); group != nil && group.SkipRate != nil && isValidSkipRate(*group.SkipRate) {
		return group.SkipRate
	}
	if rules.Data != nil && rules.Data.SkipRate != nil && isValidSkipRate(*rules.Data.SkipRate) {
		return rules.Data.SkipRate
	}
	if rules.SkipRate != nil && isValidSkipRate(*rules.SkipRate) {
		return rules.SkipRate
	}
	return nil
}

func shouldSkipFloors(skipRate *int, rg randomutil.RandomGenerator) bool {
	return skipRate != nil && rg.Intn(skipRateMax) < *skipRate
}
