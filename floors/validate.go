package floors

import (
	"fmt"

	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
)

// ValidateRules checks the structure of a floor rule set. maxRules bounds the number of
// values of every model group and maxSchemaDims the number of its schema fields; 0 means
// unbounded. The first problem found is returned.
func ValidateRules(rules *openrtb_ext.PriceFloorRules, maxRules, maxSchemaDims int) error {
	if rules == nil {
		return floorValidationError("price floor rules must be present")
	}
	if err := validateRoot(rules); err != nil {
		return err
	}
	if rules.Data == nil {
		return floorValidationError("price floor rules data must be present")
	}
	return validateData(rules.Data, maxRules, maxSchemaDims)
}

// validateRequestRules accepts rules without data, a request may only carry floorMin or enforcement.
func validateRequestRules(rules *openrtb_ext.PriceFloorRules, maxRules, maxSchemaDims int) error {
	if err := validateRoot(rules); err != nil {
		return err
	}
	if rules.Data == nil {
		return nil
	}
	return validateData(rules.Data, maxRules, maxSchemaDims)
}

func validateRoot(rules *openrtb_ext.PriceFloorRules) error {
	if rules.SkipRate != nil && !isValidSkipRate(*rules.SkipRate) {
		return floorValidationError("price floor root skipRate must be in range(0-100), but was %d", *rules.SkipRate)
	}
	if rules.FloorMin < 0 {
		return floorValidationError("price floor floorMin must be positive float, but was %v", rules.FloorMin)
	}
	return nil
}

func validateData(data *openrtb_ext.PriceFloorData, maxRules, maxSchemaDims int) error {
	if data.SkipRate != nil && !isValidSkipRate(*data.SkipRate) {
		return floorValidationError("price floor data skipRate must be in range(0-100), but was %d", *data.SkipRate)
	}
	if len(data.ModelGroups) == 0 {
		return floorValidationError("price floor rules should contain at least one model group")
	}
	for i := range data.ModelGroups {
		if err := validateModelGroup(&data.ModelGroups[i], maxRules, maxSchemaDims); err != nil {
			return err
		}
	}
	return nil
}

func validateModelGroup(group *openrtb_ext.PriceFloorModelGroup, maxRules, maxSchemaDims int) error {
	if group.ModelWeight != nil && !isValidModelWeight(*group.ModelWeight) {
		return floorValidationError("price floor modelGroup modelWeight must be in range(1-100), but was %d", *group.ModelWeight)
	}
	if group.SkipRate != nil && !isValidSkipRate(*group.SkipRate) {
		return floorValidationError("price floor modelGroup skipRate must be in range(0-100), but was %d", *group.SkipRate)
	}
	if group.Default < 0 {
		return floorValidationError("price floor modelGroup default must be positive float, but was %v", group.Default)
	}
	if len(group.Values) == 0 {
		return floorValidationError("price floor rules values can't be null or empty, but were %v", group.Values)
	}
	if maxRules > 0 && len(group.Values) > maxRules {
		return floorValidationError("price floor rules number %d exceeded its maximum number %d", len(group.Values), maxRules)
	}
	if maxSchemaDims > 0 && len(group.Schema.Fields) > maxSchemaDims {
		return floorValidationError("price floor schema dimensions %d exceeded its maximum number %d", len(group.Schema.Fields), maxSchemaDims)
	}
	return nil
}

func isValidSkipRate(skipRate int) bool {
	return skipRate >= skipRateMin && skipRate <= skipRateMax
}

func isValidModelWeight(weight int) bool {
	return weight >= modelWeightMin && weight <= modelWeightMax
}

func floorValidationError(format string, args ...any) error {
	return &errortypes.FloorValidation{Message: fmt.Sprintf(format, args...)}
}
