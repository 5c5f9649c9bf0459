package floors

import (
	"testing"

	"github.com/prebid/prebid-server-floors/errortypes"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/ptrutil"
	"github.com/stretchr/testify/assert"
)

func validRules() *openrtb_ext.PriceFloorRules {
	return &openrtb_ext.PriceFloorRules{
		Data: &openrtb_ext.PriceFloorData{
			ModelGroups: []openrtb_ext.PriceFloorModelGroup{{
				Schema: openrtb_ext.PriceFloorSchema{Fields: []string{MediaType}},
				Values: map[string]float64{"banner": 1.5, "*": 1},
			}},
		},
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(rules *openrtb_ext.PriceFloorRules)
		maxRules      int
		maxSchemaDims int
		wantErr       string
	}{
		{
			name:   "valid_rules",
			modify: func(rules *openrtb_ext.PriceFloorRules) {},
		},
		{
			name:    "root_skip_rate_-1",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.SkipRate = ptrutil.ToPtr(-1) },
			wantErr: "price floor root skipRate must be in range(0-100), but was -1",
		},
		{
			name:    "root_skip_rate_101",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.SkipRate = ptrutil.ToPtr(101) },
			wantErr: "price floor root skipRate must be in range(0-100), but was 101",
		},
		{
			name:   "root_skip_rate_0",
			modify: func(rules *openrtb_ext.PriceFloorRules) { rules.SkipRate = ptrutil.ToPtr(0) },
		},
		{
			name:   "root_skip_rate_100",
			modify: func(rules *openrtb_ext.PriceFloorRules) { rules.SkipRate = ptrutil.ToPtr(100) },
		},
		{
			name:    "negative_floor_min",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.FloorMin = -1 },
			wantErr: "price floor floorMin must be positive float, but was -1",
		},
		{
			name:    "missing_data",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data = nil },
			wantErr: "price floor rules data must be present",
		},
		{
			name:    "data_skip_rate_101",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.SkipRate = ptrutil.ToPtr(101) },
			wantErr: "price floor data skipRate must be in range(0-100), but was 101",
		},
		{
			name:    "no_model_groups",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups = nil },
			wantErr: "price floor rules should contain at least one model group",
		},
		{
			name:    "model_weight_0",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].ModelWeight = ptrutil.ToPtr(0) },
			wantErr: "price floor modelGroup modelWeight must be in range(1-100), but was 0",
		},
		{
			name:    "model_weight_101",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].ModelWeight = ptrutil.ToPtr(101) },
			wantErr: "price floor modelGroup modelWeight must be in range(1-100), but was 101",
		},
		{
			name:   "model_weight_1",
			modify: func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].ModelWeight = ptrutil.ToPtr(1) },
		},
		{
			name:   "model_weight_100",
			modify: func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].ModelWeight = ptrutil.ToPtr(100) },
		},
		{
			name:    "model_group_skip_rate_-1",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].SkipRate = ptrutil.ToPtr(-1) },
			wantErr: "price floor modelGroup skipRate must be in range(0-100), but was -1",
		},
		{
			name:    "negative_default",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].Default = -2 },
			wantErr: "price floor modelGroup default must be positive float, but was -2",
		},
		{
			name:    "empty_values",
			modify:  func(rules *openrtb_ext.PriceFloorRules) { rules.Data.ModelGroups[0].Values = nil },
			wantErr: "price floor rules values can't be null or empty, but were map[]",
		},
		{
			name:     "too_many_rules",
			modify:   func(rules *openrtb_ext.PriceFloorRules) {},
			maxRules: 1,
			wantErr:  "price floor rules number 2 exceeded its maximum number 1",
		},
		{
			name:     "rules_at_limit",
			modify:   func(rules *openrtb_ext.PriceFloorRules) {},
			maxRules: 2,
		},
		{
			name: "too_many_schema_fields",
			modify: func(rules *openrtb_ext.PriceFloorRules) {
				rules.Data.ModelGroups[0].Schema.Fields = []string{MediaType, Size, Domain, Country}
			},
			maxSchemaDims: 3,
			wantErr:       "price floor schema dimensions 4 exceeded its maximum number 3",
		},
		{
			name: "schema_fields_at_limit",
			modify: func(rules *openrtb_ext.PriceFloorRules) {
				rules.Data.ModelGroups[0].Schema.Fields = []string{MediaType, Size, Domain}
			},
			maxSchemaDims: 3,
		},
		{
			name: "schema_fields_unbounded",
			modify: func(rules *openrtb_ext.PriceFloorRules) {
				rules.Data.ModelGroups[0].Schema.Fields = []string{MediaType, Size, Domain, Country, DeviceType, Channel}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := validRules()
			tt.modify(rules)

			err := ValidateRules(rules, tt.maxRules, tt.maxSchemaDims)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
			assert.IsType(t, &errortypes.FloorValidation{}, err)
		})
	}
}

func TestValidateRulesNil(t *testing.T) {
	assert.EqualError(t, ValidateRules(nil, 0, 0), "price floor rules must be present")
}

func TestValidateRequestRules(t *testing.T) {
	assert.NoError(t, validateRequestRules(&openrtb_ext.PriceFloorRules{FloorMin: 1}, 0, 0), "request rules may omit data")
	assert.Error(t, validateRequestRules(&openrtb_ext.PriceFloorRules{FloorMin: -1}, 0, 0))
	assert.Error(t, validateRequestRules(&openrtb_ext.PriceFloorRules{Data: &openrtb_ext.PriceFloorData{}}, 0, 0))
}
