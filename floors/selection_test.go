package floors

import (
	"math"
	"math/rand"
	"testing"

	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"github.com/prebid/prebid-server-floors/util/ptrutil"
	"github.com/stretchr/testify/assert"
)

// fixedRandom returns the same draw every time and never shuffles.
type fixedRandom struct {
	intn  int
	float float64
}

func (r fixedRandom) Intn(n int) int {
	if r.intn >= n {
		return n - 1
	}
	return r.intn
}

func (r fixedRandom) Float64() float64 {
	return r.float
}

func (r fixedRandom) Shuffle(n int, swap func(i, j int)) {}

func weightedGroup(version string, weight *int) openrtb_ext.PriceFloorModelGroup {
	return openrtb_ext.PriceFloorModelGroup{
		ModelVersion: version,
		ModelWeight:  weight,
		Schema:       openrtb_ext.PriceFloorSchema{Fields: []string{MediaType}},
		Values:       map[string]float64{"*": 1},
	}
}

func TestSelectFloorModelGroupFrequency(t *testing.T) {
	groups := []openrtb_ext.PriceFloorModelGroup{
		weightedGroup("v20", ptrutil.ToPtr(20)),
		weightedGroup("v30", ptrutil.ToPtr(30)),
		weightedGroup("v50", ptrutil.ToPtr(50)),
	}
	rg := rand.New(rand.NewSource(42))

	const trials = 20000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		group, ok := selectFloorModelGroup(groups, rg)
		assert.True(t, ok)
		counts[group.ModelVersion]++
	}

	for version, expectedShare := range map[string]float64{"v20": 0.2, "v30": 0.3, "v50": 0.5} {
		share := float64(counts[version]) / trials
		assert.True(t, math.Abs(share-expectedShare) < 0.05, "group %s selected with share %v, expected about %v", version, share, expectedShare)
	}
}

func TestSelectFloorModelGroup(t *testing.T) {
	tests := []struct {
		name            string
		groups          []openrtb_ext.PriceFloorModelGroup
		rg              fixedRandom
		expectedVersion string
		expectedOK      bool
	}{
		{
			name:            "single_group_without_weight",
			groups:          []openrtb_ext.PriceFloorModelGroup{weightedGroup("v1", nil)},
			expectedVersion: "v1",
			expectedOK:      true,
		},
		{
			name: "lightest_group_first_on_lowest_draw",
			groups: []openrtb_ext.PriceFloorModelGroup{
				weightedGroup("heavy", ptrutil.ToPtr(90)),
				weightedGroup("light", ptrutil.ToPtr(10)),
			},
			rg:              fixedRandom{intn: 0},
			expectedVersion: "light",
			expectedOK:      true,
		},
		{
			name: "highest_draw_picks_heaviest",
			groups: []openrtb_ext.PriceFloorModelGroup{
				weightedGroup("heavy", ptrutil.ToPtr(90)),
				weightedGroup("light", ptrutil.ToPtr(10)),
			},
			rg:              fixedRandom{intn: 99},
			expectedVersion: "heavy",
			expectedOK:      true,
		},
		{
			name: "invalid_weight_is_filtered_out",
			groups: []openrtb_ext.PriceFloorModelGroup{
				weightedGroup("invalid", ptrutil.ToPtr(1000)),
				weightedGroup("valid", ptrutil.ToPtr(5)),
			},
			rg:              fixedRandom{intn: 4},
			expectedVersion: "valid",
			expectedOK:      true,
		},
		{
			name: "no_valid_group",
			groups: []openrtb_ext.PriceFloorModelGroup{
				weightedGroup("zero", ptrutil.ToPtr(0)),
			},
			expectedOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, ok := selectFloorModelGroup(tt.groups, tt.rg)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedVersion, group.ModelVersion)
		})
	}
}

func TestResolveSkipRate(t *testing.T) {
	tests := []struct {
		name      string
		rootRate  *int
		dataRate  *int
		groupRate *int
		expected  *int
	}{
		{
			name: "no_skip_rate",
		},
		{
			name:     "root_only",
			rootRate: ptrutil.ToPtr(10),
			expected: ptrutil.ToPtr(10),
		},
		{
			name:     "data_over_root",
			rootRate: ptrutil.ToPtr(10),
			dataRate: ptrutil.ToPtr(20),
			expected: ptrutil.ToPtr(20),
		},
		{
			name:      "model_group_over_data_and_root",
			rootRate:  ptrutil.ToPtr(10),
			dataRate:  ptrutil.ToPtr(20),
			groupRate: ptrutil.ToPtr(30),
			expected:  ptrutil.ToPtr(30),
		},
		{
			name:      "invalid_levels_are_ignored",
			rootRate:  ptrutil.ToPtr(10),
			dataRate:  ptrutil.ToPtr(200),
			groupRate: ptrutil.ToPtr(-1),
			expected:  ptrutil.ToPtr(10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := weightedGroup("v1", nil)
			group.SkipRate = tt.groupRate
			rules := &openrtb_ext.PriceFloorRules{
				SkipRate: tt.rootRate,
				Data: &openrtb_ext.PriceFloorData{
					SkipRate:    tt.dataRate,
					ModelGroups: []openrtb_ext.PriceFloorModelGroup{group},
				},
			}
			assert.Equal(t, tt.expected, resolveSkipRate(rules))
		})
	}
}

func TestShouldSkipFloors(t *testing.T) {
	rg := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		assert.True(t, shouldSkipFloors(ptrutil.ToPtr(100), rg), "skipRate 100 must always skip")
		assert.False(t, shouldSkipFloors(ptrutil.ToPtr(0), rg), "skipRate 0 must never skip")
	}
	assert.False(t, shouldSkipFloors(nil, rg))

	assert.True(t, shouldSkipFloors(ptrutil.ToPtr(50), fixedRandom{intn: 49}))
	assert.False(t, shouldSkipFloors(ptrutil.ToPtr(50), fixedRandom{intn: 50}))
}
