package openrtb_ext

import (
	"github.com/prebid/prebid-server-floors/util/ptrutil"
)

// Defines strings for FetchStatus
const (
	FetchSuccess    = "success"
	FetchTimeout    = "timeout"
	FetchError      = "error"
	FetchInprogress = "inprogress"
	FetchNone       = "none"
)

// Defines strings for PriceFloorLocation
const (
	NoDataLocation  = "noData"
	RequestLocation = "request"
	FetchLocation   = "fetch"
)

// PriceFloorRules defines the contract for bidrequest.ext.prebid.floors
type PriceFloorRules struct {
	FloorMin           float64                `json:"floormin,omitempty"`
	FloorMinCur        string                 `json:"floormincur,omitempty"`
	SkipRate           *int                   `json:"skiprate,omitempty"`
	FloorEndpoint      *PriceFloorEndpoint    `json:"floorendpoint,omitempty"`
	Data               *PriceFloorData        `json:"data,omitempty"`
	Enforcement        *PriceFloorEnforcement `json:"enforcement,omitempty"`
	Enabled            *bool                  `json:"enabled,omitempty"`
	Skipped            *bool                  `json:"skipped,omitempty"`
	FloorProvider      string                 `json:"floorprovider,omitempty"`
	FetchStatus        string                 `json:"fetchstatus,omitempty"`
	PriceFloorLocation string                 `json:"location,omitempty"`
}

// GetEnabled will check if floors is enabled in request
func (floors *PriceFloorRules) GetEnabled() bool {
	if floors != nil && floors.Enabled != nil {
		return *floors.Enabled
	}
	return true
}

// GetFloorsSkippedFlag will return  floors skipped flag
func (floors *PriceFloorRules) GetFloorsSkippedFlag() bool {
	if floors != nil && floors.Skipped != nil {
		return *floors.Skipped
	}
	return false
}

// GetEnforcePBS will check if enforcePBS is enabled in request
func (floors *PriceFloorRules) GetEnforcePBS() bool {
	if floors != nil && floors.Enforcement != nil && floors.Enforcement.EnforcePBS != nil {
		return *floors.Enforcement.EnforcePBS
	}
	return true
}

// GetEnforceDealsFlag will return FloorDeals flag
func (floors *PriceFloorRules) GetEnforceDealsFlag() bool {
	if floors != nil && floors.Enforcement != nil && floors.Enforcement.FloorDeals != nil {
		return *floors.Enforcement.FloorDeals
	}
	return false
}

// GetEnforceRate returns the request enforcement rate, nil when not provided
func (floors *PriceFloorRules) GetEnforceRate() *int {
	if floors != nil && floors.Enforcement != nil {
		return floors.Enforcement.EnforceRate
	}
	return nil
}

// GetBidAdjustment returns enforcement.bidadjustment, defaulting to true
func (floors *PriceFloorRules) GetBidAdjustment() bool {
	if floors != nil && floors.Enforcement != nil && floors.Enforcement.BidAdjustment != nil {
		return *floors.Enforcement.BidAdjustment
	}
	return true
}

type PriceFloorEndpoint struct {
	URL string `json:"url,omitempty"`
}

type PriceFloorData struct {
	Currency             string                 `json:"currency,omitempty"`
	SkipRate             *int                   `json:"skiprate,omitempty"`
	FloorsSchemaVersion  int                    `json:"floorsschemaversion,omitempty"`
	ModelTimestamp       int                    `json:"modeltimestamp,omitempty"`
	ModelGroups          []PriceFloorModelGroup `json:"modelgroups,omitempty"`
	FloorProvider        string                 `json:"floorprovider,omitempty"`
	NoFloorSignalBidders []string               `json:"nofloorsignalbidders,omitempty"`
}

type PriceFloorModelGroup struct {
	Currency             string             `json:"currency,omitempty"`
	ModelWeight          *int               `json:"modelweight,omitempty"`
	ModelVersion         string             `json:"modelversion,omitempty"`
	SkipRate             *int               `json:"skiprate,omitempty"`
	Schema               PriceFloorSchema   `json:"schema,omitempty"`
	Values               map[string]float64 `json:"values,omitempty"`
	Default              float64            `json:"default,omitempty"`
	NoFloorSignalBidders []string           `json:"nofloorsignalbidders,omitempty"`
}

type PriceFloorSchema struct {
	Fields    []string `json:"fields,omitempty"`
	Delimiter string   `json:"delimiter,omitempty"`
}

type PriceFloorEnforcement struct {
	EnforceJS            *bool    `json:"enforcejs,omitempty"`
	EnforcePBS           *bool    `json:"enforcepbs,omitempty"`
	FloorDeals           *bool    `json:"floordeals,omitempty"`
	BidAdjustment        *bool    `json:"bidadjustment,omitempty"`
	EnforceRate          *int     `json:"enforcerate,omitempty"`
	NoFloorSignalBidders []string `json:"nofloorsignalbidders,omitempty"`
}

// ExtImpPrebidFloors defines the contract for imp.ext.prebid.floors
type ExtImpPrebidFloors struct {
	FloorRule      string  `json:"floorRule,omitempty"`
	FloorRuleValue float64 `json:"floorRuleValue,omitempty"`
	FloorValue     float64 `json:"floorValue,omitempty"`
	FloorMin       float64 `json:"floorMin,omitempty"`
	FloorMinCur    string  `json:"floorMinCur,omitempty"`
}

// DeepCopy returns a copy of the rules that shares no mutable state with the receiver.
func (floors *PriceFloorRules) DeepCopy() *PriceFloorRules {
	if floors == nil {
		return nil
	}

	newRules := *floors
	newRules.SkipRate = ptrutil.Clone(floors.SkipRate)
	newRules.Enabled = ptrutil.Clone(floors.Enabled)
	newRules.Skipped = ptrutil.Clone(floors.Skipped)
	newRules.FloorEndpoint = ptrutil.Clone(floors.FloorEndpoint)
	newRules.Data = floors.Data.DeepCopy()
	newRules.Enforcement = floors.Enforcement.DeepCopy()

	return &newRules
}

func (data *PriceFloorData) DeepCopy() *PriceFloorData {
	if data == nil {
		return nil
	}

	newData := *data
	newData.SkipRate = ptrutil.Clone(data.SkipRate)
	newData.NoFloorSignalBidders = ptrutil.CloneSlice(data.NoFloorSignalBidders)
	if data.ModelGroups != nil {
		newData.ModelGroups = make([]PriceFloorModelGroup, len(data.ModelGroups))
		for i := range data.ModelGroups {
			newData.ModelGroups[i] = data.ModelGroups[i].DeepCopy()
		}
	}
	return &newData
}

func (group PriceFloorModelGroup) DeepCopy() PriceFloorModelGroup {
	group.ModelWeight = ptrutil.Clone(group.ModelWeight)
	group.SkipRate = ptrutil.Clone(group.SkipRate)
	group.Values = ptrutil.CloneMap(group.Values)
	group.NoFloorSignalBidders = ptrutil.CloneSlice(group.NoFloorSignalBidders)
	group.Schema.Fields = ptrutil.CloneSlice(group.Schema.Fields)
	return group
}

func (enforcement *PriceFloorEnforcement) DeepCopy() *PriceFloorEnforcement {
	if enforcement == nil {
		return nil
	}

	newEnforcement := *enforcement
	newEnforcement.EnforceJS = ptrutil.Clone(enforcement.EnforceJS)
	newEnforcement.EnforcePBS = ptrutil.Clone(enforcement.EnforcePBS)
	newEnforcement.FloorDeals = ptrutil.Clone(enforcement.FloorDeals)
	newEnforcement.BidAdjustment = ptrutil.Clone(enforcement.BidAdjustment)
	newEnforcement.EnforceRate = ptrutil.Clone(enforcement.EnforceRate)
	newEnforcement.NoFloorSignalBidders = ptrutil.CloneSlice(enforcement.NoFloorSignalBidders)
	return &newEnforcement
}

// WithProvenance returns a copy of the rules tagged with where they came from and
// how the remote fetch went.
func (floors *PriceFloorRules) WithProvenance(fetchStatus, location string) *PriceFloorRules {
	newRules := floors.DeepCopy()
	if newRules == nil {
		newRules = &PriceFloorRules{}
	}
	newRules.FetchStatus = fetchStatus
	newRules.PriceFloorLocation = location
	return newRules
}

// WithSkipped returns a copy of the rules carrying the skip decision. A skipped
// rule set is reported as disabled.
func (floors *PriceFloorRules) WithSkipped(skipped bool) *PriceFloorRules {
	newRules := floors.DeepCopy()
	if newRules == nil {
		newRules = &PriceFloorRules{}
	}
	newRules.Skipped = ptrutil.ToPtr(skipped)
	newRules.Enabled = ptrutil.ToPtr(!skipped)
	return newRules
}

// WithModelGroup returns a copy of the rules whose data holds only the given group.
func (floors *PriceFloorRules) WithModelGroup(group PriceFloorModelGroup) *PriceFloorRules {
	newRules := floors.DeepCopy()
	if newRules == nil {
		newRules = &PriceFloorRules{}
	}
	if newRules.Data == nil {
		newRules.Data = &PriceFloorData{}
	}
	newRules.Data.ModelGroups = []PriceFloorModelGroup{group.DeepCopy()}
	return newRules
}
