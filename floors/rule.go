package floors

import (
	"fmt"
	"math/bits"
	"regexp"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/mssola/user_agent"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/prebid-server-floors/openrtb_ext"
	"golang.org/x/text/language"
)

const (
	SiteDomain string = "siteDomain"
	PubDomain  string = "pubDomain"
	Domain     string = "domain"
	Bundle     string = "bundle"
	Channel    string = "channel"
	MediaType  string = "mediaType"
	Size       string = "size"
	GptSlot    string = "gptSlot"
	AdUnitCode string = "adUnitCode"
	PbAdSlot   string = "pbAdSlot"
	Country    string = "country"
	DeviceType string = "deviceType"
	Tablet     string = "tablet"
	Phone      string = "phone"
	Desktop    string = "desktop"
)

var tabletPattern = regexp.MustCompile(`(?i)tablet|ipad|windows nt.*touch|touch.*windows nt`)

// ruleCandidates holds, per schema field, the values a rule may use for it. An empty
// list means the field can only match the wildcard.
type ruleCandidates [][]string

func createRuleCandidates(schema openrtb_ext.PriceFloorSchema, request *openrtb2.BidRequest, imp *openrtb2.Imp) ruleCandidates {
	candidates := make(ruleCandidates, 0, len(schema.Fields))
	mediaTypes := impMediaTypes(imp)

	for _, field := range schema.Fields {
		var values []string
		switch field {
		case SiteDomain:
			values = nonBlank(getSiteDomain(request))
		case PubDomain:
			values = nonBlank(getPublisherDomain(request))
		case Domain:
			values = nonBlank(getSiteDomain(request), getPublisherDomain(request))
		case Bundle:
			values = nonBlank(getBundle(request))
		case Channel:
			values = nonBlank(getChannelName(request))
		case MediaType:
			values = getMediaTypeValues(mediaTypes)
		case Size:
			values = nonBlank(getSizeValue(imp, mediaTypes))
		case GptSlot:
			values = nonBlank(getGptSlot(imp))
		case AdUnitCode:
			values = nonBlank(getAdUnitCode(imp))
		case PbAdSlot:
			values = nonBlank(getPbAdSlot(imp))
		case Country:
			values = nonBlank(getDeviceCountry(request))
		case DeviceType:
			values = nonBlank(getDeviceType(request))
		}
		candidates = append(candidates, values)
	}
	return candidates
}

// findRule returns the most specific key of values matching the candidates, trying
// wildcards on the rightmost fields first.
func findRule(values map[string]float64, delimiter string, candidates ruleCandidates) (string, bool) {
	numFields := len(candidates)
	positions := make([]int, numFields)
	for i := range positions {
		positions[i] = i
	}

	combinations := append([][]int{{}}, generateAllCombinations(positions)...)
	for _, wildcards := range combinations {
		for _, key := range expandRuleKeys(candidates, wildcards, delimiter) {
			if _, ok := values[key]; ok {
				return key, true
			}
		}
	}
	return "", false
}

func generateAllCombinations(positions []int) [][]int {
	segNum := len(positions)
	var combinations [][]int
	for numWildCard := 1; numWildCard <= len(positions); numWildCard++ {
		combinations = append(combinations, GenerateCombinations(positions, numWildCard, segNum)...)
	}
	return combinations
}

// expandRuleKeys builds every key for one wildcard combination. Fields without a
// candidate value are wildcarded anyway.
func expandRuleKeys(candidates ruleCandidates, wildcards []int, delimiter string) []string {
	wildcard := make(map[int]bool, len(wildcards))
	for _, pos := range wildcards {
		wildcard[pos] = true
	}

	keys := []string{""}
	for i, values := range candidates {
		if wildcard[i] || len(values) == 0 {
			values = []string{catchAll}
		}
		expanded := make([]string, 0, len(keys)*len(values))
		for _, prefix := range keys {
			for _, value := range values {
				if i == 0 {
					expanded = append(expanded, value)
				} else {
					expanded = append(expanded, prefix+delimiter+value)
				}
			}
		}
		keys = expanded
	}
	return keys
}

// GenerateCombinations returns every subset of set with exactly numWildCard elements, ordered
// so that subsets made of later positions come first. segNum is the number of schema fields.
func GenerateCombinations(set []int, numWildCard int, segNum int) (comb [][]int) {
	length := uint(len(set))

	if numWildCard > len(set) {
		numWildCard = len(set)
	}

	for subsetBits := 1; subsetBits < (1 << length); subsetBits++ {
		if numWildCard > 0 && bits.OnesCount(uint(subsetBits)) != numWildCard {
			continue
		}
		var subset []int
		for object := uint(0); object < length; object++ {
			if (subsetBits>>object)&1 == 1 {
				subset = append(subset, set[object])
			}
		}
		comb = append(comb, subset)
	}

	// Sort combinations based on priority mentioned in https://docs.prebid.org/dev-docs/modules/floors.html#rule-selection-process
	sort.SliceStable(comb, func(i, j int) bool {
		wt1 := 0
		for k := 0; k < len(comb[i]); k++ {
			wt1 += 1 << (segNum - 1 - comb[i][k])
		}

		wt2 := 0
		for k := 0; k < len(comb[j]); k++ {
			wt2 += 1 << (segNum - 1 - comb[j][k])
		}
		return wt1 < wt2
	})

	return comb
}

func nonBlank(values ...string) []string {
	var result []string
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		result = append(result, value)
	}
	return result
}

// impMediaTypes lists the media kinds the imp offers. Video is split by placement.
func impMediaTypes(imp *openrtb2.Imp) []openrtb_ext.BidType {
	var mediaTypes []openrtb_ext.BidType
	if imp.Banner != nil {
		mediaTypes = append(mediaTypes, openrtb_ext.BidTypeBanner)
	}
	if imp.Video != nil {
		if imp.Video.Placement == 0 || imp.Video.Placement == 1 {
			mediaTypes = append(mediaTypes, openrtb_ext.BidTypeVideo)
		} else {
			mediaTypes = append(mediaTypes, openrtb_ext.BidTypeVideoOutstream)
		}
	}
	if imp.Native != nil {
		mediaTypes = append(mediaTypes, openrtb_ext.BidTypeNative)
	}
	if imp.Audio != nil {
		mediaTypes = append(mediaTypes, openrtb_ext.BidTypeAudio)
	}
	return mediaTypes
}

func getMediaTypeValues(mediaTypes []openrtb_ext.BidType) []string {
	if len(mediaTypes) != 1 {
		return nil
	}
	if mediaTypes[0] == openrtb_ext.BidTypeVideo {
		return []string{string(openrtb_ext.BidTypeVideo), string(openrtb_ext.BidTypeVideoInstream)}
	}
	return []string{string(mediaTypes[0])}
}

func getSizeValue(imp *openrtb2.Imp, mediaTypes []openrtb_ext.BidType) string {
	if len(mediaTypes) != 1 {
		return ""
	}

	var width, height int64
	switch mediaTypes[0] {
	case openrtb_ext.BidTypeBanner:
		switch len(imp.Banner.Format) {
		case 0:
			if imp.Banner.W != nil && imp.Banner.H != nil {
				width, height = *imp.Banner.W, *imp.Banner.H
			}
		case 1:
			width, height = imp.Banner.Format[0].W, imp.Banner.Format[0].H
		}
	case openrtb_ext.BidTypeVideo, openrtb_ext.BidTypeVideoOutstream:
		if imp.Video.W != nil && imp.Video.H != nil {
			width, height = *imp.Video.W, *imp.Video.H
		}
	}

	if width == 0 || height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func getSiteDomain(request *openrtb2.BidRequest) string {
	switch {
	case request.Site != nil && request.Site.Domain != "":
		return request.Site.Domain
	case request.App != nil && request.App.Domain != "":
		return request.App.Domain
	case request.DOOH != nil && request.DOOH.Domain != "":
		return request.DOOH.Domain
	}
	return ""
}

func getPublisherDomain(request *openrtb2.BidRequest) string {
	switch {
	case request.Site != nil && request.Site.Publisher != nil && request.Site.Publisher.Domain != "":
		return request.Site.Publisher.Domain
	case request.App != nil && request.App.Publisher != nil && request.App.Publisher.Domain != "":
		return request.App.Publisher.Domain
	case request.DOOH != nil && request.DOOH.Publisher != nil:
		return request.DOOH.Publisher.Domain
	}
	return ""
}

func getBundle(request *openrtb2.BidRequest) string {
	if request.App != nil {
		return request.App.Bundle
	}
	return ""
}

func getChannelName(request *openrtb2.BidRequest) string {
	name, err := jsonparser.GetString(request.Ext, "prebid", "channel", "name")
	if err != nil {
		return ""
	}
	return name
}

func getGptSlot(imp *openrtb2.Imp) string {
	adServerName, err := jsonparser.GetString(imp.Ext, "data", "adserver", "name")
	if err == nil && adServerName == "gam" {
		gptSlot, _ := jsonparser.GetString(imp.Ext, "data", "adserver", "adslot")
		return gptSlot
	}
	return getPbAdSlot(imp)
}

func getPbAdSlot(imp *openrtb2.Imp) string {
	pbAdSlot, _ := jsonparser.GetString(imp.Ext, "data", "pbadslot")
	return pbAdSlot
}

// getAdUnitCode prefers gpid, then tagid, then pbadslot and finally the stored request id.
func getAdUnitCode(imp *openrtb2.Imp) string {
	if gpid, _ := jsonparser.GetString(imp.Ext, "gpid"); strings.TrimSpace(gpid) != "" {
		return gpid
	}
	if strings.TrimSpace(imp.TagID) != "" {
		return imp.TagID
	}
	if pbAdSlot := getPbAdSlot(imp); strings.TrimSpace(pbAdSlot) != "" {
		return pbAdSlot
	}
	storedRequestID, _ := jsonparser.GetString(imp.Ext, "prebid", "storedrequest", "id")
	return storedRequestID
}

// getDeviceCountry returns the alpha-3 code of device.geo.country. Codes that are not
// alpha-2 are passed through.
func getDeviceCountry(request *openrtb2.BidRequest) string {
	if request.Device == nil || request.Device.Geo == nil {
		return ""
	}
	country := strings.TrimSpace(request.Device.Geo.Country)
	if len(country) != 2 {
		return country
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return country
	}
	if alpha3 := region.ISO3(); alpha3 != "" && alpha3 != "ZZZ" {
		return alpha3
	}
	return country
}

func getDeviceType(request *openrtb2.BidRequest) string {
	if request.Device == nil || strings.TrimSpace(request.Device.UA) == "" {
		return ""
	}
	userAgent := request.Device.UA

	if tabletPattern.MatchString(userAgent) {
		return Tablet
	}
	lowerUA := strings.ToLower(userAgent)
	if strings.Contains(lowerUA, "android") && !strings.Contains(lowerUA, "mobile") {
		return Tablet
	}
	if user_agent.New(userAgent).Mobile() || strings.Contains(lowerUA, "phone") {
		return Phone
	}
	return Desktop
}
