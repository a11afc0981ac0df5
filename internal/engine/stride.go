package engine

import "strings"

// Category is one of the six STRIDE threat categories.
type Category string

const (
	CategorySpoofing              Category = "spoofing"
	CategoryTampering             Category = "tampering"
	CategoryRepudiation           Category = "repudiation"
	CategoryInformationDisclosure Category = "information_disclosure"
	CategoryDenialOfService       Category = "denial_of_service"
	CategoryElevationOfPrivilege  Category = "elevation_of_privilege"
)

// strideOrder fixes the canonical category ordering used for output.
var strideOrder = map[Category]int{
	CategorySpoofing:              0,
	CategoryTampering:             1,
	CategoryRepudiation:           2,
	CategoryInformationDisclosure: 3,
	CategoryDenialOfService:       4,
	CategoryElevationOfPrivilege:  5,
}

func validCategory(c Category) bool {
	_, ok := strideOrder[c]
	return ok
}

// archetypeCategories maps each component archetype to the STRIDE categories
// its presence implies, independent of any matched pattern.
var archetypeCategories = map[Archetype][]Category{
	ArchetypeDatabase:       {CategoryTampering, CategoryInformationDisclosure, CategoryDenialOfService},
	ArchetypeAPI:            {CategoryTampering, CategoryDenialOfService, CategoryInformationDisclosure},
	ArchetypeAuthentication: {CategorySpoofing, CategoryElevationOfPrivilege},
	ArchetypeAuthorization:  {CategoryElevationOfPrivilege, CategoryInformationDisclosure},
	ArchetypeFrontend:       {CategorySpoofing, CategoryTampering},
	ArchetypeBackend:        {CategoryTampering, CategoryDenialOfService},
	ArchetypeFilesystem:     {CategoryInformationDisclosure, CategoryTampering},
	ArchetypeNetwork:        {CategorySpoofing, CategoryInformationDisclosure, CategoryDenialOfService},
	ArchetypeLogging:        {CategoryRepudiation},
}

// archetypeConfidence is the fixed confidence assigned to a category that is
// supported only by a detected archetype, with no pattern evidence.
const archetypeConfidence = 0.5

// fallbackKeywords is the secondary, low-confidence keyword table scanned over
// the flow text when neither patterns nor archetypes produced any signal. It
// is deliberately kept separate from the pattern catalog so its lower
// confidence tier stays distinct.
var fallbackKeywords = []struct {
	keyword    string
	categories []Category
}{
	{"spoof", []Category{CategorySpoofing}},
	{"impersonat", []Category{CategorySpoofing}},
	{"forg", []Category{CategorySpoofing, CategoryRepudiation}},
	{"modif", []Category{CategoryTampering}},
	{"alter", []Category{CategoryTampering}},
	{"corrupt", []Category{CategoryTampering}},
	{"deny", []Category{CategoryRepudiation}},
	{"repudiat", []Category{CategoryRepudiation}},
	{"leak", []Category{CategoryInformationDisclosure}},
	{"expos", []Category{CategoryInformationDisclosure}},
	{"disclos", []Category{CategoryInformationDisclosure}},
	{"read", []Category{CategoryInformationDisclosure}},
	{"crash", []Category{CategoryDenialOfService}},
	{"overload", []Category{CategoryDenialOfService}},
	{"flood", []Category{CategoryDenialOfService}},
	{"unavailab", []Category{CategoryDenialOfService}},
	{"escalat", []Category{CategoryElevationOfPrivilege}},
	{"admin", []Category{CategoryElevationOfPrivilege}},
	{"root", []Category{CategoryElevationOfPrivilege}},
}

// fallbackConfidence is assigned to categories found by the fallback keyword
// scan; defaultConfidence to the generic categories assigned when even the
// fallback scan finds nothing in non-trivial input.
const (
	fallbackConfidence = 0.35
	defaultConfidence  = 0.2
)

// StrideAnalysis is the merged STRIDE classification for one threat input.
// Categories and the keys of Confidence are always identical sets.
type StrideAnalysis struct {
	Categories []Category           `json:"categories"`
	Confidence map[Category]float64 `json:"confidence"`
	Components []Archetype          `json:"components"`
	Matches    MatchResult          `json:"matches"`
}

// CategorizeStride merges pattern-derived and component-derived STRIDE
// signals. Per-category confidence is the maximum over all contributing
// signals. When both inputs are empty the flow text is scanned against the
// low-confidence fallback table, so non-trivial input never yields an empty
// category set.
func (e *Engine) CategorizeStride(matches MatchResult, components []Archetype, flow string) StrideAnalysis {
	conf := make(map[Category]float64)

	for _, ps := range matches {
		p, ok := e.catalog.Get(ps.PatternID)
		if !ok {
			continue
		}
		for _, cat := range p.Categories {
			if ps.Confidence > conf[cat] {
				conf[cat] = ps.Confidence
			}
		}
	}

	for _, a := range components {
		for _, cat := range archetypeCategories[a] {
			if archetypeConfidence > conf[cat] {
				conf[cat] = archetypeConfidence
			}
		}
	}

	if len(conf) == 0 {
		conf = fallbackScan(flow)
	}

	return StrideAnalysis{
		Categories: sortedCategories(conf),
		Confidence: conf,
		Components: components,
		Matches:    matches,
	}
}

// fallbackScan is the default heuristic path for input that matched nothing.
func fallbackScan(flow string) map[Category]float64 {
	conf := make(map[Category]float64)
	text := strings.ToLower(flow)

	for _, entry := range fallbackKeywords {
		if !strings.Contains(text, entry.keyword) {
			continue
		}
		for _, cat := range entry.categories {
			if fallbackConfidence > conf[cat] {
				conf[cat] = fallbackConfidence
			}
		}
	}

	// Even "does a thing" must produce some analysis: assume data handling
	// with minimal confidence.
	if len(conf) == 0 && strings.TrimSpace(flow) != "" {
		conf[CategoryTampering] = defaultConfidence
		conf[CategoryInformationDisclosure] = defaultConfidence
	}
	return conf
}
