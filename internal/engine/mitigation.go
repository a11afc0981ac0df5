package engine

import (
	"sort"
	"strings"
)

// maxMitigations caps the recommendation list length to keep output actionable.
const maxMitigations = 10

// Difficulty is the estimated implementation effort for a mitigation.
type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"
)

// MitigationItem is one recommended mitigation. Higher Priority means more
// urgent; Effectiveness is a 0–10 estimate of risk reduction.
type MitigationItem struct {
	Text          string     `json:"text"`
	Priority      int        `json:"priority"`
	Difficulty    Difficulty `json:"difficulty"`
	Effectiveness int        `json:"effectiveness"`
}

// mitigation rule sources, in tie-break precedence order.
const (
	sourcePattern = iota
	sourceCategory
	sourceArchetype
	sourceRiskLevel
)

type candidate struct {
	MitigationItem
	source int
	order  int
}

// patternMitigations are the most actionable recommendations, keyed by
// pattern identifier.
var patternMitigations = map[string][]MitigationItem{
	"sql_injection": {
		{Text: "Use parameterized queries or prepared statements for all database access", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
		{Text: "Apply least-privilege database accounts for application connections", Priority: 85, Difficulty: DifficultyMedium, Effectiveness: 7},
		{Text: "Validate and type-check all user input used in queries", Priority: 80, Difficulty: DifficultyLow, Effectiveness: 7},
	},
	"xss": {
		{Text: "Encode all output rendered into HTML, JavaScript, and attribute contexts", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
		{Text: "Deploy a Content Security Policy restricting script sources", Priority: 85, Difficulty: DifficultyMedium, Effectiveness: 8},
		{Text: "Sanitize rich-text input with an allowlist-based HTML sanitizer", Priority: 80, Difficulty: DifficultyMedium, Effectiveness: 7},
	},
	"command_injection": {
		{Text: "Avoid shelling out; use language-native APIs instead of system commands", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "If shell execution is unavoidable, pass arguments as vectors, never via string interpolation", Priority: 90, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"authentication_bypass": {
		{Text: "Enforce authentication on every non-public endpoint at the middleware layer", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "Enable multi-factor authentication for privileged accounts", Priority: 85, Difficulty: DifficultyMedium, Effectiveness: 8},
		{Text: "Remove default and hardcoded credentials; rotate any that shipped", Priority: 90, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"broken_access_control": {
		{Text: "Enforce object-level authorization checks on every resource access", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "Deny by default; require explicit grants for each role and resource", Priority: 85, Difficulty: DifficultyMedium, Effectiveness: 8},
	},
	"path_traversal": {
		{Text: "Canonicalize file paths and reject any containing traversal sequences", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
		{Text: "Serve files only from an allowlisted root directory via safe join", Priority: 90, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"csrf": {
		{Text: "Require anti-CSRF tokens on all state-changing requests", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
		{Text: "Set SameSite=Lax or stricter on session cookies", Priority: 85, Difficulty: DifficultyLow, Effectiveness: 7},
	},
	"insecure_deserialization": {
		{Text: "Never deserialize untrusted data with formats that encode object types", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "Prefer plain data formats (JSON) with explicit schema validation", Priority: 85, Difficulty: DifficultyMedium, Effectiveness: 8},
	},
	"xxe": {
		{Text: "Disable DTD processing and external entity resolution in all XML parsers", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
	},
	"ssrf": {
		{Text: "Validate outbound request targets against an allowlist of hosts", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "Block requests to link-local and internal metadata addresses", Priority: 90, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"sensitive_data_exposure": {
		{Text: "Encrypt sensitive data at rest and in transit", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "Minimize collected data and purge what is no longer needed", Priority: 80, Difficulty: DifficultyMedium, Effectiveness: 6},
	},
	"weak_cryptography": {
		{Text: "Replace deprecated algorithms with current standards (AES-GCM, SHA-256, TLS 1.2+)", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
		{Text: "Use a vetted cryptographic library; never implement primitives in-house", Priority: 85, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"mitm": {
		{Text: "Enforce TLS with certificate validation on every network hop", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
		{Text: "Enable HSTS so clients refuse to downgrade to plaintext", Priority: 85, Difficulty: DifficultyLow, Effectiveness: 7},
	},
	"session_hijacking": {
		{Text: "Issue session tokens with secure, httponly, samesite cookie attributes", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 8},
		{Text: "Regenerate session identifiers on privilege change and login", Priority: 90, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"dos_resource_exhaustion": {
		{Text: "Apply rate limiting and request size caps at the edge", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 8},
		{Text: "Bound every queue, buffer, and loop with explicit limits and timeouts", Priority: 90, Difficulty: DifficultyMedium, Effectiveness: 8},
	},
	"log_injection": {
		{Text: "Encode or strip control characters from user input before logging", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 8},
		{Text: "Use structured logging so fields cannot forge log records", Priority: 90, Difficulty: DifficultyLow, Effectiveness: 8},
	},
	"open_redirect": {
		{Text: "Validate redirect targets against an allowlist of relative paths", Priority: 95, Difficulty: DifficultyLow, Effectiveness: 9},
	},
	"race_condition": {
		{Text: "Make check-and-use operations atomic via transactions or locks", Priority: 95, Difficulty: DifficultyMedium, Effectiveness: 9},
	},
}

// categoryMitigations are one fixed recommendation set per STRIDE category.
var categoryMitigations = map[Category][]MitigationItem{
	CategorySpoofing: {
		{Text: "Use strong, mutual authentication between all communicating parties", Priority: 70, Difficulty: DifficultyMedium, Effectiveness: 8},
	},
	CategoryTampering: {
		{Text: "Validate integrity of data crossing trust boundaries with signatures or MACs", Priority: 70, Difficulty: DifficultyMedium, Effectiveness: 7},
	},
	CategoryRepudiation: {
		{Text: "Record security-relevant actions in a tamper-evident audit log", Priority: 70, Difficulty: DifficultyMedium, Effectiveness: 7},
	},
	CategoryInformationDisclosure: {
		{Text: "Classify data and apply encryption plus access controls per classification", Priority: 70, Difficulty: DifficultyMedium, Effectiveness: 8},
	},
	CategoryDenialOfService: {
		{Text: "Provision quotas, rate limits, and graceful degradation for critical paths", Priority: 70, Difficulty: DifficultyMedium, Effectiveness: 7},
	},
	CategoryElevationOfPrivilege: {
		{Text: "Run components with least privilege and isolate privileged operations", Priority: 70, Difficulty: DifficultyMedium, Effectiveness: 8},
	},
}

// archetypeMitigations are component-level hardening recommendations.
var archetypeMitigations = map[Archetype][]MitigationItem{
	ArchetypeDatabase: {
		{Text: "Restrict database network access to application hosts only", Priority: 50, Difficulty: DifficultyLow, Effectiveness: 6},
	},
	ArchetypeAPI: {
		{Text: "Validate request schemas at the API boundary and reject unknown fields", Priority: 50, Difficulty: DifficultyLow, Effectiveness: 6},
	},
	ArchetypeAuthentication: {
		{Text: "Throttle and monitor failed login attempts", Priority: 50, Difficulty: DifficultyLow, Effectiveness: 6},
	},
	ArchetypeAuthorization: {
		{Text: "Centralize authorization decisions in a single policy layer", Priority: 50, Difficulty: DifficultyMedium, Effectiveness: 6},
	},
	ArchetypeFrontend: {
		{Text: "Ship security headers (CSP, X-Content-Type-Options, frame options)", Priority: 50, Difficulty: DifficultyLow, Effectiveness: 5},
	},
	ArchetypeBackend: {
		{Text: "Keep service dependencies patched and pin known-good versions", Priority: 50, Difficulty: DifficultyLow, Effectiveness: 5},
	},
	ArchetypeFilesystem: {
		{Text: "Store uploads outside the web root with restrictive permissions", Priority: 50, Difficulty: DifficultyLow, Effectiveness: 6},
	},
	ArchetypeNetwork: {
		{Text: "Segment the network and default-deny traffic between zones", Priority: 50, Difficulty: DifficultyHigh, Effectiveness: 7},
	},
	ArchetypeLogging: {
		{Text: "Forward logs to append-only central storage with retention controls", Priority: 50, Difficulty: DifficultyMedium, Effectiveness: 6},
	},
}

// highRiskMitigation is appended once when the overall risk level is high.
var highRiskMitigation = MitigationItem{
	Text:          "Treat as urgent: schedule remediation in the current sprint and add interim monitoring",
	Priority:      99,
	Difficulty:    DifficultyLow,
	Effectiveness: 5,
}

// Recommend builds the prioritized, deduplicated mitigation list from all
// four rule sources. Duplicates (case-insensitive text) keep the highest
// priority instance; ties sort pattern > category > archetype > risk-level,
// then table order. The list is capped at maxMitigations.
func (e *Engine) Recommend(matches MatchResult, stride StrideAnalysis, components []Archetype, risk RiskLevel) []MitigationItem {
	var cands []candidate
	add := func(item MitigationItem, source int) {
		cands = append(cands, candidate{MitigationItem: item, source: source, order: len(cands)})
	}

	for _, ps := range matches {
		for _, item := range patternMitigations[ps.PatternID] {
			add(item, sourcePattern)
		}
	}
	for _, cat := range stride.Categories {
		for _, item := range categoryMitigations[cat] {
			add(item, sourceCategory)
		}
	}
	for _, a := range components {
		for _, item := range archetypeMitigations[a] {
			add(item, sourceArchetype)
		}
	}
	if risk == RiskHigh {
		add(highRiskMitigation, sourceRiskLevel)
	}

	// Dedup by normalized text, keeping the strongest instance.
	best := make(map[string]candidate, len(cands))
	var keys []string
	for _, c := range cands {
		key := strings.ToLower(strings.TrimSpace(c.Text))
		cur, seen := best[key]
		if !seen {
			best[key] = c
			keys = append(keys, key)
			continue
		}
		if c.Priority > cur.Priority || (c.Priority == cur.Priority && c.source < cur.source) {
			best[key] = c
		}
	}

	deduped := make([]candidate, 0, len(keys))
	for _, k := range keys {
		deduped = append(deduped, best[k])
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.source != b.source {
			return a.source < b.source
		}
		return a.order < b.order
	})

	if len(deduped) > maxMitigations {
		deduped = deduped[:maxMitigations]
	}
	items := make([]MitigationItem, len(deduped))
	for i, c := range deduped {
		items[i] = c.MitigationItem
	}
	return items
}
