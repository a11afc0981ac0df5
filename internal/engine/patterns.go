package engine

import "regexp"

// builtinPatterns is the hand-authored vulnerability pattern catalog. Order
// matters: it is the tie-breaker for equal match confidences, so patterns are
// listed roughly from most to least specific.
var builtinPatterns = []ThreatPattern{
	{
		ID: "sql_injection",
		Rules: []MatchRule{
			{Substring: "sql injection", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\bconcatenat\w*\b.{0,40}\b(sql|quer)`), Weight: 0.9},
			{Regexp: regexp.MustCompile(`\b(sql|quer\w+)\b.{0,40}\bconcatenat`), Weight: 0.9},
			{Substring: "unsanitized query", Weight: 0.8},
			{Substring: "without parameterization", Weight: 0.7},
			{Substring: "raw sql", Weight: 0.6},
			{Substring: "sqli", Weight: 0.6},
			{Substring: "dynamic query", Weight: 0.4},
			{Substring: "union select", Weight: 0.8},
		},
		Categories: []Category{CategoryTampering, CategoryInformationDisclosure, CategoryElevationOfPrivilege},
		Defaults:   DreadScores{Damage: 9, Reproducibility: 8, Exploitability: 7, AffectedUsers: 8, Discoverability: 7},
		Baseline:   0.95,
		Archetypes: []Archetype{ArchetypeDatabase, ArchetypeAPI},
	},
	{
		ID: "xss",
		Rules: []MatchRule{
			{Substring: "cross-site scripting", Weight: 1.0},
			{Substring: "cross site scripting", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\bxss\b`), Weight: 0.9},
			{Substring: "unescaped output", Weight: 0.7},
			{Substring: "reflected input", Weight: 0.6},
			{Substring: "script injection", Weight: 0.7},
			{Substring: "innerhtml", Weight: 0.5},
			{Substring: "unsanitized html", Weight: 0.6},
		},
		Categories: []Category{CategoryTampering, CategoryInformationDisclosure},
		Defaults:   DreadScores{Damage: 7, Reproducibility: 8, Exploitability: 7, AffectedUsers: 8, Discoverability: 8},
		Baseline:   0.9,
		Archetypes: []Archetype{ArchetypeFrontend, ArchetypeAPI},
	},
	{
		ID: "command_injection",
		Rules: []MatchRule{
			{Substring: "command injection", Weight: 1.0},
			{Substring: "os command", Weight: 0.6},
			{Substring: "shell command", Weight: 0.5},
			{Regexp: regexp.MustCompile(`\b(exec|system|popen)\s*\(`), Weight: 0.6},
			{Substring: "arbitrary command", Weight: 0.8},
			{Substring: "unsanitized shell", Weight: 0.8},
		},
		Categories: []Category{CategoryTampering, CategoryElevationOfPrivilege},
		Defaults:   DreadScores{Damage: 10, Reproducibility: 8, Exploitability: 7, AffectedUsers: 7, Discoverability: 6},
		Baseline:   0.95,
		Archetypes: []Archetype{ArchetypeBackend, ArchetypeFilesystem},
	},
	{
		ID: "authentication_bypass",
		Rules: []MatchRule{
			{Substring: "authentication bypass", Weight: 1.0},
			{Substring: "bypass authentication", Weight: 1.0},
			{Substring: "without authentication", Weight: 0.7},
			{Substring: "no authentication", Weight: 0.6},
			{Substring: "unauthenticated access", Weight: 0.8},
			{Substring: "weak password", Weight: 0.5},
			{Substring: "default credentials", Weight: 0.7},
			{Substring: "hardcoded credentials", Weight: 0.7},
			{Substring: "hardcoded password", Weight: 0.7},
		},
		Categories: []Category{CategorySpoofing, CategoryElevationOfPrivilege},
		Defaults:   DreadScores{Damage: 9, Reproducibility: 9, Exploitability: 8, AffectedUsers: 9, Discoverability: 6},
		Baseline:   0.9,
		Archetypes: []Archetype{ArchetypeAuthentication, ArchetypeAPI},
	},
	{
		ID: "broken_access_control",
		Rules: []MatchRule{
			{Substring: "broken access control", Weight: 1.0},
			{Substring: "missing authorization", Weight: 0.9},
			{Substring: "idor", Weight: 0.8},
			{Substring: "insecure direct object", Weight: 0.9},
			{Substring: "privilege escalation", Weight: 0.8},
			{Substring: "horizontal escalation", Weight: 0.7},
			{Substring: "access control check", Weight: 0.5},
			{Substring: "without permission check", Weight: 0.7},
		},
		Categories: []Category{CategoryElevationOfPrivilege, CategoryInformationDisclosure},
		Defaults:   DreadScores{Damage: 8, Reproducibility: 8, Exploitability: 7, AffectedUsers: 7, Discoverability: 5},
		Baseline:   0.9,
		Archetypes: []Archetype{ArchetypeAuthorization, ArchetypeAPI},
	},
	{
		ID: "path_traversal",
		Rules: []MatchRule{
			{Substring: "path traversal", Weight: 1.0},
			{Substring: "directory traversal", Weight: 1.0},
			{Substring: "../", Weight: 0.6},
			{Substring: "arbitrary file read", Weight: 0.8},
			{Substring: "arbitrary file write", Weight: 0.8},
			{Substring: "unsanitized file path", Weight: 0.7},
			{Substring: "file path from user", Weight: 0.6},
		},
		Categories: []Category{CategoryInformationDisclosure, CategoryTampering},
		Defaults:   DreadScores{Damage: 8, Reproducibility: 8, Exploitability: 6, AffectedUsers: 6, Discoverability: 6},
		Baseline:   0.9,
		Archetypes: []Archetype{ArchetypeFilesystem, ArchetypeBackend},
	},
	{
		ID: "csrf",
		Rules: []MatchRule{
			{Substring: "cross-site request forgery", Weight: 1.0},
			{Substring: "cross site request forgery", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\bcsrf\b`), Weight: 0.9},
			{Substring: "missing csrf token", Weight: 1.0},
			{Substring: "state-changing get", Weight: 0.6},
			{Substring: "no anti-forgery", Weight: 0.7},
		},
		Categories: []Category{CategorySpoofing, CategoryTampering},
		Defaults:   DreadScores{Damage: 6, Reproducibility: 7, Exploitability: 6, AffectedUsers: 7, Discoverability: 6},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeFrontend, ArchetypeAPI},
	},
	{
		ID: "insecure_deserialization",
		Rules: []MatchRule{
			{Substring: "insecure deserialization", Weight: 1.0},
			{Substring: "deserializ", Weight: 0.5},
			{Substring: "unpickl", Weight: 0.7},
			{Substring: "untrusted serialized", Weight: 0.8},
			{Substring: "object injection", Weight: 0.7},
		},
		Categories: []Category{CategoryTampering, CategoryElevationOfPrivilege, CategoryDenialOfService},
		Defaults:   DreadScores{Damage: 9, Reproducibility: 6, Exploitability: 5, AffectedUsers: 7, Discoverability: 4},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeBackend, ArchetypeAPI},
	},
	{
		ID: "xxe",
		Rules: []MatchRule{
			{Substring: "xml external entit", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\bxxe\b`), Weight: 0.9},
			{Substring: "external entity expansion", Weight: 0.9},
			{Substring: "doctype", Weight: 0.4},
			{Substring: "xml parser", Weight: 0.4},
		},
		Categories: []Category{CategoryInformationDisclosure, CategoryDenialOfService},
		Defaults:   DreadScores{Damage: 7, Reproducibility: 7, Exploitability: 5, AffectedUsers: 6, Discoverability: 5},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeBackend, ArchetypeAPI},
	},
	{
		ID: "ssrf",
		Rules: []MatchRule{
			{Substring: "server-side request forgery", Weight: 1.0},
			{Substring: "server side request forgery", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\bssrf\b`), Weight: 0.9},
			{Substring: "fetch arbitrary url", Weight: 0.8},
			{Substring: "url from user input", Weight: 0.6},
			{Substring: "internal metadata endpoint", Weight: 0.7},
		},
		Categories: []Category{CategoryInformationDisclosure, CategorySpoofing},
		Defaults:   DreadScores{Damage: 7, Reproducibility: 7, Exploitability: 6, AffectedUsers: 5, Discoverability: 5},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeNetwork, ArchetypeBackend},
	},
	{
		ID: "sensitive_data_exposure",
		Rules: []MatchRule{
			{Substring: "sensitive data", Weight: 0.6},
			{Substring: "plaintext password", Weight: 0.9},
			{Substring: "unencrypted", Weight: 0.6},
			{Substring: "cleartext", Weight: 0.6},
			{Substring: "exposed secret", Weight: 0.8},
			{Substring: "api key in", Weight: 0.7},
			{Substring: "pii", Weight: 0.5},
			{Substring: "personal data", Weight: 0.5},
			{Substring: "data leak", Weight: 0.7},
		},
		Categories: []Category{CategoryInformationDisclosure},
		Defaults:   DreadScores{Damage: 8, Reproducibility: 9, Exploitability: 5, AffectedUsers: 8, Discoverability: 5},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeDatabase, ArchetypeNetwork},
	},
	{
		ID: "weak_cryptography",
		Rules: []MatchRule{
			{Regexp: regexp.MustCompile(`\b(md5|sha1|sha-1)\b`), Weight: 0.8},
			{Substring: "weak cipher", Weight: 0.9},
			{Substring: "weak encryption", Weight: 0.9},
			{Substring: "weak hash", Weight: 0.8},
			{Regexp: regexp.MustCompile(`\b(des|rc4|ecb)\b`), Weight: 0.7},
			{Substring: "self-signed certificate", Weight: 0.5},
			{Substring: "custom crypto", Weight: 0.7},
		},
		Categories: []Category{CategoryInformationDisclosure, CategorySpoofing},
		Defaults:   DreadScores{Damage: 7, Reproducibility: 9, Exploitability: 4, AffectedUsers: 7, Discoverability: 4},
		Baseline:   0.8,
		Archetypes: []Archetype{ArchetypeNetwork, ArchetypeAuthentication},
	},
	{
		ID: "mitm",
		Rules: []MatchRule{
			{Substring: "man-in-the-middle", Weight: 1.0},
			{Substring: "man in the middle", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\bmitm\b`), Weight: 0.9},
			{Substring: "without tls", Weight: 0.7},
			{Substring: "http://", Weight: 0.4},
			{Substring: "certificate validation disabled", Weight: 0.8},
			{Substring: "skip certificate verification", Weight: 0.8},
		},
		Categories: []Category{CategorySpoofing, CategoryInformationDisclosure, CategoryTampering},
		Defaults:   DreadScores{Damage: 7, Reproducibility: 5, Exploitability: 5, AffectedUsers: 7, Discoverability: 4},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeNetwork},
	},
	{
		ID: "session_hijacking",
		Rules: []MatchRule{
			{Substring: "session hijack", Weight: 1.0},
			{Substring: "session fixation", Weight: 0.9},
			{Substring: "predictable session", Weight: 0.8},
			{Substring: "session token in url", Weight: 0.8},
			{Substring: "insecure cookie", Weight: 0.7},
			{Substring: "missing httponly", Weight: 0.6},
		},
		Categories: []Category{CategorySpoofing, CategoryElevationOfPrivilege},
		Defaults:   DreadScores{Damage: 8, Reproducibility: 6, Exploitability: 6, AffectedUsers: 7, Discoverability: 5},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeAuthentication, ArchetypeFrontend},
	},
	{
		ID: "dos_resource_exhaustion",
		Rules: []MatchRule{
			{Substring: "denial of service", Weight: 1.0},
			{Regexp: regexp.MustCompile(`\b(dos|ddos)\b`), Weight: 0.8},
			{Substring: "resource exhaustion", Weight: 0.9},
			{Substring: "unbounded", Weight: 0.5},
			{Substring: "no rate limit", Weight: 0.7},
			{Substring: "without rate limiting", Weight: 0.7},
			{Substring: "memory exhaustion", Weight: 0.8},
			{Substring: "infinite loop", Weight: 0.6},
		},
		Categories: []Category{CategoryDenialOfService},
		Defaults:   DreadScores{Damage: 6, Reproducibility: 8, Exploitability: 7, AffectedUsers: 9, Discoverability: 7},
		Baseline:   0.85,
		Archetypes: []Archetype{ArchetypeAPI, ArchetypeNetwork},
	},
	{
		ID: "log_injection",
		Rules: []MatchRule{
			{Substring: "log injection", Weight: 1.0},
			{Substring: "log forging", Weight: 0.9},
			{Substring: "unsanitized log", Weight: 0.8},
			{Substring: "missing audit log", Weight: 0.6},
			{Substring: "no audit trail", Weight: 0.7},
			{Substring: "logs are not", Weight: 0.4},
		},
		Categories: []Category{CategoryRepudiation, CategoryTampering},
		Defaults:   DreadScores{Damage: 4, Reproducibility: 8, Exploitability: 6, AffectedUsers: 4, Discoverability: 5},
		Baseline:   0.8,
		Archetypes: []Archetype{ArchetypeLogging, ArchetypeBackend},
	},
	{
		ID: "open_redirect",
		Rules: []MatchRule{
			{Substring: "open redirect", Weight: 1.0},
			{Substring: "unvalidated redirect", Weight: 0.9},
			{Substring: "redirect url from", Weight: 0.6},
		},
		Categories: []Category{CategorySpoofing},
		Defaults:   DreadScores{Damage: 4, Reproducibility: 8, Exploitability: 7, AffectedUsers: 6, Discoverability: 7},
		Baseline:   0.8,
		Archetypes: []Archetype{ArchetypeFrontend, ArchetypeAPI},
	},
	{
		ID: "race_condition",
		Rules: []MatchRule{
			{Substring: "race condition", Weight: 1.0},
			{Substring: "toctou", Weight: 0.9},
			{Substring: "time-of-check", Weight: 0.8},
			{Substring: "double spend", Weight: 0.7},
			{Substring: "concurrent modification", Weight: 0.5},
		},
		Categories: []Category{CategoryTampering, CategoryElevationOfPrivilege},
		Defaults:   DreadScores{Damage: 7, Reproducibility: 4, Exploitability: 4, AffectedUsers: 5, Discoverability: 3},
		Baseline:   0.8,
		Archetypes: []Archetype{ArchetypeBackend, ArchetypeDatabase},
	},
}
