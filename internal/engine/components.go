package engine

import "strings"

// Archetype is a coarse system-component category inferred from free text.
type Archetype string

const (
	ArchetypeDatabase       Archetype = "database"
	ArchetypeAPI            Archetype = "api"
	ArchetypeAuthentication Archetype = "authentication"
	ArchetypeAuthorization  Archetype = "authorization"
	ArchetypeFrontend       Archetype = "frontend"
	ArchetypeBackend        Archetype = "backend"
	ArchetypeFilesystem     Archetype = "filesystem"
	ArchetypeNetwork        Archetype = "network"
	ArchetypeLogging        Archetype = "logging"
)

// archetypeOrder fixes the detection and output order. Detection results are
// returned in this order so repeated calls are byte-for-byte identical.
var archetypeOrder = []Archetype{
	ArchetypeDatabase,
	ArchetypeAPI,
	ArchetypeAuthentication,
	ArchetypeAuthorization,
	ArchetypeFrontend,
	ArchetypeBackend,
	ArchetypeFilesystem,
	ArchetypeNetwork,
	ArchetypeLogging,
}

func validArchetype(a Archetype) bool {
	for _, known := range archetypeOrder {
		if a == known {
			return true
		}
	}
	return false
}

// archetypeKeywords drives component detection. A single keyword hit is
// enough to flag the archetype; archetypes are never mutually exclusive.
var archetypeKeywords = map[Archetype][]string{
	ArchetypeDatabase: {
		"database", "sql", "postgres", "postgresql", "mysql", "mariadb",
		"mongodb", "mongo", "redis", "sqlite", "oracle", "dynamodb",
		"query", "table", "nosql", "stored procedure",
	},
	ArchetypeAPI: {
		"api", "endpoint", "rest api", "restful", "graphql", "grpc",
		"webhook", "http request", "route", "microservice",
	},
	ArchetypeAuthentication: {
		"authentication", "login", "password", "credential", "session",
		"sign in", "signin", "single sign-on", "oauth", "jwt", "token",
		"mfa", "2fa",
	},
	ArchetypeAuthorization: {
		"authorization", "permission", "role", "rbac", "access control",
		"privilege", "entitlement",
	},
	ArchetypeFrontend: {
		"frontend", "browser", "javascript", "react", "angular", "vue",
		"web page", "webpage", "html", "single-page app",
	},
	ArchetypeBackend: {
		"backend", "server", "service", "worker", "daemon", "job queue",
		"processing", "application logic",
	},
	ArchetypeFilesystem: {
		"file", "filesystem", "upload", "download", "directory", "path",
		"disk", "storage bucket", "s3",
	},
	ArchetypeNetwork: {
		"network", "tls", "ssl", "tcp", "udp", "dns", "proxy",
		"load balancer", "firewall", "vpn", "socket", "internet",
	},
	// "logs" rather than "log" so "login" does not trip logging detection.
	ArchetypeLogging: {
		"logs", "logging", "log file", "audit", "syslog", "telemetry",
		"monitoring", "trace",
	},
}

// DetectComponents classifies which component archetypes are present in the
// asset, flow, and trust boundary text. The result is duplicate-free and
// ordered by archetypeOrder. Pure and deterministic; empty input yields an
// empty set.
func (e *Engine) DetectComponents(asset, flow, trustBoundary string) []Archetype {
	text := normalizeInput(asset, flow, trustBoundary)
	if text == "" {
		return nil
	}

	var detected []Archetype
	for _, a := range archetypeOrder {
		for _, kw := range archetypeKeywords[a] {
			if strings.Contains(text, kw) {
				detected = append(detected, a)
				break
			}
		}
	}
	return detected
}

// hasArchetype reports whether set contains a.
func hasArchetype(set []Archetype, a Archetype) bool {
	for _, x := range set {
		if x == a {
			return true
		}
	}
	return false
}

// networkFacing reports whether any archetype in the set is reachable from
// outside the system boundary. Used by the DREAD scorer to discount
// discoverability for purely internal components.
func networkFacing(set []Archetype) bool {
	return hasArchetype(set, ArchetypeAPI) ||
		hasArchetype(set, ArchetypeNetwork) ||
		hasArchetype(set, ArchetypeFrontend)
}
