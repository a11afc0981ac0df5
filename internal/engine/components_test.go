package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectComponents(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name  string
		asset string
		flow  string
		want  []Archetype
	}{
		{
			name:  "database keywords",
			asset: "Orders DB",
			flow:  "reads rows from a postgres table",
			want:  []Archetype{ArchetypeDatabase},
		},
		{
			name:  "auth api",
			asset: "User Authentication API",
			flow:  "login endpoint verifies a password",
			want:  []Archetype{ArchetypeAPI, ArchetypeAuthentication},
		},
		{
			name:  "multiple archetypes",
			asset: "Report generator",
			flow:  "a backend worker writes a file to disk and sends it over tls",
			want:  []Archetype{ArchetypeBackend, ArchetypeFilesystem, ArchetypeNetwork},
		},
		{
			name:  "nothing recognizable",
			asset: "Widget",
			flow:  "does a thing",
			want:  nil,
		},
		{
			name: "empty input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.DetectComponents(tt.asset, tt.flow, "")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectComponentsNoDuplicates(t *testing.T) {
	e := New(nil)

	got := e.DetectComponents("database", "mysql database with a postgres database replica", "")
	assert.Equal(t, []Archetype{ArchetypeDatabase}, got)
}

func TestDetectComponentsUsesTrustBoundary(t *testing.T) {
	e := New(nil)

	got := e.DetectComponents("Widget", "does a thing", "crosses the internet boundary")
	assert.Equal(t, []Archetype{ArchetypeNetwork}, got)
}
