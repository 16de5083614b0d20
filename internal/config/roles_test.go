package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

const legalRoles = `
roles:
  - name: legal
    title: Legal Reviewer
    description: Flags liability and compliance concerns.
    focus: [warranty, lawsuit]
    weight: 2
  - name: technical
    title: Hardware Engineer
    description: Judges hardware claims.
`

func TestParseRoleCatalog(t *testing.T) {
	catalog, err := ParseRoleCatalog([]byte(legalRoles))
	require.NoError(t, err)

	legal, ok := catalog.Get("legal")
	require.True(t, ok)
	assert.Equal(t, 2.0, legal.Weight)
	assert.Equal(t, []string{"warranty", "lawsuit"}, legal.Focus)

	tech, ok := catalog.Get("technical")
	require.True(t, ok)
	assert.Equal(t, 1.0, tech.Weight, "missing weight defaults to 1")
}

func TestParseRoleCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "roles:\n  - title: Nameless\n", "name is required"},
		{"duplicate", "roles:\n  - name: a\n  - name: a\n", "duplicate role"},
		{"negative weight", "roles:\n  - name: a\n    weight: -1\n", "non-negative"},
		{"unknown key", "roles:\n  - name: a\n    colour: red\n", "colour"},
		{"malformed", "roles: [", "parsing role catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoleCatalog([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseRoleCatalog_Empty(t *testing.T) {
	catalog, err := ParseRoleCatalog(nil)
	require.NoError(t, err)
	assert.Empty(t, catalog.Names())
}

func TestLoadRoleCatalog_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(legalRoles), 0o600))

	catalog, err := LoadRoleCatalog(path)
	require.NoError(t, err)

	for _, name := range core.DefaultRoles {
		_, ok := catalog.Get(name)
		assert.True(t, ok, "built-in role %s should survive the merge", name)
	}
	tech, _ := catalog.Get("technical")
	assert.Equal(t, "Hardware Engineer", tech.Title)
	_, ok := catalog.Get("legal")
	assert.True(t, ok)
}

func TestLoadRoleCatalog_EmptyPath(t *testing.T) {
	catalog, err := LoadRoleCatalog("")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultRoleCatalog().Names(), catalog.Names())
}

func TestLoadRoleCatalog_MissingFile(t *testing.T) {
	_, err := LoadRoleCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoleCatalog_RoundTrip(t *testing.T) {
	data, err := MarshalRoleCatalog(core.DefaultRoleCatalog())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "roles:"))

	parsed, err := ParseRoleCatalog(data)
	require.NoError(t, err)
	for _, want := range core.DefaultRoleCatalog().Profiles() {
		got, ok := parsed.Get(want.Name)
		require.True(t, ok, want.Name)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Weight, got.Weight)
		assert.Equal(t, want.Advisory, got.Advisory)
		assert.ElementsMatch(t, want.Focus, got.Focus)
	}
}
