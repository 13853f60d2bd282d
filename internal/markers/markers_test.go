package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMarkers(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []Marker{Email, Login, Search, Smoke}, r.Names())
	assert.Equal(t, "mark test as smoke test", r.Description(Smoke))
	assert.Equal(t, "mark test as login test", r.Description(Login))
	assert.Equal(t, "mark test as email functionality test", r.Description(Email))
	assert.Equal(t, "mark test as search functionality test", r.Description(Search))

	for _, m := range []Marker{Smoke, Login, Email, Search} {
		sel, err := r.Parse(string(m))
		require.NoError(t, err, "marker %s should be selectable", m)
		assert.True(t, sel.Matches(m))
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()

	t.Run("same description is idempotent", func(t *testing.T) {
		require.NoError(t, r.Register(Smoke, "mark test as smoke test"))
	})

	t.Run("conflicting description fails", func(t *testing.T) {
		require.Error(t, r.Register(Smoke, "something else"))
	})

	t.Run("new marker becomes selectable", func(t *testing.T) {
		require.NoError(t, r.Register("compose", "mark test as compose test"))
		assert.True(t, r.Known("compose"))
		_, err := r.Parse("compose")
		require.NoError(t, err)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []Marker{"", "a,b", "!x", "two words"} {
			assert.Error(t, r.Register(name, "x"), "name %q", name)
		}
	})
}

func TestSelection(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		name   string
		expr   string
		labels []Marker
		want   bool
	}{
		{"empty selects all", "", []Marker{Smoke}, true},
		{"empty selects unlabelled", "", nil, true},
		{"include match", "smoke", []Marker{Smoke}, true},
		{"include miss", "login", []Marker{Smoke}, false},
		{"any of several", "login, smoke", []Marker{Smoke}, true},
		{"exclude only", "!search", []Marker{Smoke}, true},
		{"exclude wins", "smoke,!email", []Marker{Smoke, Email}, false},
		{"include set skips unlabelled", "smoke", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sel, err := r.Parse(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sel.Matches(tc.labels...))
		})
	}

	var zero Selection
	assert.True(t, zero.Matches(Login))
}

func TestParseUnknown(t *testing.T) {
	_, err := NewRegistry().Parse("smoke,regression")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regression")
}

func TestSelectionFromEnv(t *testing.T) {
	t.Setenv(SelectionEnv, "email,!smoke")

	sel, err := Default().SelectionFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "!smoke,email", sel.String())
	assert.True(t, sel.Matches(Email))
	assert.False(t, sel.Matches(Smoke))
}
