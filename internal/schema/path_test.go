package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathBetween(t *testing.T) {
	s := loadWeave(t)

	testCases := []struct {
		name     string
		from, to string
		hops     []string
		singular bool
		upward   bool
	}{
		{"child to parent", "run", "ob", []string{"Exposure", "OB"}, true, true},
		{"parent to child", "obs", "runs", []string{"Exposure", "Run"}, false, false},
		{"many parents", "run", "surveys", []string{"Survey"}, false, true},
		{"shortest route wins", "spectrum", "target", []string{"Target"}, true, true},
		{"one2one child", "spectrum", "redshift", []string{"Redshift"}, true, false},
		{"same object", "run", "runs", nil, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := s.PathBetween(tc.from, tc.to, false)

			require.NoError(t, err)
			assert.Equal(t, tc.hops, p.Hops)
			assert.Equal(t, tc.singular, p.Singular)
			assert.Equal(t, tc.upward, p.Upward)
		})
	}
}

func TestPathBetween_Cardinality(t *testing.T) {
	s := loadWeave(t)

	_, err := s.PathBetween("ob", "run", true)

	var card *CardinalityError
	require.ErrorAs(t, err, &card)
	assert.Equal(t, "OB", card.From)
	assert.Equal(t, "Run", card.To)
	assert.Equal(t, "requested one Run from OB when OB has several", err.Error())
}

func TestPathBetween_Ambiguous(t *testing.T) {
	s := loadWeave(t)

	// Spectrum->Run->Survey and Spectrum->Target->Survey are both two hops.
	_, err := s.PathBetween("spectra", "surveys", false)

	var amb *AmbiguousPathError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, [][]string{{"Run", "Survey"}, {"Target", "Survey"}}, amb.Paths)
	assert.Contains(t, err.Error(), "Spectrum->Run->Survey")
}

func TestPathBetween_NoPath(t *testing.T) {
	s := loadWeave(t)

	_, err := s.PathBetween("armconfig", "target", false)

	var none *NoPathError
	require.ErrorAs(t, err, &none)
}

func TestPathBetween_UnknownName(t *testing.T) {
	s := loadWeave(t)

	_, err := s.PathBetween("run", "galaxy", false)

	var unknown *UnknownNameError
	assert.ErrorAs(t, err, &unknown)
}

func TestShortestPaths_Diamond(t *testing.T) {
	next := func(n string) []string {
		return map[string][]string{
			"a": {"b", "c"},
			"b": {"d"},
			"c": {"d"},
			"d": {"e"},
		}[n]
	}

	assert.Equal(t, [][]string{{"b", "d", "e"}, {"c", "d", "e"}}, shortestPaths("a", "e", next))
	assert.Equal(t, [][]string{{"b"}}, shortestPaths("a", "b", next))
	assert.Nil(t, shortestPaths("e", "a", next))
}
