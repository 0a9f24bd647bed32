package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	paths := [][]string{
		{"serve"},
		{"maintain"},
		{"check"},
		{"forecast", "predict"},
		{"forecast", "location"},
		{"history", "list"},
		{"history", "add"},
		{"history", "regenerate"},
		{"scheduler", "start"},
		{"scheduler", "list"},
		{"scheduler", "run"},
	}

	for _, p := range paths {
		cmd, rest, err := rootCmd.Find(p)
		require.NoError(t, err, p)
		assert.Empty(t, rest, p)
		assert.Equal(t, p[len(p)-1], cmd.Name())
	}
}

func TestForecastFlagsRequired(t *testing.T) {
	for _, name := range []string{"product", "city", "district"} {
		f := forecastPredictCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Contains(t, f.Annotations, cobra.BashCompOneRequiredFlag, name)
	}
}

func TestOptionalInt(t *testing.T) {
	v, err := optionalInt("city", "")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = optionalInt("city", "12")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 12, *v)

	_, err = optionalInt("city", "twelve")
	assert.EqualError(t, err, "--city must be an integer")
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "(built-in)", valueOr("", "(built-in)"))
	assert.Equal(t, "engine.yaml", valueOr("engine.yaml", "(built-in)"))
}
