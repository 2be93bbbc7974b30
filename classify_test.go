package gitversion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifierDefaults(t *testing.T) {
	c, err := NewClassifier("", "", "")
	require.NoError(t, err)
	require.Len(t, c, 1)

	require.Equal(t, BumpPatch, c.Classify("anything at all"))
	require.Equal(t, BumpPatch, c.Classify(""))
}

func TestClassifierPriority(t *testing.T) {
	c, err := NewClassifier("breaking:.*", "(breaking|feature):.*", ".*")
	require.NoError(t, err)

	require.Equal(t, BumpMajor, c.Classify("breaking: drop v1 api"))
	require.Equal(t, BumpMinor, c.Classify("feature: add flag"))
	require.Equal(t, BumpPatch, c.Classify("fix typo"))
}

func TestClassifierFullMatch(t *testing.T) {
	c, err := NewClassifier("breaking", "", "patch:.*")
	require.NoError(t, err)

	// patterns must match the whole message
	require.Equal(t, BumpNone, c.Classify("breaking: x"))
	require.Equal(t, BumpMajor, c.Classify("breaking"))
	require.Equal(t, BumpNone, c.Classify("chore: tidy"))
}

func TestClassifierApply(t *testing.T) {
	c, err := NewClassifier("^breaking:.*", "^feature:.*", "^patch:.*")
	require.NoError(t, err)

	base := MustParseVersion("1.0.0")

	t.Run("Applied in order", func(t *testing.T) {
		v := c.Apply(base, []string{"breaking: x", "feature: y", "patch: z"})
		require.Equal(t, "2.1.1", v.String())
	})

	t.Run("Major resets earlier progress", func(t *testing.T) {
		v := c.Apply(base, []string{"feature: y", "patch: z", "breaking: x"})
		require.Equal(t, "2.0.0", v.String())
	})

	t.Run("Unmatched messages are ignored", func(t *testing.T) {
		v := c.Apply(base, []string{"docs: readme", "chore: deps"})
		require.Equal(t, "1.0.0", v.String())
	})

	t.Run("No messages", func(t *testing.T) {
		require.Equal(t, base, c.Apply(base, nil))
	})
}

func TestClassifierInvalidPattern(t *testing.T) {
	_, err := NewClassifier("", "(unclosed", "")
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "minorPattern", cfgErr.Key)
}

func TestBumpKindString(t *testing.T) {
	require.Equal(t, "major", BumpMajor.String())
	require.Equal(t, "minor", BumpMinor.String())
	require.Equal(t, "patch", BumpPatch.String())
	require.Equal(t, "none", BumpNone.String())
}
