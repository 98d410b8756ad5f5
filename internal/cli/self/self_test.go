package self

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"v1.2.3", "1.2.3", " v0.1.0 "} {
		v, err := ParseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, strings.TrimPrefix(strings.TrimSpace(in), "v"), v.String())
	}

	_, err := ParseVersion("not-a-version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ensure version is like vX.Y.Z")
}

func TestParseRepositorySlug(t *testing.T) {
	t.Parallel()
	slug, err := ParseRepositorySlug("owner/repo")
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", slug)

	for _, bad := range []string{"owner", "owner/", "/repo", "a/b/c"} {
		_, err := ParseRepositorySlug(bad)
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "invalid --source format")
	}
}

func TestConfirm(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	assert.True(t, confirm(&out, strings.NewReader("y\n")))
	assert.True(t, confirm(&out, strings.NewReader("Y\n")))
	assert.False(t, confirm(&out, strings.NewReader("\n")))
	assert.False(t, confirm(&out, strings.NewReader("")))
	assert.Contains(t, out.String(), "Do you want to update? (y/N): ")
}

func runSelfUpdate(t *testing.T, version string, args ...string) error {
	t.Helper()
	var out bytes.Buffer
	app := &cli.App{
		Name:     "blumen-test-self",
		Version:  version,
		Commands: []*cli.Command{NewSelfCommand()},
		Writer:   &out,
		ExitErrHandler: func(context *cli.Context, err error) {
			// Do nothing, let test assertions handle errors
		},
	}
	return app.Run(append([]string{"blumen-test-self", "self", "update"}, args...))
}

// Both failures happen before any network access.
func TestUpdate_InvalidInputs(t *testing.T) {
	t.Parallel()
	err := runSelfUpdate(t, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing version 'dev'")

	err = runSelfUpdate(t, "v1.0.0", "--source", "not-a-slug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --source format")
}
