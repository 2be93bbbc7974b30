package export

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

func TestExportPipelinesAzure(t *testing.T) {
	var out bytes.Buffer
	engaged, err := ExportPipelines(PipelineAuto, PipelineContext{
		Env:  map[string]string{"BUILD_BUILDID": "dummy"},
		Out:  &out,
		FS:   memfs.New(),
		Info: testBuildInfo(),
	})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"azure": true, "github": false}, engaged)

	output := out.String()
	require.Contains(t, output, "##vso[build.updatebuildnumber]1.2.3")
	require.Contains(t, output, "##vso[task.setvariable variable=BUILD_VERSION]1.2.3")
	require.Contains(t, output, "##vso[task.setvariable variable=BUILD_TIMESTAMP]2024-05-06T07:08:09Z")
	require.Contains(t, output, "##vso[task.setvariable variable=GIT_HASH]abcdefg")
	require.Contains(t, output, "##vso[task.setvariable variable=GIT_TIMESTAMP]2024-03-01T12:30:45Z")
}

func TestExportPipelinesGitHub(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/runner/github_env", []byte("EXISTING=1\n"), 0o644))

	var out bytes.Buffer
	engaged, err := ExportPipelines(PipelineAuto, PipelineContext{
		Env:  map[string]string{"GITHUB_ENV": "/runner/github_env"},
		Out:  &out,
		FS:   fs,
		Info: testBuildInfo(),
	})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"azure": false, "github": true}, engaged)
	require.Empty(t, out.String())

	content, err := util.ReadFile(fs, "/runner/github_env")
	require.NoError(t, err)
	require.Equal(t, "EXISTING=1\n"+
		"BUILD_VERSION=1.2.3\n"+
		"BUILD_TIMESTAMP=2024-05-06T07:08:09Z\n"+
		"GIT_HASH=abcdefg\n"+
		"GIT_TIMESTAMP=2024-03-01T12:30:45Z\n", string(content))
}

var errCloseFailed = errors.New("close failed")

// closeFailingFS hands out files whose Close always fails
type closeFailingFS struct {
	billy.Filesystem
}

func (fs closeFailingFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := fs.Filesystem.OpenFile(filename, flag, perm)
	if err != nil {
		return nil, err
	}
	return closeFailingFile{f}, nil
}

type closeFailingFile struct {
	billy.File
}

func (f closeFailingFile) Close() error {
	f.File.Close()
	return errCloseFailed
}

func TestExportPipelinesGitHubCloseError(t *testing.T) {
	var out bytes.Buffer
	engaged, err := ExportPipelines("github", PipelineContext{
		Env:  map[string]string{"GITHUB_ENV": "/runner/github_env"},
		Out:  &out,
		FS:   closeFailingFS{memfs.New()},
		Info: testBuildInfo(),
	})
	require.ErrorIs(t, err, errCloseFailed)
	require.ErrorContains(t, err, "github pipeline")
	require.True(t, engaged["github"])
}

func TestExportPipelinesSelection(t *testing.T) {
	env := map[string]string{"BUILD_BUILDID": "dummy", "GITHUB_ENV": "/github_env"}

	t.Run("Single exporter", func(t *testing.T) {
		var out bytes.Buffer
		fs := memfs.New()
		engaged, err := ExportPipelines("github", PipelineContext{Env: env, Out: &out, FS: fs, Info: testBuildInfo()})
		require.NoError(t, err)
		require.Equal(t, map[string]bool{"azure": false, "github": true}, engaged)
		require.Empty(t, out.String())
	})

	t.Run("None", func(t *testing.T) {
		var out bytes.Buffer
		fs := memfs.New()
		engaged, err := ExportPipelines(PipelineNone, PipelineContext{Env: env, Out: &out, FS: fs, Info: testBuildInfo()})
		require.NoError(t, err)
		require.Equal(t, map[string]bool{"azure": false, "github": false}, engaged)

		_, err = fs.Stat("/github_env")
		require.Error(t, err)
	})

	t.Run("No markers", func(t *testing.T) {
		var out bytes.Buffer
		engaged, err := ExportPipelines(PipelineAuto, PipelineContext{Env: map[string]string{}, Out: &out, FS: memfs.New(), Info: testBuildInfo()})
		require.NoError(t, err)
		require.Equal(t, map[string]bool{"azure": false, "github": false}, engaged)
		require.Empty(t, out.String())
	})
}
