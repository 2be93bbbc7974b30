package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/jaxxstorm/gitversion"
)

// Pipeline selections besides exporter names
const (
	PipelineAuto = "auto"
	PipelineNone = "none"
)

// PipelineContext is what an exporter sees of its surroundings.
type PipelineContext struct {
	// Env holds the environment variables used for detection
	Env map[string]string

	// Out receives logging commands
	Out io.Writer

	// FS is used for environment files
	FS billy.Filesystem

	Info gitversion.BuildInfo
}

// Exporter publishes build information to one CI system. Export reports
// whether the CI system was detected.
type Exporter struct {
	Name   string
	Export func(ctx PipelineContext) (bool, error)
}

// Exporters lists the built-in CI exporters.
var Exporters = []Exporter{
	{Name: "azure", Export: exportAzure},
	{Name: "github", Export: exportGitHub},
}

func variables(info gitversion.BuildInfo) [][2]string {
	return [][2]string{
		{"BUILD_VERSION", info.Version},
		{"BUILD_TIMESTAMP", info.Timestamp},
		{"GIT_HASH", info.Hash()},
		{"GIT_TIMESTAMP", info.CommitTime()},
	}
}

func exportAzure(ctx PipelineContext) (bool, error) {
	if _, ok := ctx.Env["BUILD_BUILDID"]; !ok {
		return false, nil
	}

	lines := []string{fmt.Sprintf("##vso[build.updatebuildnumber]%s", ctx.Info.Version)}
	for _, kv := range variables(ctx.Info) {
		lines = append(lines, fmt.Sprintf("##vso[task.setvariable variable=%s]%s", kv[0], kv[1]))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(ctx.Out, line); err != nil {
			return true, err
		}
	}
	return true, nil
}

func exportGitHub(ctx PipelineContext) (bool, error) {
	path, ok := ctx.Env["GITHUB_ENV"]
	if !ok || path == "" {
		return false, nil
	}

	f, err := ctx.FS.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return true, fmt.Errorf("opening %s: %w", path, err)
	}

	var b strings.Builder
	for _, kv := range variables(ctx.Info) {
		fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
	}
	if _, err := f.Write([]byte(b.String())); err != nil {
		f.Close()
		return true, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("closing %s: %w", path, err)
	}
	return true, nil
}

// ExportPipelines runs the exporters chosen by selection: "auto" runs every
// exporter, "none" runs nothing, any other value runs the exporter with that
// name. The result maps every exporter name to whether it engaged.
func ExportPipelines(selection string, ctx PipelineContext) (map[string]bool, error) {
	engaged := make(map[string]bool, len(Exporters))
	for _, exporter := range Exporters {
		engaged[exporter.Name] = false
		if selection != PipelineAuto && selection != exporter.Name {
			continue
		}

		ok, err := exporter.Export(ctx)
		engaged[exporter.Name] = ok
		if err != nil {
			return engaged, fmt.Errorf("%s pipeline: %w", exporter.Name, err)
		}
	}
	return engaged, nil
}
