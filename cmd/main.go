package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/caarlos0/env/v11"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jaxxstorm/gitversion"
	"github.com/jaxxstorm/gitversion/export"
)

// Version will be set by build process
var Version = "dev"

type Globals struct {
	Repo         string           `short:"r" help:"Repository path (default: current directory)"`
	Config       []string         `short:"c" help:"Properties files to read GITVERSION_* settings from" default:"${config_file}"`
	Supplied     string           `help:"Externally supplied version; the calculation only runs when it equals the trigger (default: the trigger)"`
	Trigger      string           `help:"Sentinel version that activates the calculation"`
	Disabled     bool             `help:"Disable the calculation and pass the supplied version through"`
	Base         string           `help:"Version used when no tag matches"`
	Qualifier    string           `short:"q" help:"Qualifier mode: auto, hash or a literal qualifier"`
	TagPattern   string           `help:"Regex a tag name must match; the last capture group is the version"`
	TagPrefix    string           `help:"Only consider tags under refs/tags/<prefix>"`
	MajorPattern string           `help:"Regex for commit messages implying a major bump"`
	MinorPattern string           `help:"Regex for commit messages implying a minor bump"`
	PatchPattern string           `help:"Regex for commit messages implying a patch bump"`
	Override     string           `help:"Use this version verbatim"`
	LogLevel     string           `default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	ShowVersion  kong.VersionFlag `name:"version" help:"Show version information"`

	stdout io.Writer
	fs     billy.Filesystem
	env    map[string]string
}

type CLI struct {
	Globals

	Print       PrintCmd       `cmd:"" default:"1" help:"Print build info"`
	Properties  PropertiesCmd  `cmd:"" help:"Write the properties file"`
	VersionFile VersionFileCmd `cmd:"" help:"Write the version file"`
	Pipeline    PipelineCmd    `cmd:"" help:"Export build info to the detected CI pipeline"`
}

type PrintCmd struct {
	Output string `short:"o" default:"text" enum:"text,table,json,yaml" help:"Output format"`
}

type PropertiesCmd struct {
	File string `short:"f" default:"${properties_file}" help:"Properties file to write"`
}

type VersionFileCmd struct {
	File string `short:"f" default:"${version_file}" help:"Version file to write"`
}

type PipelineCmd struct {
	Select string `help:"Exporter to run: auto, none, azure or github (default: GITVERSION_PIPELINE)"`
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli, parserOptions()...)

	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parserOptions() []kong.Option {
	return []kong.Option{
		kong.Name("gitversion"),
		kong.Description("Calculate a semantic version from Git tags and commit messages"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":         Version,
			"config_file":     gitversion.DefaultConfigFile,
			"properties_file": export.DefaultPropertiesFile,
			"version_file":    export.DefaultVersionFile,
		},
	}
}

func (g *Globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

// filesystem is rooted at "/"; relative paths must go through outputPath
// first. CI provided paths such as GITHUB_ENV are already absolute.
func (g *Globals) filesystem() billy.Filesystem {
	if g.fs == nil {
		return osfs.New("/")
	}
	return g.fs
}

// outputPath resolves file against the working directory.
func outputPath(file string) (string, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", file, err)
	}
	return path, nil
}

func (g *Globals) environment() map[string]string {
	if g.env != nil {
		return g.env
	}
	return env.ToMap(os.Environ())
}

func (g *Globals) logger() *slog.Logger {
	level := slog.LevelWarn
	switch g.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// config loads settings from properties files and the environment and
// applies any flags given on the command line.
func (g *Globals) config() (gitversion.Config, error) {
	cfg, err := gitversion.LoadConfig(g.Config...)
	if err != nil {
		return gitversion.Config{}, err
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{g.Repo, &cfg.Path},
		{g.Trigger, &cfg.Trigger},
		{g.Base, &cfg.Base},
		{g.Qualifier, &cfg.Qualifier},
		{g.TagPattern, &cfg.TagPattern},
		{g.TagPrefix, &cfg.TagPrefix},
		{g.MajorPattern, &cfg.MajorPattern},
		{g.MinorPattern, &cfg.MinorPattern},
		{g.PatchPattern, &cfg.PatchPattern},
		{g.Override, &cfg.Override},
	}
	for _, o := range overrides {
		if o.flag != "" {
			*o.target = o.flag
		}
	}
	if g.Disabled {
		cfg.Enabled = false
	}

	cfg.Logger = g.logger()
	return cfg, nil
}

// buildInfo runs the version calculation once.
func (g *Globals) buildInfo() (gitversion.BuildInfo, gitversion.Config, error) {
	cfg, err := g.config()
	if err != nil {
		return gitversion.BuildInfo{}, cfg, fmt.Errorf("loading config: %w", err)
	}

	supplied := g.Supplied
	if supplied == "" {
		supplied = cfg.Trigger
	}

	result := gitversion.Resolve(cfg, supplied)
	if !result.OK() {
		return gitversion.BuildInfo{}, cfg, fmt.Errorf("could not calculate git version (%s): %w", result.Kind, result.Err)
	}
	return result.BuildInfo, cfg, nil
}

func (c *PrintCmd) Run(g *Globals) error {
	info, _, err := g.buildInfo()
	if err != nil {
		return err
	}
	return export.Print(g.out(), info, c.Output)
}

func (c *PropertiesCmd) Run(g *Globals) error {
	info, cfg, err := g.buildInfo()
	if err != nil {
		return err
	}
	path, err := outputPath(c.File)
	if err != nil {
		return err
	}
	if err := export.WriteProperties(g.filesystem(), path, info); err != nil {
		return err
	}
	cfg.Logger.Info("wrote properties file", "path", path, "version", info.Version)
	return nil
}

func (c *VersionFileCmd) Run(g *Globals) error {
	info, cfg, err := g.buildInfo()
	if err != nil {
		return err
	}
	path, err := outputPath(c.File)
	if err != nil {
		return err
	}
	if err := export.WriteVersionFile(g.filesystem(), path, info); err != nil {
		return err
	}
	cfg.Logger.Info("wrote version file", "path", path, "version", info.Version)
	return nil
}

func (c *PipelineCmd) Run(g *Globals) error {
	info, cfg, err := g.buildInfo()
	if err != nil {
		return err
	}

	selection := c.Select
	if selection == "" {
		selection = cfg.Pipeline
	}

	engaged, err := export.ExportPipelines(selection, export.PipelineContext{
		Env:  g.environment(),
		Out:  g.out(),
		FS:   g.filesystem(),
		Info: info,
	})
	for name, ok := range engaged {
		if ok {
			cfg.Logger.Info("exported build info", "pipeline", name, "version", info.Version)
		}
	}
	return err
}
