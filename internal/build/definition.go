// Package build declares the build-and-release targets driven by build.yaml.
package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/haatos/simple-build/internal/project"
)

type Tools struct {
	DotNet          string `yaml:"dotnet"`
	Paket           string `yaml:"paket"`
	ReportGenerator string `yaml:"reportgenerator"`
	Octo            string `yaml:"octo"`
	InspectCode     string `yaml:"inspectcode"`
	GitVersion      string `yaml:"gitversion"`
}

type TestConfig struct {
	// Projects is a glob over project paths relative to the source dir.
	Projects string `yaml:"projects"`
	// Partitions is the number of CI agents sharing the test projects.
	Partitions     int    `yaml:"partitions"`
	Parallelism    int    `yaml:"parallelism"`
	CoverageFormat string `yaml:"coverage_format"`
}

type CoverageConfig struct {
	ReportTypes []string `yaml:"report_types"`
}

type NuGetConfig struct {
	PushParallelism int `yaml:"push_parallelism"`
}

type OctopusConfig struct {
	ReleaseNotes string `yaml:"release_notes"`
}

type DropConfig struct {
	Host       string `yaml:"host"`
	User       string `yaml:"user"`
	RemoteDir  string `yaml:"remote_dir"`
	KnownHosts string `yaml:"known_hosts"`
}

type Schedule struct {
	Name    string   `yaml:"name"`
	Cron    string   `yaml:"cron"`
	Targets []string `yaml:"targets"`
	Skip    []string `yaml:"skip"`
}

// Definition is the content of build.yaml. Every field is optional.
type Definition struct {
	Solution      string         `yaml:"solution"`
	SourceDir     string         `yaml:"source_dir"`
	ArtifactsDir  string         `yaml:"artifacts_dir"`
	DefaultTarget string         `yaml:"default_target"`
	Version       string         `yaml:"version"`
	Tools         Tools          `yaml:"tools"`
	Test          TestConfig     `yaml:"test"`
	Coverage      CoverageConfig `yaml:"coverage"`
	NuGet         NuGetConfig    `yaml:"nuget"`
	Octopus       OctopusConfig  `yaml:"octopus"`
	Drop          DropConfig     `yaml:"drop"`
	Schedules     []Schedule     `yaml:"schedules"`
}

func DefaultDefinition() *Definition {
	d := new(Definition)
	d.applyDefaults()
	return d
}

func (d *Definition) applyDefaults() {
	if d.SourceDir == "" {
		d.SourceDir = "src"
	}
	if d.ArtifactsDir == "" {
		d.ArtifactsDir = "artifacts"
	}
	if d.DefaultTarget == "" {
		d.DefaultTarget = OctoPack
	}
	if d.Test.Projects == "" {
		d.Test.Projects = project.DefaultTestPattern
	}
	if d.Test.Partitions < 1 {
		d.Test.Partitions = 1
	}
	if d.Test.Parallelism < 1 {
		d.Test.Parallelism = 1
	}
	if d.Test.CoverageFormat == "" {
		d.Test.CoverageFormat = "teamcity%2copencover"
	}
	if len(d.Coverage.ReportTypes) == 0 {
		d.Coverage.ReportTypes = []string{"Html", "TeamCitySummary", "TextSummary"}
	}
	if d.NuGet.PushParallelism < 1 {
		d.NuGet.PushParallelism = 5
	}
}

// LoadDefinition reads build.yaml. A missing file yields the defaults;
// unknown keys are rejected.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultDefinition(), nil
		}
		return nil, err
	}
	return ParseDefinition(data)
}

func ParseDefinition(data []byte) (*Definition, error) {
	d := new(Definition)
	if err := yaml.UnmarshalWithOptions(data, d, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("err parsing build definition: %w", err)
	}
	d.applyDefaults()
	for i, s := range d.Schedules {
		if s.Cron == "" {
			return nil, fmt.Errorf("schedule #%d has no cron expression", i+1)
		}
		if s.Name == "" {
			d.Schedules[i].Name = fmt.Sprintf("schedule-%d", i+1)
		}
	}
	return d, nil
}

// Layout resolves the definition's directories against the repository root.
type Layout struct {
	Root         string
	SourceDir    string
	ArtifactsDir string
	Solution     string
}

func (d *Definition) Layout(root string) Layout {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return Layout{
		Root:         root,
		SourceDir:    abs(d.SourceDir),
		ArtifactsDir: abs(d.ArtifactsDir),
		Solution:     abs(d.Solution),
	}
}

func (l Layout) Artifact(parts ...string) string {
	return filepath.Join(append([]string{l.ArtifactsDir}, parts...)...)
}
