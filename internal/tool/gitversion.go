package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const DefaultGitVersion = "dotnet-gitversion"

// Version carries the GitVersion variables the build consumes.
type Version struct {
	SemVer               string `json:"SemVer"`
	FullSemVer           string `json:"FullSemVer"`
	AssemblySemVer       string `json:"AssemblySemVer"`
	AssemblySemFileVer   string `json:"AssemblySemFileVer"`
	InformationalVersion string `json:"InformationalVersion"`
	NuGetVersionV2       string `json:"NuGetVersionV2"`
}

func (v *Version) Properties() VersionProperties {
	return VersionProperties{
		AssemblyVersion:      v.AssemblySemVer,
		FileVersion:          v.AssemblySemFileVer,
		InformationalVersion: v.InformationalVersion,
	}
}

// VersionFromString derives the GitVersion variables from a semantic version.
func VersionFromString(s string) (*Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	assembly := fmt.Sprintf("%d.%d.%d.0", sv.Major(), sv.Minor(), sv.Patch())
	return &Version{
		SemVer:               sv.String(),
		FullSemVer:           sv.String(),
		AssemblySemVer:       assembly,
		AssemblySemFileVer:   assembly,
		InformationalVersion: sv.Original(),
		NuGetVersionV2:       sv.String(),
	}, nil
}

type GitVersionOptions struct {
	ToolPath string
	Dir      string
}

func (o GitVersionOptions) Invocation() Invocation {
	return Invocation{
		Tool: orDefault(o.ToolPath, DefaultGitVersion),
		Args: []string{"/output", "json"},
		Dir:  o.Dir,
	}
}

// ParseGitVersion reads the JSON printed by GitVersion.
func ParseGitVersion(data []byte) (*Version, error) {
	v := new(Version)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("err parsing gitversion output: %w", err)
	}
	if v.NuGetVersionV2 == "" {
		v.NuGetVersionV2 = v.SemVer
	}
	if v.SemVer == "" {
		return nil, fmt.Errorf("gitversion output has no SemVer")
	}
	if _, err := semver.NewVersion(v.SemVer); err != nil {
		return nil, fmt.Errorf("gitversion SemVer %q: %w", v.SemVer, err)
	}
	return v, nil
}

// GitVersion runs GitVersion and parses its output.
func GitVersion(ctx context.Context, exec Executor, opts GitVersionOptions) (*Version, error) {
	out, err := exec.Execute(ctx, opts.Invocation())
	if err != nil {
		return nil, err
	}
	return ParseGitVersion([]byte(out.Stdout))
}
