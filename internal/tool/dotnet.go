package tool

const DotNet = "dotnet"

// VersionProperties are the assembly version switches shared by build and
// publish.
type VersionProperties struct {
	AssemblyVersion      string
	FileVersion          string
	InformationalVersion string
}

func (v VersionProperties) args() []string {
	props := map[string]string{}
	if v.AssemblyVersion != "" {
		props["AssemblyVersion"] = v.AssemblyVersion
	}
	if v.FileVersion != "" {
		props["FileVersion"] = v.FileVersion
	}
	if v.InformationalVersion != "" {
		props["InformationalVersion"] = v.InformationalVersion
	}
	return properties(props)
}

type DotNetRestoreOptions struct {
	ProjectFile string
	Dir         string
}

func (o DotNetRestoreOptions) Invocation() Invocation {
	args := []string{"restore"}
	if o.ProjectFile != "" {
		args = append(args, o.ProjectFile)
	}
	return Invocation{Tool: DotNet, Args: args, Dir: o.Dir}
}

type DotNetBuildOptions struct {
	ProjectFile   string
	Configuration string
	NoRestore     bool
	Version       VersionProperties
	Dir           string
}

func (o DotNetBuildOptions) Invocation() Invocation {
	args := []string{"build"}
	if o.ProjectFile != "" {
		args = append(args, o.ProjectFile)
	}
	if o.Configuration != "" {
		args = append(args, "--configuration", o.Configuration)
	}
	if o.NoRestore {
		args = append(args, "--no-restore")
	}
	args = append(args, o.Version.args()...)
	return Invocation{Tool: DotNet, Args: args, Dir: o.Dir}
}

type DotNetTestOptions struct {
	ProjectFile      string
	Configuration    string
	NoBuild          bool
	ResultsDirectory string
	Logger           string
	Properties       map[string]string
	Dir              string
}

func (o DotNetTestOptions) Invocation() Invocation {
	args := []string{"test"}
	if o.ProjectFile != "" {
		args = append(args, o.ProjectFile)
	}
	if o.Configuration != "" {
		args = append(args, "--configuration", o.Configuration)
	}
	if o.NoBuild {
		args = append(args, "--no-build")
	}
	if o.ResultsDirectory != "" {
		args = append(args, "--results-directory", o.ResultsDirectory)
	}
	if o.Logger != "" {
		args = append(args, "--logger", o.Logger)
	}
	args = append(args, properties(o.Properties)...)
	return Invocation{Tool: DotNet, Args: args, Dir: o.Dir, Label: o.ProjectFile}
}

type DotNetCleanOptions struct {
	ProjectFile   string
	Configuration string
	Dir           string
}

func (o DotNetCleanOptions) Invocation() Invocation {
	args := []string{"clean"}
	if o.ProjectFile != "" {
		args = append(args, o.ProjectFile)
	}
	if o.Configuration != "" {
		args = append(args, "--configuration", o.Configuration)
	}
	return Invocation{Tool: DotNet, Args: args, Dir: o.Dir}
}

type DotNetPublishOptions struct {
	// Dir is the project directory; publish runs inside it.
	Dir           string
	Configuration string
	NoRestore     bool
	Output        string
	Version       VersionProperties
}

func (o DotNetPublishOptions) Invocation() Invocation {
	args := []string{"publish"}
	if o.Configuration != "" {
		args = append(args, "--configuration", o.Configuration)
	}
	if o.NoRestore {
		args = append(args, "--no-restore")
	}
	if o.Output != "" {
		args = append(args, "--output", o.Output)
	}
	args = append(args, o.Version.args()...)
	return Invocation{Tool: DotNet, Args: args, Dir: o.Dir}
}

type DotNetNuGetPushOptions struct {
	TargetPath string
	Source     string
	APIKey     string
}

func (o DotNetNuGetPushOptions) Invocation() Invocation {
	args := []string{"nuget", "push", o.TargetPath}
	if o.Source != "" {
		args = append(args, "--source", o.Source)
	}
	if o.APIKey != "" {
		args = append(args, "--api-key", o.APIKey)
	}
	return Invocation{
		Tool:    DotNet,
		Args:    args,
		Secrets: []string{o.APIKey},
		Label:   o.TargetPath,
	}
}
