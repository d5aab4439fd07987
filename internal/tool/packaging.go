package tool

import "strings"

const (
	DefaultPaketPath       = ".paket/paket.exe"
	DefaultReportGenerator = "reportgenerator"
	DefaultInspectCode     = "jb"
)

type PaketPackOptions struct {
	ToolPath         string
	LockDependencies bool
	BuildConfig      string
	PackageVersion   string
	OutputDirectory  string
	Dir              string
}

func (o PaketPackOptions) Invocation() Invocation {
	args := []string{"pack"}
	if o.LockDependencies {
		args = append(args, "--lock-dependencies")
	}
	if o.BuildConfig != "" {
		args = append(args, "--build-config", o.BuildConfig)
	}
	if o.PackageVersion != "" {
		args = append(args, "--version", o.PackageVersion)
	}
	args = append(args, o.OutputDirectory)
	return Invocation{Tool: orDefault(o.ToolPath, DefaultPaketPath), Args: args, Dir: o.Dir}
}

type ReportGeneratorOptions struct {
	ToolPath        string
	Reports         []string
	TargetDirectory string
	ReportTypes     []string
}

func (o ReportGeneratorOptions) Invocation() Invocation {
	args := []string{
		"-reports:" + strings.Join(o.Reports, ";"),
		"-targetdir:" + o.TargetDirectory,
	}
	if len(o.ReportTypes) > 0 {
		args = append(args, "-reporttypes:"+strings.Join(o.ReportTypes, ";"))
	}
	return Invocation{Tool: orDefault(o.ToolPath, DefaultReportGenerator), Args: args}
}

type InspectCodeOptions struct {
	ToolPath   string
	TargetPath string
	Output     string
	Dir        string
}

func (o InspectCodeOptions) Invocation() Invocation {
	return Invocation{
		Tool: orDefault(o.ToolPath, DefaultInspectCode),
		Args: []string{"inspectcode", o.TargetPath, "--output=" + o.Output},
		Dir:  o.Dir,
	}
}
