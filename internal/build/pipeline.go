package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/haatos/simple-build/internal/partition"
	"github.com/haatos/simple-build/internal/project"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/target"
	"github.com/haatos/simple-build/internal/tool"
	"github.com/haatos/simple-build/internal/util"
	"github.com/sirupsen/logrus"
)

const (
	Clean         = "clean"
	Restore       = "restore"
	Compile       = "compile"
	Test          = "test"
	Coverage      = "coverage"
	Analysis      = "analysis"
	NuGetPack     = "nuget-pack"
	NuGetPush     = "nuget-push"
	Publish       = "publish"
	OctoPack      = "octo-pack"
	OctoPush      = "octo-push"
	DeployRelease = "deploy-release"
	DropPublish   = "drop-publish"
)

const (
	nugetDir        = "nuget"
	octoDir         = "octo"
	publishedDir    = "published-app"
	coverageDir     = "coverage-report"
	coverageArchive = "coverage-report.zip"
	inspectCodeFile = "inspectCode.xml"
)

// Dropper uploads the published application bundles to a remote host.
type Dropper interface {
	Upload(ctx context.Context, cfg DropConfig, privateKey []byte, localDir string) error
}

type Env struct {
	Root          string
	Definition    *Definition
	Configuration settings.Configuration
	ServerBuild   bool
	TestPartition partition.Partition
	// VersionOverride replaces GitVersion when set.
	VersionOverride string
	Executor        tool.Executor
	Dropper         Dropper
	Logger          logrus.FieldLogger
}

type Pipeline struct {
	env    Env
	layout Layout

	mu       sync.Mutex
	version  *tool.Version
	projects []project.Project
}

func New(env Env) *Pipeline {
	if env.Definition == nil {
		env.Definition = DefaultDefinition()
	}
	if env.Logger == nil {
		env.Logger = logrus.StandardLogger()
	}
	if env.Configuration == "" {
		env.Configuration = settings.DefaultConfiguration(env.ServerBuild)
	}
	if env.TestPartition.Count == 0 {
		env.TestPartition = partition.Single()
	}
	return &Pipeline{env: env, layout: env.Definition.Layout(env.Root)}
}

func (p *Pipeline) Layout() Layout {
	return p.layout
}

func (p *Pipeline) DefaultTarget() string {
	return p.env.Definition.DefaultTarget
}

// Graph validates the declared targets.
func (p *Pipeline) Graph() (*target.Graph, error) {
	g, err := target.NewGraph(p.Targets()...)
	if err != nil {
		return nil, err
	}
	if !g.Has(p.DefaultTarget()) {
		return nil, fmt.Errorf("%w: default target %s", target.ErrUnknownTarget, p.DefaultTarget())
	}
	return g, nil
}

func (p *Pipeline) Targets() []target.Target {
	return []target.Target{
		{
			Name:        Clean,
			Description: "Removes bin/obj directories and previous artifacts",
			Before:      []string{Restore},
			Action:      p.clean,
		},
		{
			Name:        Restore,
			Description: "Restores package references",
			Action:      p.restore,
		},
		{
			Name:        Compile,
			Description: "Builds the solution",
			DependsOn:   []string{Restore},
			Action:      p.compile,
		},
		{
			Name:        Test,
			Description: "Runs the test projects of the current partition",
			DependsOn:   []string{Compile},
			Produces:    []string{"*.trx"},
			Action:      p.test,
		},
		{
			Name:        Coverage,
			Description: "Renders and archives the coverage report",
			DependsOn:   []string{Test},
			Produces:    []string{coverageArchive},
			Action:      p.coverage,
		},
		{
			Name:        Analysis,
			Description: "Runs code inspection",
			DependsOn:   []string{Restore},
			Produces:    []string{inspectCodeFile},
			Action:      p.analysis,
		},
		{
			Name:        NuGetPack,
			Description: "Creates NuGet packages with Paket",
			DependsOn:   []string{Test},
			Produces:    []string{nugetDir + "/*.nupkg"},
			Action:      p.nugetPack,
		},
		{
			Name:              NuGetPush,
			Description:       "Pushes every produced NuGet package",
			DependsOn:         []string{NuGetPack},
			Requires:          []string{settings.NuGetSourceURL, settings.NuGetAPIKey},
			ContinueOnFailure: true,
			Action:            p.nugetPush,
		},
		{
			Name:        Publish,
			Description: "Publishes every publishable project",
			DependsOn:   []string{Test},
			Action:      p.publish,
		},
		{
			Name:        OctoPack,
			Description: "Packs published applications for Octopus Deploy",
			DependsOn:   []string{Publish},
			Produces:    []string{octoDir + "/*.nupkg"},
			Action:      p.octoPack,
		},
		{
			Name:        OctoPush,
			Description: "Pushes Octopus packages to the deployment server",
			DependsOn:   []string{OctoPack},
			Requires:    []string{settings.OctopusServerURL, settings.OctopusAPIKey},
			Action:      p.octoPush,
		},
		{
			Name:        DeployRelease,
			Description: "Creates an Octopus release",
			DependsOn:   []string{OctoPush},
			Requires: []string{
				settings.OctopusServerURL, settings.OctopusAPIKey, settings.OctopusProjectName,
			},
			Action: p.deployRelease,
		},
		{
			Name:        DropPublish,
			Description: "Uploads published applications over SFTP",
			DependsOn:   []string{Publish},
			Requires:    []string{settings.DropSSHPrivateKey},
			Action:      p.dropPublish,
		},
	}
}

func (p *Pipeline) toolPath(configured, fallback string) string {
	path := configured
	if path == "" {
		path = fallback
	}
	// bare names are looked up on PATH, relative paths belong to the repo
	if strings.ContainsRune(path, '/') && !filepath.IsAbs(path) {
		return filepath.Join(p.env.Root, filepath.FromSlash(path))
	}
	return path
}

func (p *Pipeline) dotnet(inv tool.Invocation) tool.Invocation {
	inv.Tool = p.toolPath(p.env.Definition.Tools.DotNet, tool.DotNet)
	if inv.Dir == "" {
		inv.Dir = p.env.Root
	}
	return inv
}

func (p *Pipeline) exec(ctx context.Context, inv tool.Invocation) error {
	if inv.Dir == "" {
		inv.Dir = p.env.Root
	}
	_, err := p.env.Executor.Execute(ctx, inv)
	return err
}

func (p *Pipeline) resolveVersion(ctx context.Context, tc *target.Context) (*tool.Version, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.version != nil {
		return p.version, nil
	}

	override := p.env.VersionOverride
	if override == "" {
		override = p.env.Definition.Version
	}
	var (
		v   *tool.Version
		err error
	)
	if override != "" {
		v, err = tool.VersionFromString(override)
	} else {
		v, err = tool.GitVersion(ctx, p.env.Executor, tool.GitVersionOptions{
			ToolPath: p.toolPath(p.env.Definition.Tools.GitVersion, tool.DefaultGitVersion),
			Dir:      p.env.Root,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("err resolving version: %w", err)
	}
	tc.Logger.WithField("version", v.NuGetVersionV2).Info("resolved version")
	p.version = v
	return v, nil
}

func (p *Pipeline) discoverProjects() ([]project.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.projects != nil {
		return p.projects, nil
	}
	projects, err := project.Discover(p.layout.SourceDir)
	if err != nil {
		return nil, err
	}
	p.projects = projects
	return projects, nil
}

func (p *Pipeline) publishableProjects() ([]project.Project, error) {
	projects, err := p.discoverProjects()
	if err != nil {
		return nil, err
	}
	return project.Publishable(projects), nil
}

// TestProjects returns the test projects owned by the configured partition.
func (p *Pipeline) TestProjects() ([]project.Project, error) {
	def := p.env.Definition
	if def.Test.Partitions > 1 && p.env.TestPartition.Count > 1 && p.env.TestPartition.Count != def.Test.Partitions {
		return nil, fmt.Errorf(
			"%w: partition %s does not match the %d partitions in the build definition",
			partition.ErrInvalidPartition, p.env.TestPartition, def.Test.Partitions,
		)
	}
	projects, err := p.discoverProjects()
	if err != nil {
		return nil, err
	}
	tests, err := project.Match(projects, def.Test.Projects)
	if err != nil {
		return nil, err
	}
	return partition.Select(p.env.TestPartition, tests), nil
}

func (p *Pipeline) clean(ctx context.Context, tc *target.Context) error {
	dirs, err := util.GlobDirectories(p.layout.SourceDir, "**/bin", "**/obj")
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		tc.Logger.Debugf("deleting %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	if err := util.EnsureCleanDirectory(p.layout.ArtifactsDir); err != nil {
		return err
	}
	return p.exec(ctx, p.dotnet(tool.DotNetCleanOptions{ProjectFile: p.layout.Solution}.Invocation()))
}

func (p *Pipeline) restore(ctx context.Context, _ *target.Context) error {
	return p.exec(ctx, p.dotnet(tool.DotNetRestoreOptions{ProjectFile: p.layout.Solution}.Invocation()))
}

func (p *Pipeline) compile(ctx context.Context, tc *target.Context) error {
	v, err := p.resolveVersion(ctx, tc)
	if err != nil {
		return err
	}
	return p.exec(ctx, p.dotnet(tool.DotNetBuildOptions{
		ProjectFile:   p.layout.Solution,
		Configuration: p.env.Configuration.String(),
		NoRestore:     true,
		Version:       v.Properties(),
	}.Invocation()))
}

func (p *Pipeline) collectCoverage(tc *target.Context) bool {
	return tc.Invoked(Coverage) || p.env.ServerBuild
}

func (p *Pipeline) test(ctx context.Context, tc *target.Context) error {
	projects, err := p.TestProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		tc.Logger.Warnf("no test projects in partition %s", p.env.TestPartition)
		tc.SkipOutputs()
		return nil
	}
	if err := os.MkdirAll(p.layout.ArtifactsDir, os.ModePerm); err != nil {
		return err
	}

	collect := p.collectCoverage(tc)
	invocations := make([]tool.Invocation, 0, len(projects))
	for _, proj := range projects {
		opts := tool.DotNetTestOptions{
			ProjectFile:      proj.Path,
			Configuration:    p.env.Configuration.String(),
			NoBuild:          tc.Invoked(Compile),
			ResultsDirectory: p.layout.ArtifactsDir,
			Logger:           fmt.Sprintf("trx;LogFileName=%s.trx", proj.Name),
		}
		if collect {
			opts.Properties = map[string]string{
				"CollectCoverage":      "true",
				"CoverletOutputFormat": p.env.Definition.Test.CoverageFormat,
				"CoverletOutput":       p.layout.Artifact(proj.Name + ".xml"),
			}
			if p.env.ServerBuild {
				opts.Properties["UseSourceLink"] = "true"
			}
		}
		invocations = append(invocations, p.dotnet(opts.Invocation()))
	}

	tc.Logger.Infof("running %d test project(s) in partition %s", len(projects), p.env.TestPartition)
	if _, err := tool.RunAll(ctx, p.env.Executor, invocations, tool.CombineOptions{
		Parallelism:       p.env.Definition.Test.Parallelism,
		CompleteOnFailure: true,
	}); err != nil {
		return err
	}

	if collect {
		reports, err := p.coverageReports()
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			return &target.ArtifactError{Target: Test, Pattern: "*.xml"}
		}
	}
	return nil
}

func (p *Pipeline) coverageReports() ([]string, error) {
	matches, err := util.GlobFiles(p.layout.ArtifactsDir, "*.xml")
	if err != nil {
		return nil, err
	}
	reports := matches[:0]
	for _, m := range matches {
		if filepath.Base(m) != inspectCodeFile {
			reports = append(reports, m)
		}
	}
	return reports, nil
}

func (p *Pipeline) coverage(ctx context.Context, _ *target.Context) error {
	reports, err := p.coverageReports()
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return fmt.Errorf("no coverage results under %s: run the test target with coverage enabled", p.layout.ArtifactsDir)
	}

	reportDir := p.layout.Artifact(coverageDir)
	if err := p.exec(ctx, tool.ReportGeneratorOptions{
		ToolPath:        p.toolPath(p.env.Definition.Tools.ReportGenerator, tool.DefaultReportGenerator),
		Reports:         reports,
		TargetDirectory: reportDir,
		ReportTypes:     p.env.Definition.Coverage.ReportTypes,
	}.Invocation()); err != nil {
		return err
	}
	_, err = util.ArchiveDirectory(reportDir, p.layout.Artifact(coverageArchive))
	return err
}

func (p *Pipeline) analysis(ctx context.Context, _ *target.Context) error {
	if err := os.MkdirAll(p.layout.ArtifactsDir, os.ModePerm); err != nil {
		return err
	}
	return p.exec(ctx, tool.InspectCodeOptions{
		ToolPath:   p.toolPath(p.env.Definition.Tools.InspectCode, tool.DefaultInspectCode),
		TargetPath: p.layout.Solution,
		Output:     p.layout.Artifact(inspectCodeFile),
	}.Invocation())
}

func (p *Pipeline) nugetPack(ctx context.Context, tc *target.Context) error {
	v, err := p.resolveVersion(ctx, tc)
	if err != nil {
		return err
	}
	return p.exec(ctx, tool.PaketPackOptions{
		ToolPath:         p.toolPath(p.env.Definition.Tools.Paket, tool.DefaultPaketPath),
		LockDependencies: true,
		BuildConfig:      p.env.Configuration.String(),
		PackageVersion:   v.NuGetVersionV2,
		OutputDirectory:  p.layout.Artifact(nugetDir),
	}.Invocation())
}

func (p *Pipeline) nugetPush(ctx context.Context, tc *target.Context) error {
	packages, err := tc.Produced(nugetDir + "/*.nupkg")
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		tc.Logger.Info("no packages to push")
		return nil
	}

	invocations := make([]tool.Invocation, 0, len(packages))
	for _, pkg := range packages {
		invocations = append(invocations, p.dotnet(tool.DotNetNuGetPushOptions{
			TargetPath: pkg,
			Source:     tc.Requirement(settings.NuGetSourceURL),
			APIKey:     tc.Requirement(settings.NuGetAPIKey),
		}.Invocation()))
	}
	_, err = tool.RunAll(ctx, p.env.Executor, invocations, tool.CombineOptions{
		Parallelism:       p.env.Definition.NuGet.PushParallelism,
		CompleteOnFailure: true,
	})
	var agg *tool.AggregateError
	if errors.As(err, &agg) {
		tc.Logger.WithFields(logrus.Fields{
			"pushed": len(agg.Succeeded),
			"failed": len(agg.Failed),
		}).Warn("some packages were not pushed")
	}
	return err
}

func (p *Pipeline) publishOutput(proj project.Project) string {
	return p.layout.Artifact(publishedDir, proj.Name)
}

func (p *Pipeline) publish(ctx context.Context, tc *target.Context) error {
	projects, err := p.publishableProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		tc.Logger.Warn("no project sets IsPublishable=true")
		return nil
	}
	v, err := p.resolveVersion(ctx, tc)
	if err != nil {
		return err
	}
	for _, proj := range projects {
		if err := p.exec(ctx, p.dotnet(tool.DotNetPublishOptions{
			Dir:           proj.Dir(),
			Configuration: p.env.Configuration.String(),
			NoRestore:     tc.Planned(Restore),
			Output:        p.publishOutput(proj),
			Version:       v.Properties(),
		}.Invocation())); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) octoPack(ctx context.Context, tc *target.Context) error {
	projects, err := p.publishableProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		tc.Logger.Warn("nothing was published, no Octopus packages to create")
		tc.SkipOutputs()
		return nil
	}
	v, err := p.resolveVersion(ctx, tc)
	if err != nil {
		return err
	}
	for _, proj := range projects {
		if err := p.exec(ctx, tool.OctopusPackOptions{
			ToolPath:     p.toolPath(p.env.Definition.Tools.Octo, tool.DefaultOcto),
			ID:           proj.Name,
			Title:        proj.Name,
			Version:      v.NuGetVersionV2,
			BasePath:     p.publishOutput(proj),
			OutputFolder: p.layout.Artifact(octoDir),
			Overwrite:    true,
		}.Invocation()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) octoPush(ctx context.Context, tc *target.Context) error {
	packages, err := tc.Produced(octoDir + "/*.nupkg")
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		tc.Logger.Info("no packages to push")
		return nil
	}
	return p.exec(ctx, tool.OctopusPushOptions{
		ToolPath:        p.toolPath(p.env.Definition.Tools.Octo, tool.DefaultOcto),
		Server:          tc.Requirement(settings.OctopusServerURL),
		APIKey:          tc.Requirement(settings.OctopusAPIKey),
		Packages:        packages,
		ReplaceExisting: true,
	}.Invocation())
}

func (p *Pipeline) deployRelease(ctx context.Context, tc *target.Context) error {
	v, err := p.resolveVersion(ctx, tc)
	if err != nil {
		return err
	}
	return p.exec(ctx, tool.OctopusCreateReleaseOptions{
		ToolPath:              p.toolPath(p.env.Definition.Tools.Octo, tool.DefaultOcto),
		Server:                tc.Requirement(settings.OctopusServerURL),
		APIKey:                tc.Requirement(settings.OctopusAPIKey),
		Project:               tc.Requirement(settings.OctopusProjectName),
		Version:               v.NuGetVersionV2,
		DefaultPackageVersion: v.NuGetVersionV2,
		ReleaseNotes:          p.env.Definition.Octopus.ReleaseNotes,
		EnableServiceMessages: true,
	}.Invocation())
}

func (p *Pipeline) dropPublish(ctx context.Context, tc *target.Context) error {
	cfg := p.env.Definition.Drop
	if cfg.Host == "" || cfg.RemoteDir == "" {
		return errors.New("drop.host and drop.remote_dir must be set in the build definition")
	}
	if p.env.Dropper == nil {
		return errors.New("no drop uploader configured")
	}
	localDir := p.layout.Artifact(publishedDir)
	exists, err := util.PathExists(localDir)
	if err != nil {
		return err
	}
	if !exists {
		tc.Logger.Warn("nothing was published, nothing to drop")
		return nil
	}
	return p.env.Dropper.Upload(ctx, cfg, []byte(tc.Requirement(settings.DropSSHPrivateKey)), localDir)
}
