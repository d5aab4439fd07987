package tool

const DefaultOcto = "octo"

type OctopusPackOptions struct {
	ToolPath     string
	ID           string
	Title        string
	Version      string
	BasePath     string
	OutputFolder string
	Overwrite    bool
}

func (o OctopusPackOptions) Invocation() Invocation {
	args := []string{
		"pack",
		"--id", o.ID,
		"--version", o.Version,
		"--basePath", o.BasePath,
		"--outFolder", o.OutputFolder,
	}
	if o.Title != "" {
		args = append(args, "--title", o.Title)
	}
	if o.Overwrite {
		args = append(args, "--overwrite")
	}
	return Invocation{Tool: orDefault(o.ToolPath, DefaultOcto), Args: args, Label: o.ID}
}

type OctopusPushOptions struct {
	ToolPath        string
	Server          string
	APIKey          string
	Packages        []string
	ReplaceExisting bool
}

func (o OctopusPushOptions) Invocation() Invocation {
	args := []string{"push"}
	for _, p := range o.Packages {
		args = append(args, "--package", p)
	}
	if o.ReplaceExisting {
		args = append(args, "--replace-existing")
	}
	args = append(args, "--server", o.Server, "--apiKey", o.APIKey)
	return Invocation{
		Tool:    orDefault(o.ToolPath, DefaultOcto),
		Args:    args,
		Secrets: []string{o.APIKey},
	}
}

type OctopusCreateReleaseOptions struct {
	ToolPath              string
	Server                string
	APIKey                string
	Project               string
	Version               string
	DefaultPackageVersion string
	ReleaseNotes          string
	EnableServiceMessages bool
}

func (o OctopusCreateReleaseOptions) Invocation() Invocation {
	args := []string{"create-release", "--project", o.Project}
	if o.Version != "" {
		args = append(args, "--version", o.Version)
	}
	if o.DefaultPackageVersion != "" {
		args = append(args, "--packageVersion", o.DefaultPackageVersion)
	}
	args = append(args, "--releaseNotes", o.ReleaseNotes)
	if o.EnableServiceMessages {
		args = append(args, "--enableServiceMessages")
	}
	args = append(args, "--server", o.Server, "--apiKey", o.APIKey)
	return Invocation{
		Tool:    orDefault(o.ToolPath, DefaultOcto),
		Args:    args,
		Secrets: []string{o.APIKey},
	}
}
