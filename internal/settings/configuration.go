package settings

import (
	"fmt"
	"strings"
)

type Configuration string

const (
	Debug   Configuration = "Debug"
	Release Configuration = "Release"
)

func ParseConfiguration(s string) (Configuration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "release":
		return Release, nil
	}
	return "", fmt.Errorf("invalid configuration %q: must be Debug or Release", s)
}

func (c Configuration) String() string {
	return string(c)
}

func (c Configuration) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

func (c *Configuration) UnmarshalText(text []byte) error {
	parsed, err := ParseConfiguration(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DefaultConfiguration is Release on a server build and Debug otherwise.
func DefaultConfiguration(serverBuild bool) Configuration {
	if serverBuild {
		return Release
	}
	return Debug
}

// serverBuildVariables are set by the CI hosts we know about.
var serverBuildVariables = []string{
	"CI",
	"TF_BUILD",
	"TEAMCITY_VERSION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
}

func IsServerBuild(lookup func(string) (string, bool)) bool {
	for _, name := range serverBuildVariables {
		if value, ok := lookup(name); ok && value != "" && !strings.EqualFold(value, "false") {
			return true
		}
	}
	return false
}
