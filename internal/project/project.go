// Package project finds the .NET projects of a repository.
package project

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/haatos/simple-build/internal/util"
)

const DefaultTestPattern = "**/*.UnitTest.csproj"

type Project struct {
	Name string
	// Path is the absolute path of the .csproj file.
	Path string
	// RelPath is Path relative to the source dir, slash separated.
	RelPath     string
	Publishable bool
}

func (p Project) Dir() string {
	return filepath.Dir(p.Path)
}

type csproj struct {
	PropertyGroups []struct {
		IsPublishable string `xml:"IsPublishable"`
	} `xml:"PropertyGroup"`
}

// Load reads a single project file.
func Load(sourceDir, path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, err
	}
	var doc csproj
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Project{}, fmt.Errorf("err parsing %s: %w", path, err)
	}

	rel, err := filepath.Rel(sourceDir, path)
	if err != nil {
		return Project{}, err
	}
	p := Project{
		Name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:    path,
		RelPath: filepath.ToSlash(rel),
	}
	// the last explicit value wins, and only an explicit true publishes
	for _, pg := range doc.PropertyGroups {
		if v := strings.TrimSpace(pg.IsPublishable); v != "" {
			p.Publishable = strings.EqualFold(v, "true")
		}
	}
	return p, nil
}

// Discover loads every .csproj below sourceDir, ordered by relative path.
func Discover(sourceDir string) ([]Project, error) {
	paths, err := util.GlobFiles(sourceDir, "**.csproj")
	if err != nil {
		return nil, err
	}
	projects := make([]Project, 0, len(paths))
	for _, path := range paths {
		p, err := Load(sourceDir, path)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Match keeps the projects whose relative path matches pattern.
func Match(projects []Project, pattern string) ([]Project, error) {
	if pattern == "" {
		pattern = DefaultTestPattern
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid project pattern %q: %w", pattern, err)
	}
	var out []Project
	for _, p := range projects {
		if g.Match(p.RelPath) {
			out = append(out, p)
		}
	}
	return out, nil
}

func Publishable(projects []Project) []Project {
	var out []Project
	for _, p := range projects {
		if p.Publishable {
			out = append(out, p)
		}
	}
	return out
}
