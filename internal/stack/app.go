package stack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/expense-tracker/expense-infra-go/internal/template"
)

// ManifestFile is the name of the cloud assembly manifest.
const ManifestFile = "manifest.json"

// App is an ordered collection of stacks.
type App struct {
	stacks []*Stack
	byName map[string]*Stack
}

// NewApp creates an empty app.
func NewApp() *App {
	return &App{byName: make(map[string]*Stack)}
}

// Add registers a stack. Stack names must be unique within the app.
func (a *App) Add(s *Stack) error {
	if _, exists := a.byName[s.name]; exists {
		return fmt.Errorf("%w: stack %s", ErrDuplicateLogicalID, s.name)
	}
	a.stacks = append(a.stacks, s)
	a.byName[s.name] = s
	return nil
}

// Stack returns the stack with the given name.
func (a *App) Stack(name string) (*Stack, bool) {
	s, ok := a.byName[name]
	return s, ok
}

// Stacks returns the stacks in declaration order.
func (a *App) Stacks() []*Stack {
	return append([]*Stack(nil), a.stacks...)
}

// Synth synthesizes every stack. The result is in deployment order: a stack
// always follows the stacks it depends on.
func (a *App) Synth() ([]*Synthesized, error) {
	seen := make(map[string]bool, len(a.stacks))
	results := make([]*Synthesized, 0, len(a.stacks))

	for _, s := range a.stacks {
		for _, dep := range s.dependsOn {
			if _, exists := a.byName[dep]; !exists {
				return nil, fmt.Errorf("stack %s depends on unknown stack %s", s.name, dep)
			}
			if !seen[dep] {
				return nil, fmt.Errorf("stack %s depends on %s, which is declared after it", s.name, dep)
			}
		}

		synth, err := s.Synth()
		if err != nil {
			return nil, err
		}
		results = append(results, synth)
		seen[s.name] = true
	}

	return results, nil
}

// Manifest describes a synthesized cloud assembly.
type Manifest struct {
	Version string          `json:"version"`
	Stacks  []ManifestStack `json:"stacks"`
}

// ManifestStack is one stack entry in the manifest.
type ManifestStack struct {
	Name         string   `json:"name"`
	TemplateFile string   `json:"templateFile"`
	DependsOn    []string `json:"dependsOn,omitempty"`
	Resources    int      `json:"resources"`
}

// WriteAssembly writes one template per stack plus manifest.json into dir.
// format is "json" or "yaml".
func WriteAssembly(dir, format string, stacks []*Synthesized) (*Manifest, error) {
	if format != "json" && format != "yaml" {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	manifest := &Manifest{Version: "1"}
	for _, s := range stacks {
		var data []byte
		var err error
		if format == "yaml" {
			data, err = template.ToYAML(s.Template)
		} else {
			data, err = template.ToJSON(s.Template)
		}
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", s.Name, err)
		}

		file := s.Name + ".template." + format
		if err := os.WriteFile(filepath.Join(dir, file), data, 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", file, err)
		}

		manifest.Stacks = append(manifest.Stacks, ManifestStack{
			Name:         s.Name,
			TemplateFile: file,
			DependsOn:    s.DependsOn,
			Resources:    len(s.Template.Resources),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return manifest, nil
}

// ReadManifest loads manifest.json from a cloud assembly directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}
