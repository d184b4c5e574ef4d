package llm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	promptFinding         = "finding"
	promptRecommendations = "recommendations"
	promptRoadmap         = "roadmap"
	promptSummary         = "summary"
	promptWorkbook        = "workbook"
)

// promptSet holds the system instruction and the parsed user prompt templates.
type promptSet struct {
	system    string
	templates map[string]*template.Template
}

var promptFuncs = template.FuncMap{
	"json": func(v interface{}) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return string(b), err
	},
	"score": func(v *float64) string {
		if v == nil {
			return "unscored"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"answer": func(answers map[string]int, key string) string {
		if v, ok := answers[key]; ok {
			return fmt.Sprintf("%d", v)
		}
		return "not answered"
	},
}

func loadPrompts(data []byte) (*promptSet, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	set := &promptSet{system: strings.TrimSpace(raw["system"]), templates: make(map[string]*template.Template)}
	if set.system == "" {
		return nil, fmt.Errorf("prompts: missing system instruction")
	}
	for _, name := range []string{promptFinding, promptRecommendations, promptRoadmap, promptSummary, promptWorkbook} {
		body, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("prompts: missing %q", name)
		}
		tmpl, err := template.New(name).Funcs(promptFuncs).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompts: parse %q: %w", name, err)
		}
		set.templates[name] = tmpl
	}
	return set, nil
}

func (p *promptSet) render(name string, data interface{}) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}

//Personal.AI order the ending
