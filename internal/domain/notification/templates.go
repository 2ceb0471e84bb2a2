package notification

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

type templateSpec struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Renderer turns an Email into subject and body text.
type Renderer struct {
	templates map[Kind]compiled
}

// NewRenderer loads the embedded catalogue and overlays overridePath when it is set.
func NewRenderer(overridePath string) (*Renderer, error) {
	specs, err := parseCatalogue(defaultTemplates)
	if err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read templates %s: %w", overridePath, err)
		}
		overrides, err := parseCatalogue(raw)
		if err != nil {
			return nil, fmt.Errorf("parse templates %s: %w", overridePath, err)
		}
		for kind, spec := range overrides {
			specs[kind] = spec
		}
	}

	r := &Renderer{templates: make(map[Kind]compiled, len(specs))}
	for kind, spec := range specs {
		subject, err := template.New(string(kind) + ".subject").Option("missingkey=error").Parse(spec.Subject)
		if err != nil {
			return nil, fmt.Errorf("compile %s subject: %w", kind, err)
		}
		body, err := template.New(string(kind) + ".body").Option("missingkey=error").Parse(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("compile %s body: %w", kind, err)
		}
		r.templates[kind] = compiled{subject: subject, body: body}
	}
	return r, nil
}

// Render produces the outgoing email for e.
func (r *Renderer) Render(e Email) (OutgoingEmail, error) {
	tpl, ok := r.templates[e.Kind]
	if !ok {
		return OutgoingEmail{}, fmt.Errorf("no template for %q", e.Kind)
	}
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, e.Data); err != nil {
		return OutgoingEmail{}, fmt.Errorf("render %s subject: %w", e.Kind, err)
	}
	if err := tpl.body.Execute(&body, e.Data); err != nil {
		return OutgoingEmail{}, fmt.Errorf("render %s body: %w", e.Kind, err)
	}
	return OutgoingEmail{To: e.To, Subject: subject.String(), Body: body.String()}, nil
}

func parseCatalogue(raw []byte) (map[Kind]templateSpec, error) {
	var specs map[Kind]templateSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, err
	}
	if specs == nil {
		specs = map[Kind]templateSpec{}
	}
	return specs, nil
}
