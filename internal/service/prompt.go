package service

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// Template names.
const (
	TemplateSpecialist = "specialist"
	TemplateDiscussion = "discussion"
	TemplateAdvisory   = "advisory"
)

// PromptRenderer renders prompts from templates.
type PromptRenderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewPromptRenderer creates a new prompt renderer.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{
		templates: make(map[string]*template.Template),
	}

	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return r, nil
}

// loadTemplates loads all templates from the embedded filesystem.
func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := strings.TrimPrefix(path, "prompts/")
		name = strings.TrimSuffix(name, ".md.tmpl")

		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"trimSpace": strings.TrimSpace,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
	}
}

// SpecialistParams contains parameters for the first-round prompt.
type SpecialistParams struct {
	Role     core.RoleProfile
	Document string
}

// RenderSpecialist renders the first-round prompt of a specialist.
func (r *PromptRenderer) RenderSpecialist(params SpecialistParams) (string, error) {
	return r.render(TemplateSpecialist, params)
}

// DiscussionParams contains parameters for a discussion-round prompt.
type DiscussionParams struct {
	Role              core.RoleProfile
	Document          string
	PriorRound        int
	DisagreementScore float64
	Own               *core.PriorVerdict
	Others            []core.PriorVerdict
}

// NewDiscussionParams builds discussion parameters for role from prior.
func NewDiscussionParams(role core.RoleProfile, document string, prior *core.PriorContext) DiscussionParams {
	p := DiscussionParams{
		Role:              role,
		Document:          document,
		PriorRound:        prior.RoundIndex,
		DisagreementScore: prior.DisagreementScore,
		Others:            prior.Others(role.Name),
	}
	if own, ok := prior.Own(role.Name); ok && !own.Degraded {
		p.Own = &own
	}
	return p
}

// RenderDiscussion renders a discussion-round prompt.
func (r *PromptRenderer) RenderDiscussion(params DiscussionParams) (string, error) {
	return r.render(TemplateDiscussion, params)
}

// AdvisoryParams contains parameters for the advisory prompt.
type AdvisoryParams struct {
	Role             core.RoleProfile
	Document         string
	Sentiment        core.Sentiment
	Confidence       float64
	AgreementLevel   core.AgreementLevel
	ConsensusReached bool
	Rounds           int
	Verdicts         []core.PriorVerdict
}

// RenderAdvisory renders the advisory prompt.
func (r *PromptRenderer) RenderAdvisory(params AdvisoryParams) (string, error) {
	return r.render(TemplateAdvisory, params)
}

// render executes a template with the given data.
func (r *PromptRenderer) render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return buf.String(), nil
}

// ListTemplates returns available template names, sorted.
func (r *PromptRenderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
