package blogflow

import (
	"context"
	"strings"

	"blogforge/src/log"
)

// Phase identifies one kind of generation call.
type Phase string

const (
	PhaseOutline     Phase = "outline"
	PhaseSection     Phase = "section"
	PhaseReformat    Phase = "reformat"
	PhaseSEOMetadata Phase = "seo-metadata"
)

// Phases lists every generation phase.
var Phases = []Phase{PhaseOutline, PhaseSection, PhaseReformat, PhaseSEOMetadata}

// PhaseConfig carries the sampling parameters for one phase. An empty Model lets the
// backend use its default model.
type PhaseConfig struct {
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
}

// DefaultPhaseConfigs returns the built-in parameters per phase. Section prose gets the
// most randomness and the metadata JSON the least.
func DefaultPhaseConfigs() map[Phase]PhaseConfig {
	return map[Phase]PhaseConfig{
		PhaseOutline:     {MaxTokens: 4096, Temperature: 0.8, TopP: 0.9},
		PhaseSection:     {MaxTokens: 4096, Temperature: 0.9, TopP: 0.95},
		PhaseReformat:    {MaxTokens: 3072, Temperature: 0.4, TopP: 0.9},
		PhaseSEOMetadata: {MaxTokens: 512, Temperature: 0.2, TopP: 0.8},
	}
}

// CompletionRequest is a single call to the text generation service.
type CompletionRequest struct {
	Phase  Phase
	System string
	Prompt string
	Config PhaseConfig
}

// Completer is the boundary to the external text generation service.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// Generator runs the per-phase generation calls with their phase parameters.
type Generator struct {
	completer Completer
	phases    map[Phase]PhaseConfig
}

type GeneratorOption func(g *Generator)

// WithPhaseConfig overrides the parameters of one phase.
func WithPhaseConfig(phase Phase, cfg PhaseConfig) GeneratorOption {
	return func(g *Generator) {
		g.phases[phase] = cfg
	}
}

func NewGenerator(completer Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		completer: completer,
		phases:    DefaultPhaseConfigs(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// PhaseConfig returns the parameters used for a phase.
func (g *Generator) PhaseConfig(phase Phase) PhaseConfig {
	return g.phases[phase]
}

// Outline generates the markdown outline for a brief.
func (g *Generator) Outline(ctx context.Context, brief Brief) (string, error) {
	prompt, err := OutlinePrompt(brief)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, PhaseOutline, prompt)
}

// Section generates the prose of one section. outline is the unmarked outline.
func (g *Generator) Section(ctx context.Context, outline string, brief Brief, sectionIndex, totalSections int) (string, error) {
	prompt, err := SectionPrompt(MarkCurrentSection(outline, sectionIndex), brief, sectionIndex, totalSections)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, PhaseSection, prompt)
}

// Reformat restyles a section without changing its meaning.
func (g *Generator) Reformat(ctx context.Context, sectionText string) (string, error) {
	prompt, err := ReformatPrompt(sectionText)
	if err != nil {
		return "", err
	}
	return g.complete(ctx, PhaseReformat, prompt)
}

// SEOMetadata generates and parses the metadata JSON for the full article.
// Field presence is not checked here; see ValidateMetadata.
func (g *Generator) SEOMetadata(ctx context.Context, fullMarkdown string, brief Brief) (*SEOMetadata, error) {
	prompt, err := SEOMetadataPrompt(fullMarkdown, brief)
	if err != nil {
		return nil, err
	}

	text, err := g.complete(ctx, PhaseSEOMetadata, prompt)
	if err != nil {
		return nil, err
	}

	var meta SEOMetadata
	if err := ExtractJSON(text, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (g *Generator) complete(ctx context.Context, phase Phase, prompt Prompt) (string, error) {
	log.Debug("generation request", "phase", phase, "system", prompt.System, "prompt", prompt.User)

	text, err := g.completer.Complete(ctx, CompletionRequest{
		Phase:  phase,
		System: prompt.System,
		Prompt: prompt.User,
		Config: g.phases[phase],
	})
	if err != nil {
		log.Error(err, "generation call failed", "phase", phase)
		return "", &GenerationServiceError{Phase: phase, Err: err}
	}

	log.Debug("generation result", "phase", phase, "length", len(text))
	return strings.TrimSpace(text), nil
}

// ValidateMetadata checks that title, description and slug are present.
func ValidateMetadata(meta *SEOMetadata) error {
	if meta == nil {
		return &InvalidMetadataError{Missing: []string{"title", "description", "slug"}}
	}

	var present, missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		} else {
			present = append(present, name)
		}
	}
	check("title", meta.Title)
	check("description", meta.Description)
	check("slug", meta.Slug)
	if strings.TrimSpace(meta.Excerpt) != "" {
		present = append(present, "excerpt")
	}
	if len(meta.Tags) > 0 {
		present = append(present, "tags")
	}

	if len(missing) > 0 {
		return &InvalidMetadataError{Present: present, Missing: missing}
	}
	return nil
}
