// Package llm implements the advisor model on top of the Gemini API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/monitoring"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// generator is the slice of the genai client the advisor needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdvisor implements service.AdvisorModel with Gemini structured JSON output.
// GeminiAdvisor 基于 Gemini 的 JSON 输出实现顾问模型。
type GeminiAdvisor struct {
	gen         generator
	model       string
	temperature float32
	timeout     time.Duration
	maxRetries  uint64
	prompts     *promptSet
	metrics     service.Metrics
	tracer      trace.Tracer
	logger      logger.Logger
	newBackOff  func() backoff.BackOff
}

// NewGeminiAdvisor creates an advisor backed by the Gemini API.
func NewGeminiAdvisor(ctx context.Context, cfg *config.LLMConfig, metrics service.Metrics, log logger.Logger) (*GeminiAdvisor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiAdvisor(client.Models, cfg, metrics, log)
}

func newGeminiAdvisor(gen generator, cfg *config.LLMConfig, metrics service.Metrics, log logger.Logger) (*GeminiAdvisor, error) {
	prompts, err := loadPrompts(promptsYAML)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &GeminiAdvisor{
		gen:         gen,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		prompts:     prompts,
		metrics:     metrics,
		tracer:      otel.Tracer("advisorhub/llm"),
		logger:      log.WithComponent("llm"),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}, nil
}

// GenerateFinding diagnoses one red or amber module.
func (a *GeminiAdvisor) GenerateFinding(ctx context.Context, in service.FindingInput) (*models.Finding, service.Usage, error) {
	prompt, err := a.prompts.render(promptFinding, in)
	if err != nil {
		return nil, service.Usage{}, errors.ErrServerError("failed to build prompt").WithCause(err)
	}
	var out struct {
		Title      string   `json:"title"`
		Summary    string   `json:"summary"`
		RootCauses []string `json:"root_causes"`
	}
	usage, err := a.call(ctx, promptFinding, textContents(prompt), &out, func() error {
		if strings.TrimSpace(out.Title) == "" || strings.TrimSpace(out.Summary) == "" {
			return fmt.Errorf("finding needs a title and a summary")
		}
		return nil
	})
	if err != nil {
		return nil, usage, err
	}
	return &models.Finding{
		ModuleKey:  in.Module.Key,
		ModuleName: in.Module.Name,
		RAG:        in.Score.RAG,
		Kind:       models.FindingGap,
		Title:      strings.TrimSpace(out.Title),
		Summary:    strings.TrimSpace(out.Summary),
		RootCauses: trimAll(out.RootCauses),
	}, usage, nil
}

// GenerateRecommendations proposes actions for the report's findings.
func (a *GeminiAdvisor) GenerateRecommendations(ctx context.Context, in service.ReportInput) ([]models.Recommendation, service.Usage, error) {
	prompt, err := a.prompts.render(promptRecommendations, in)
	if err != nil {
		return nil, service.Usage{}, errors.ErrServerError("failed to build prompt").WithCause(err)
	}
	var out struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	usage, err := a.call(ctx, promptRecommendations, textContents(prompt), &out, func() error {
		if len(out.Recommendations) == 0 {
			return fmt.Errorf("no recommendations returned")
		}
		for i, r := range out.Recommendations {
			if strings.TrimSpace(r.Title) == "" {
				return fmt.Errorf("recommendation %d has no title", i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, usage, err
	}
	recs := out.Recommendations
	for i := range recs {
		recs[i].Title = strings.TrimSpace(recs[i].Title)
		recs[i].Description = strings.TrimSpace(recs[i].Description)
		if !models.IsValidPriority(recs[i].Priority) {
			recs[i].Priority = constants.PriorityMedium
		}
	}
	return recs, usage, nil
}

// GenerateRoadmap phases the recommendations over time.
func (a *GeminiAdvisor) GenerateRoadmap(ctx context.Context, in service.ReportInput) ([]models.RoadmapPhase, service.Usage, error) {
	prompt, err := a.prompts.render(promptRoadmap, in)
	if err != nil {
		return nil, service.Usage{}, errors.ErrServerError("failed to build prompt").WithCause(err)
	}
	var out struct {
		Phases []models.RoadmapPhase `json:"phases"`
	}
	usage, err := a.call(ctx, promptRoadmap, textContents(prompt), &out, func() error {
		if len(out.Phases) == 0 {
			return fmt.Errorf("no roadmap phases returned")
		}
		for i, p := range out.Phases {
			if strings.TrimSpace(p.Name) == "" || len(p.Actions) == 0 {
				return fmt.Errorf("roadmap phase %d needs a name and actions", i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, usage, err
	}
	for i := range out.Phases {
		out.Phases[i].Actions = trimAll(out.Phases[i].Actions)
	}
	return out.Phases, usage, nil
}

// GenerateSummary writes the executive summary.
func (a *GeminiAdvisor) GenerateSummary(ctx context.Context, in service.ReportInput) (string, service.Usage, error) {
	prompt, err := a.prompts.render(promptSummary, in)
	if err != nil {
		return "", service.Usage{}, errors.ErrServerError("failed to build prompt").WithCause(err)
	}
	var out struct {
		Summary string `json:"summary"`
	}
	usage, err := a.call(ctx, promptSummary, textContents(prompt), &out, func() error {
		if strings.TrimSpace(out.Summary) == "" {
			return fmt.Errorf("empty summary")
		}
		return nil
	})
	if err != nil {
		return "", usage, err
	}
	return strings.TrimSpace(out.Summary), usage, nil
}

// ExtractWorkbook reads strategy documents passed as inline parts. Office files are sent as extracted text.
func (a *GeminiAdvisor) ExtractWorkbook(ctx context.Context, docs []service.Attachment) (*service.ExtractedWorkbook, service.Usage, error) {
	if len(docs) == 0 {
		return nil, service.Usage{}, errors.ErrInvalidRequest("at least one document is required")
	}
	prompt, err := a.prompts.render(promptWorkbook, docs)
	if err != nil {
		return nil, service.Usage{}, errors.ErrServerError("failed to build prompt").WithCause(err)
	}
	parts := make([]*genai.Part, 0, len(docs)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, d := range docs {
		inline, err := inlineAttachment(d)
		if err != nil {
			return nil, service.Usage{}, err
		}
		parts = append(parts, genai.NewPartFromBytes(inline.Data, inline.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var out service.ExtractedWorkbook
	usage, err := a.call(ctx, promptWorkbook, contents, &out, func() error {
		if len(out.Objectives) == 0 && len(out.Initiatives) == 0 && strings.TrimSpace(out.Vision) == "" {
			return fmt.Errorf("no strategy content extracted")
		}
		return nil
	})
	if err != nil {
		return nil, usage, err
	}
	return &out, usage, nil
}

// call runs one generation with retries and decodes the JSON reply into out.
// Malformed replies are retried like transport errors; check validates the decoded shape.
func (a *GeminiAdvisor) call(ctx context.Context, operation string, contents []*genai.Content, out interface{}, check func() error) (service.Usage, error) {
	ctx, span := a.tracer.Start(ctx, "llm."+operation, trace.WithAttributes(
		attribute.String("llm.model", a.model),
		attribute.String("llm.operation", operation),
	))
	defer span.End()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(a.prompts.system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(a.temperature),
	}

	usage := service.Usage{Model: a.model}
	attempt := 0
	op := func() error {
		attempt++
		callCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := a.gen.GenerateContent(callCtx, a.model, contents, cfg)
		elapsed := time.Since(start)
		if err != nil {
			a.metrics.RecordLLMCall(operation, a.model, false, elapsed, 0, 0)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			a.logger.Warn(ctx, "LLM call failed", logger.String("operation", operation),
				logger.Int("attempt", attempt), logger.Err(err))
			return err
		}

		prompt, completion := tokenCounts(resp)
		usage.PromptTokens += prompt
		usage.CompletionTokens += completion

		if err := decodeJSON(resp.Text(), out); err != nil {
			a.metrics.RecordLLMCall(operation, a.model, false, elapsed, prompt, completion)
			a.logger.Warn(ctx, "LLM reply rejected", logger.String("operation", operation),
				logger.Int("attempt", attempt), logger.Err(err))
			return err
		}
		if err := check(); err != nil {
			a.metrics.RecordLLMCall(operation, a.model, false, elapsed, prompt, completion)
			a.logger.Warn(ctx, "LLM reply rejected", logger.String("operation", operation),
				logger.Int("attempt", attempt), logger.Err(err))
			return err
		}
		a.metrics.RecordLLMCall(operation, a.model, true, elapsed, prompt, completion)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), a.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		monitoring.FailSpan(span, err)
		a.logger.Error(ctx, "LLM operation failed", err, logger.String("operation", operation), logger.Int("attempts", attempt))
		return usage, errors.ErrUpstream("llm", fmt.Sprintf("%s generation failed", operation)).WithCause(err)
	}
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", usage.PromptTokens),
		attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		attribute.Int("llm.attempts", attempt),
	)
	return usage, nil
}

func textContents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

func tokenCounts(resp *genai.GenerateContentResponse) (prompt, completion int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}

// decodeJSON parses a model reply, tolerating a surrounding markdown code fence.
func decodeJSON(text string, out interface{}) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return fmt.Errorf("empty reply")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("reply is not valid JSON: %w", err)
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var _ service.AdvisorModel = (*GeminiAdvisor)(nil)

//Personal.AI order the ending
