// Package scriptgen drafts video scripts from a client brief with an
// OpenAI-compatible chat model and feeds them into the pipeline.
package scriptgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// MaxScripts caps how many drafts one generation asks for.
const MaxScripts = 5

// Generator writes count script drafts for a project's brief.
type Generator interface {
	Generate(ctx context.Context, p *models.Project, count int) ([]pipeline.GeneratedScript, error)
}

// OpenAIGenerator calls a chat completion endpoint in JSON mode.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIGenerator(cfg config.AIConfig, logger *zap.Logger) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("openai"),
	}
}

const systemPrompt = `You are a senior UGC (user-generated content) strategist writing short-form video scripts for brands.
Reply with a single JSON object and nothing else, shaped as:
{"scripts":[{"hooks":["..."],"body":"...","filming_instructions":"...","reasoning":"..."}]}
Each script needs two or three alternative opening hooks, a spoken body, practical filming instructions for the creator and a one-sentence reasoning for the approach.`

func (g *OpenAIGenerator) Generate(ctx context.Context, p *models.Project, count int) ([]pipeline.GeneratedScript, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: briefPrompt(p, count)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.8,
	})
	if err != nil {
		g.logger.Error("completion failed",
			zap.String("project_id", p.ID.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	g.logger.Info("completion done",
		zap.String("project_id", p.ID.String()),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return ParseScripts(resp.Choices[0].Message.Content)
}

// ScriptCount is how many drafts a brief asks for.
func ScriptCount(numVideos int) int {
	n := max(numVideos, 1)
	return min(n, MaxScripts)
}

func briefPrompt(p *models.Project, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d distinct script(s) for this brief.\n\n", count)
	fmt.Fprintf(&b, "Campaign: %s\n", p.Title)
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	list := func(label string, values []string) {
		line(label, strings.Join(values, "; "))
	}
	line("Objective", p.CampaignObjective)
	list("Platforms", p.Platforms)
	list("Video styles", p.VideoStyles)
	list("Key messaging", p.KeyMessaging)
	list("Do", p.Dos)
	list("Don't", p.Donts)
	list("Reference videos", p.ReferenceVideoURLs)
	if p.Timeline != nil {
		line("Timeline", *p.Timeline)
	}
	if p.CreatorNotes != nil {
		line("Notes for the creator", *p.CreatorNotes)
	}
	return b.String()
}

type scriptJSON struct {
	Hooks               []string `json:"hooks"`
	Body                string   `json:"body"`
	FilmingInstructions string   `json:"filming_instructions"`
	Reasoning           string   `json:"reasoning"`
}

// ParseScripts decodes the model's reply. Code fences and text around the
// JSON object are tolerated.
func ParseScripts(content string) ([]pipeline.GeneratedScript, error) {
	raw, err := extractObject(content)
	if err != nil {
		return nil, err
	}
	var out struct {
		Scripts []scriptJSON `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode scripts: %w", err)
	}
	if len(out.Scripts) == 0 {
		return nil, errors.New("model returned no scripts")
	}

	scripts := make([]pipeline.GeneratedScript, 0, len(out.Scripts))
	for _, s := range out.Scripts {
		scripts = append(scripts, pipeline.GeneratedScript{
			Hooks:               s.Hooks,
			Body:                s.Body,
			FilmingInstructions: optional(s.FilmingInstructions),
			Reasoning:           optional(s.Reasoning),
		})
	}
	return scripts, nil
}

func extractObject(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end < start {
		return "", errors.New("no JSON object in response")
	}
	raw := content[start : end+1]
	if !json.Valid([]byte(raw)) {
		return "", errors.New("invalid JSON in response")
	}
	return raw, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
