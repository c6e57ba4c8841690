package pipeline

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"time"
	"unicode"

	"draftbot/internal/config"
	"draftbot/internal/drafts"
	"draftbot/internal/fileutil"
	"draftbot/internal/logging"
	"draftbot/internal/services"
	"draftbot/internal/services/llm"
	"draftbot/internal/textutil"
)

// Mode selects the framing of a topic request.
type Mode string

const (
	ModeResearch Mode = "research"
	ModeReport   Mode = "report"
)

// topicSimilarity is the cosine threshold above which two topics count as
// the same idea.
const topicSimilarity = 0.8

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type stage struct {
	template    string
	system      string
	temperature float64
	maxTokens   int
}

var (
	stageTopics = stage{"topics.tmpl", "You are an expert HCM content strategist.", 0.7, 1000}
	stageBrief  = stage{"brief.tmpl", "You are a content strategist for HCM blogs.", 0.6, 1500}
	stageDraft  = stage{"draft.tmpl", "You are a professional blog writer for HCM topics.", 0.8, 2000}
	stageEdit   = stage{"edit.tmpl", "You are an experienced editor for HCM blog content.", 0.5, 2000}
)

// Completer issues one chat completion.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Composed describes a draft written by Compose.
type Composed struct {
	Topic string
	Title string
	Path  string
	Chars int
}

// Generator runs the content stages against a Completer.
type Generator struct {
	llm       Completer
	draftsDir string
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for collision suffixes.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator constructs a generator writing drafts into the configured
// drafts folder.
func NewGenerator(cfg *config.Config, client Completer, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		llm:       client,
		draftsDir: cfg.Paths.DraftsDir,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewClient builds the LLM client from configuration.
func NewClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}

// Topics asks for n topics and returns the cleaned, de-duplicated titles.
// Entries similar to avoid are dropped; when none remain the result is an
// ErrValidation error.
func (g *Generator) Topics(ctx context.Context, n int, mode Mode, avoid []string) ([]string, error) {
	if n <= 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "topics", "topic count must be positive", nil)
	}
	reply, err := g.run(ctx, stageTopics, map[string]any{
		"Count": n,
		"Mode":  string(mode),
		"Avoid": avoid,
	})
	if err != nil {
		return nil, err
	}
	topics := ParseTopics(reply)
	if len(topics) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "topics", "reply contained no numbered topics", nil)
	}
	kept := textutil.DedupeSimilar(topics, avoid, topicSimilarity)
	if dropped := len(topics) - len(kept); dropped > 0 {
		g.logger.Debug("similar topics dropped",
			logging.Args(logging.DecisionAttrs("topic_dedupe", "dropped", fmt.Sprintf("%d similar", dropped))...)...,
		)
	}
	if len(kept) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "topics",
			fmt.Sprintf("all %d topics repeat recent ones", len(topics)), nil)
	}
	if len(kept) > n {
		kept = kept[:n]
	}
	return kept, nil
}

// Brief outlines a post for topic.
func (g *Generator) Brief(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "brief", "topic required", nil)
	}
	return g.run(ctx, stageBrief, map[string]any{"Topic": strings.TrimSpace(topic)})
}

// Draft writes a Markdown post from brief.
func (g *Generator) Draft(ctx context.Context, brief string) (string, error) {
	if strings.TrimSpace(brief) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "draft", "brief required", nil)
	}
	return g.run(ctx, stageDraft, map[string]any{"Brief": strings.TrimSpace(brief)})
}

// Edit polishes draft.
func (g *Generator) Edit(ctx context.Context, draft string) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return "", services.Wrap(services.ErrValidation, "pipeline", "edit", "draft required", nil)
	}
	return g.run(ctx, stageEdit, map[string]any{"Draft": strings.TrimSpace(draft)})
}

// Compose runs brief, draft, and edit for topic and writes the result to
// <drafts_dir>/<slug>-draft.md.
func (g *Generator) Compose(ctx context.Context, topic string) (Composed, error) {
	logger := logging.WithContext(ctx, g.logger)
	started := time.Now()

	brief, err := g.Brief(ctx, topic)
	if err != nil {
		return Composed{}, err
	}
	body, err := g.Draft(ctx, brief)
	if err != nil {
		return Composed{}, err
	}
	edited, err := g.Edit(ctx, body)
	if err != nil {
		return Composed{}, err
	}

	text := ensureTitle(edited, topic)
	title := drafts.New("draft.md", text, g.now()).Title()
	name := textutil.Slug(title) + "-draft.md"
	if err := os.MkdirAll(g.draftsDir, 0o755); err != nil {
		return Composed{}, services.Wrap(services.ErrFileOperation, "pipeline", "compose", "create drafts folder", err)
	}
	path := fileutil.UniquePath(g.draftsDir, name, g.now())
	if err := fileutil.WriteAtomic(path, []byte(text)); err != nil {
		return Composed{}, &services.FileOperationError{Op: "write", Path: path, Err: err}
	}

	logger.Info("draft composed",
		logging.Event("draft_composed"),
		logging.DraftPath(path),
		logging.String("topic", topic),
		logging.Int("chars", len([]rune(text))),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Composed{Topic: topic, Title: title, Path: path, Chars: len([]rune(text))}, nil
}

func (g *Generator) run(ctx context.Context, s stage, data map[string]any) (string, error) {
	if g.llm == nil {
		return "", services.Wrap(services.ErrConfiguration, "pipeline", s.template, "llm client not configured", nil)
	}
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, s.template, data); err != nil {
		return "", fmt.Errorf("render %s: %w", s.template, err)
	}
	reply, err := g.llm.Complete(ctx, llm.Request{
		System:      s.system,
		User:        buf.String(),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s stage: %w", strings.TrimSuffix(s.template, ".tmpl"), err)
	}
	return reply, nil
}

// ParseTopics keeps reply lines that start with a digit and strips their
// list numbering.
func ParseTopics(reply string) []string {
	var topics []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !unicode.IsDigit(rune(line[0])) {
			continue
		}
		topic := strings.TrimLeftFunc(line, unicode.IsDigit)
		topic = strings.TrimLeft(topic, ".):- \t")
		topic = strings.Trim(topic, "*\"")
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}

// ensureTitle prefixes "# topic" when the post lacks a Markdown title line.
func ensureTitle(text, topic string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "# ") {
		return text + "\n"
	}
	title := topic
	if idx := strings.Index(title, " - "); idx > 0 {
		title = title[:idx]
	}
	return "# " + strings.TrimSpace(title) + "\n\n" + text + "\n"
}

