package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"skillpath_backend/pkg/logger"
	"skillpath_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// FallbackPolicy decides what happens when the generation backend fails or
// returns unusable output. It is selected once at wiring time; business logic
// never inspects the environment.
type FallbackPolicy string

const (
	// FallbackSynthesize substitutes deterministic placeholder content.
	// Only ever configured outside release mode.
	FallbackSynthesize FallbackPolicy = "synthesize"
	// FallbackPropagate fails the whole request.
	FallbackPropagate FallbackPolicy = "propagate"
)

// GenerationError wraps a failure of one generation stage.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at stage %q: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RoadmapOutline is the top-level generated structure before per-step
// content and quiz enrichment.
type RoadmapOutline struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Difficulty    string        `json:"difficulty"`
	EstimatedTime string        `json:"estimatedTime"`
	Steps         []OutlineStep `json:"steps"`
}

type OutlineStep struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	EstimatedTime string            `json:"estimatedTime"`
	Order         int               `json:"order"`
	Resources     []OutlineResource `json:"resources"`
}

type OutlineResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

type QuizOutline struct {
	Questions []QuizQuestionOutline `json:"questions"`
}

type QuizQuestionOutline struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

type stepContentResponse struct {
	Content string `json:"content"`
}

// GeneratorService turns natural-language instructions into validated
// structures. The backend is not trusted to return only JSON: the first
// balanced object in the response is extracted and parsed, and structurally
// invalid results are rejected. No retries here; failed calls either
// propagate or route to the synthesizer depending on the injected policy.
type GeneratorService struct {
	Backend ChatBackend
	Synth   *SynthesizerService
	Timeout time.Duration

	mu     sync.RWMutex
	policy FallbackPolicy
}

func NewGeneratorService(backend ChatBackend, synth *SynthesizerService, policy FallbackPolicy, timeout time.Duration) *GeneratorService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeneratorService{
		Backend: backend,
		Synth:   synth,
		Timeout: timeout,
		policy:  policy,
	}
}

func (g *GeneratorService) Policy() FallbackPolicy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// SetPolicy swaps the fallback policy at runtime, used by config hot reload.
func (g *GeneratorService) SetPolicy(p FallbackPolicy) {
	g.mu.Lock()
	g.policy = p
	g.mu.Unlock()
}

const generatorSystemPrompt = "You are an expert curriculum designer. " +
	"Always answer with a single JSON object exactly matching the requested shape, with no commentary."

func (g *GeneratorService) GenerateOutline(ctx context.Context, topic, skillLevel, extra string) (*RoadmapOutline, error) {
	prompt := fmt.Sprintf(
		`Create a learning roadmap for the topic %q aimed at a %q level learner.`, topic, skillLevel)
	if extra != "" {
		prompt += fmt.Sprintf(" Additional context from the learner: %q.", extra)
	}
	prompt += `
Respond with a JSON object of this shape:
{
  "title": "...",
  "description": "...",
  "difficulty": "beginner|intermediate|advanced",
  "estimatedTime": "e.g. 4-6 weeks",
  "steps": [
    {
      "title": "...",
      "description": "...",
      "estimatedTime": "e.g. 3-5 hours",
      "order": 1,
      "resources": [
        {"title": "...", "url": "https://...", "type": "article|video|book|tutorial"}
      ]
    }
  ]
}
Produce between 5 and 8 steps ordered from fundamentals to mastery.`

	var outline RoadmapOutline
	err := g.generate(ctx, "outline", prompt, &outline, func() error {
		if len(outline.Steps) == 0 {
			return errors.New("outline has no steps")
		}
		for i, s := range outline.Steps {
			if s.Title == "" {
				return fmt.Errorf("outline step %d has no title", i+1)
			}
		}
		return nil
	})
	if err != nil {
		if g.Policy() == FallbackSynthesize {
			g.recordFallback("outline", err)
			return g.Synth.SynthesizeOutline(topic, skillLevel), nil
		}
		return nil, err
	}
	return &outline, nil
}

func (g *GeneratorService) GenerateStepContent(ctx context.Context, topic, stepTitle, skillLevel string) (string, error) {
	prompt := fmt.Sprintf(
		`Write detailed learning content for the step %q of a %q roadmap, for a %q level learner.
Use markdown with headings, short paragraphs and concrete examples.
Respond with a JSON object of this shape:
{"content": "the full markdown content as one string"}`,
		stepTitle, topic, skillLevel)

	var resp stepContentResponse
	err := g.generate(ctx, "content", prompt, &resp, func() error {
		if resp.Content == "" {
			return errors.New("step content is empty")
		}
		return nil
	})
	if err != nil {
		if g.Policy() == FallbackSynthesize {
			g.recordFallback("content", err)
			return g.Synth.SynthesizeStepContent(topic, stepTitle, skillLevel), nil
		}
		return "", err
	}
	return resp.Content, nil
}

// GenerateQuiz produces the quiz for one step. A response that parses cleanly
// but contains zero questions is returned as an empty outline, not an error:
// the quiz is optional per step and the assembler persists the step without
// one. Unparseable or structurally invalid responses follow the policy.
func (g *GeneratorService) GenerateQuiz(ctx context.Context, stepTitle, stepContent, difficulty string) (*QuizOutline, error) {
	prompt := fmt.Sprintf(
		`Create a multiple-choice quiz for the learning step %q`, stepTitle)
	if difficulty != "" {
		prompt += fmt.Sprintf(" at %q difficulty", difficulty)
	}
	prompt += fmt.Sprintf(`, based on this content:
---
%s
---
Respond with a JSON object of this shape:
{
  "questions": [
    {
      "question": "...",
      "options": ["...", "...", "...", "..."],
      "correctOption": 0,
      "explanation": "..."
    }
  ]
}
Produce 3 to 5 questions. correctOption is the zero-based index into options.`, truncate(stepContent, 4000))

	var quiz QuizOutline
	err := g.generate(ctx, "quiz", prompt, &quiz, func() error {
		return ValidateQuizOutline(&quiz)
	})
	if err != nil {
		if g.Policy() == FallbackSynthesize {
			g.recordFallback("quiz", err)
			return g.Synth.SynthesizeQuiz(stepTitle), nil
		}
		return nil, err
	}
	return &quiz, nil
}

// ValidateQuizOutline checks every question for non-empty text, at least two
// options, and a correct-option index within bounds. Zero questions is valid;
// the quiz is optional per step.
func ValidateQuizOutline(quiz *QuizOutline) error {
	for i, q := range quiz.Questions {
		if q.Question == "" {
			return fmt.Errorf("question %d has no text", i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d has %d options, need at least 2", i+1, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("question %d correct option %d out of range [0,%d)", i+1, q.CorrectOption, len(q.Options))
		}
	}
	return nil
}

// generate runs one backend round trip: prompt, extract the first balanced
// JSON object from the raw text, unmarshal into out, then structurally
// validate. Every failure mode collapses into a GenerationError.
func (g *GeneratorService) generate(ctx context.Context, stage, prompt string, out interface{}, validate func() error) error {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.Backend.Chat(ctx, generatorSystemPrompt, prompt)
	monitoring.GenerationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	if err != nil {
		monitoring.GenerationCounter.WithLabelValues(stage, "failed").Inc()
		return &GenerationError{Stage: stage, Err: err}
	}

	jsonText, err := extractJSON(raw)
	if err != nil {
		monitoring.GenerationCounter.WithLabelValues(stage, "failed").Inc()
		return &GenerationError{Stage: stage, Err: err}
	}

	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		monitoring.GenerationCounter.WithLabelValues(stage, "failed").Inc()
		return &GenerationError{Stage: stage, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	if err := validate(); err != nil {
		monitoring.GenerationCounter.WithLabelValues(stage, "failed").Inc()
		return &GenerationError{Stage: stage, Err: err}
	}

	monitoring.GenerationCounter.WithLabelValues(stage, "ok").Inc()
	return nil
}

func (g *GeneratorService) recordFallback(stage string, err error) {
	monitoring.GenerationCounter.WithLabelValues(stage, "fallback").Inc()
	if logger.Log != nil {
		logger.Log.Warn("generation failed, substituting synthesized content",
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}

// extractJSON returns the first balanced {...} span in raw. The backend is
// not trusted to return only JSON; completions routinely wrap the object in
// prose or markdown fences. Braces inside JSON strings are skipped.
func extractJSON(raw string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return raw[start : i+1], nil
				}
			}
		}
	}

	if start >= 0 {
		return "", errors.New("response contains an unterminated JSON object")
	}
	return "", errors.New("response contains no JSON object")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
