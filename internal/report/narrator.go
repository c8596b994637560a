package report

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stockagent/internal/llm"
	"github.com/seenimoa/stockagent/pkg/models"
)

// Narrator asks a language model for the analyst narrative of a report.
// The provider is created once by the caller and shared.
type Narrator struct {
	provider llm.LLMProvider
	opts     *llm.ChatOptions
	log      logrus.FieldLogger
}

// NewNarrator creates a Narrator. opts may be nil; log may be nil.
func NewNarrator(provider llm.LLMProvider, opts *llm.ChatOptions, log logrus.FieldLogger) *Narrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Narrator{provider: provider, opts: opts, log: log}
}

// Generate sends the prompt for r as a single user message and returns the
// model's text unchanged.
func (n *Narrator) Generate(ctx context.Context, r *models.Report) (string, error) {
	if r == nil {
		return "", fmt.Errorf("report is nil")
	}
	start := time.Now()
	resp, err := n.provider.Chat(ctx, []llm.Message{llm.UserMessage(BuildPrompt(r))}, n.opts)
	if err != nil {
		return "", fmt.Errorf("generating analysis for %s: %w", r.Ticker, err)
	}
	n.log.WithFields(logrus.Fields{
		"ticker":   r.Ticker,
		"provider": resp.Provider,
		"model":    resp.Model,
		"tokens":   resp.Usage.TotalTokens,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debug("narrative generated")
	if resp.FinishReason == llm.FinishLength {
		n.log.WithField("ticker", r.Ticker).Warn("narrative truncated at max tokens")
	}
	return resp.Content, nil
}

// Narrate is Generate folded into a Narrative for rendering.
func (n *Narrator) Narrate(ctx context.Context, r *models.Report) Narrative {
	text, err := n.Generate(ctx, r)
	if err == nil && text == "" {
		err = llm.ErrEmptyResponse
	}
	return Narrative{Text: text, Err: err}
}
