// Package groundedness asks the chat model whether an answer is supported
// by the context it was generated from.
package groundedness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"kbase/internal/llm"
)

// DefaultMaxContext is the number of context characters sent to the checker.
const DefaultMaxContext = 4000

const truncationMarker = "\n...(truncated)"

const systemPrompt = "You are a groundedness checker. " +
	"Given retrieved documents (context) and an AI-generated answer, " +
	"determine if the answer is directly supported by the documents. " +
	"Respond with exactly one word: grounded, notGrounded, or notSure."

// Verdict is the checker's classification of an answer.
type Verdict int

const (
	NotSure Verdict = iota
	Grounded
	NotGrounded
)

func (v Verdict) String() string {
	switch v {
	case Grounded:
		return "grounded"
	case NotGrounded:
		return "notGrounded"
	default:
		return "notSure"
	}
}

// Result is either a verdict or, when Err is set, a check that could not
// be performed. An unavailable check never invalidates the answer itself.
type Result struct {
	Verdict Verdict
	Err     error
}

// Available reports whether the check produced a verdict.
func (r Result) Available() bool { return r.Err == nil }

// Badge renders the result for display: the verdict, or "unknown".
func (r Result) Badge() string {
	if r.Err != nil {
		return "unknown"
	}
	return r.Verdict.String()
}

// Checker classifies answers with a chat model.
type Checker struct {
	chat       llm.Chat
	maxContext int
	logger     *slog.Logger
}

// New creates a Checker. A non-positive maxContext selects DefaultMaxContext.
func New(chat llm.Chat, maxContext int, logger *slog.Logger) *Checker {
	if maxContext <= 0 {
		maxContext = DefaultMaxContext
	}
	return &Checker{chat: chat, maxContext: maxContext, logger: logger}
}

// Check classifies answer against contextText. Remote failures are
// reported through Result.Err rather than returned.
func (c *Checker) Check(ctx context.Context, contextText, answer string) Result {
	contextText = Truncate(contextText, c.maxContext)

	reply, err := c.chat.Complete(ctx, []llm.Message{
		llm.System(systemPrompt),
		llm.User(fmt.Sprintf(
			"[Context - Retrieved Documents]\n%s\n\n[Answer - AI Response]\n%s\n\n"+
				"Is this answer grounded in the retrieved documents? "+
				"Respond with: grounded, notGrounded, or notSure",
			contextText, answer,
		)),
	}, nil)
	if err != nil {
		c.logger.Warn("groundedness check unavailable", "error", err)
		return Result{Err: fmt.Errorf("groundedness check: %w", err)}
	}

	v := ParseVerdict(reply.Content)
	c.logger.Debug("groundedness checked", "verdict", v.String())
	return Result{Verdict: v}
}

// ParseVerdict maps a raw model reply to a Verdict. "notgrounded" is
// matched before "grounded" since the latter is a substring of the former.
func ParseVerdict(reply string) Verdict {
	r := strings.ToLower(strings.TrimSpace(reply))
	switch {
	case strings.Contains(r, "notgrounded"):
		return NotGrounded
	case strings.Contains(r, "grounded"):
		return Grounded
	default:
		return NotSure
	}
}

// Truncate cuts s to max characters and appends a marker when it was cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + truncationMarker
}
