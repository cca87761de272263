package llm

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrEmptyCompletion = errors.New("llm: empty completion")

var tracer = otel.Tracer("nyan-bot/pkg/llm")

// Completer answers single queries with a provider. It satisfies sequencer.Completer.
type Completer struct {
	provider LLMProvider
	name     string
	opts     []Option
}

func NewCompleter(provider LLMProvider, name string, opts ...Option) *Completer {
	return &Completer{provider: provider, name: name, opts: opts}
}

func (c *Completer) Complete(ctx context.Context, query string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.name),
		attribute.Int("llm.query_length", len([]rune(query))),
	)

	text, err := c.provider.Generate(ctx, query, c.opts...)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ErrEmptyCompletion
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("llm.answer_length", len([]rune(text))))
	return text, nil
}
