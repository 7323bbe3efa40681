package service

import (
	"context"
	"fmt"
	"strings"
)

const (
	noContextFound = "No relevant context found."

	answerSystemPrompt = "You are a customer care representative for small businesses. " +
		"Answer questions based on the provided context. " +
		"If you don't know the answer, respond politely that you don't have the information."

	answerUserPrompt = "Question: %s\n\nContext:\n%s\n\nProvide a clear answer based only on the context above."
)

// Completer runs one system + user turn against a chat model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnswerSynthesizer answers a question from retrieved chunks only.
type AnswerSynthesizer struct {
	completer Completer
}

func NewAnswerSynthesizer(completer Completer) *AnswerSynthesizer {
	return &AnswerSynthesizer{completer: completer}
}

func (a *AnswerSynthesizer) Synthesize(ctx context.Context, query string, chunks []string) (string, error) {
	reply, err := a.completer.Complete(ctx, answerSystemPrompt, fmt.Sprintf(answerUserPrompt, query, buildContext(chunks)))
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func buildContext(chunks []string) string {
	if len(chunks) == 0 {
		return noContextFound
	}
	return strings.Join(chunks, "\n\n")
}
