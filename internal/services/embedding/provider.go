// Package embedding supplies word vectors to the ranking engine.
package embedding

import (
	"context"
	"errors"
)

// ErrUnknownWord is returned when a provider has no vector for a word
var ErrUnknownWord = errors.New("embedding: unknown word")

// Provider returns a semantic embedding vector for a normalized word
type Provider interface {
	Embed(ctx context.Context, word string) ([]float64, error)
}
