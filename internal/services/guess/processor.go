// Package guess validates and scores a submitted word.
package guess

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/random"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/dictionary"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/ranking"
)

// MaxWordLength is the longest accepted guess, in characters
const MaxWordLength = 32

// Ranker scores a guess against the secret word
type Ranker interface {
	Rank(ctx context.Context, guess, target, targetLemma string) ranking.Rank
}

// Outcome is a scored guess ready to be appended to the game
type Outcome struct {
	Guess *model.Guess
	Lemma string
}

// Processor turns raw input into a Guess. It never writes to storage.
type Processor struct {
	dictionary dictionary.Validator
	ranker     Ranker
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
}

// New creates a Processor
func New(dict dictionary.Validator, ranker Ranker, clock clock.Clock, random random.Random, logger *slog.Logger) *Processor {
	return &Processor{
		dictionary: dict,
		ranker:     ranker,
		clock:      clock,
		random:     random,
		logger:     logger,
	}
}

// Normalize validates the shape of a raw word and lowercases it
func Normalize(raw string) (string, error) {
	word := strings.TrimSpace(raw)
	if word == "" {
		return "", model.ErrInvalidWord.Withf("word is required")
	}
	if utf8.RuneCountInString(word) > MaxWordLength {
		return "", model.ErrInvalidWord.Withf("word must be at most %d characters", MaxWordLength)
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return "", model.ErrInvalidWord.Withf("word may only contain letters, hyphens and apostrophes")
		}
	}
	return strings.ToLower(word), nil
}

// Submit validates rawWord for playerID's turn in state and scores it.
// Returns a validation error for malformed or unknown words and
// model.ErrDuplicateWord if the word was already guessed in this game.
func (p *Processor) Submit(ctx context.Context, state *model.GameState, playerID model.PlayerID, rawWord string) (*Outcome, error) {
	word, err := Normalize(rawWord)
	if err != nil {
		return nil, err
	}

	if state.HasWord(word) {
		return nil, model.ErrDuplicateWord
	}

	entry, err := p.dictionary.Lookup(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("dictionary lookup: %w", err)
	}
	if !entry.Valid {
		return nil, model.ErrUnknownWord
	}

	game := state.Game
	guess := &model.Guess{
		GameID:     game.ID,
		ID:         model.GuessID(p.random.ID()),
		PlayerID:   playerID,
		Word:       word,
		TurnNumber: game.TurnNumber,
		Timestamp:  p.clock.Now(),
	}

	if isCorrect(word, entry.Lemma, game.SecretWord, game.SecretLemma) {
		guess.IsCorrect = true
		guess.Similarity = 1.0
		guess.Distance = 0
		guess.Source = model.RankSourceExact
	} else {
		r := p.ranker.Rank(ctx, word, game.SecretWord, game.SecretLemma)
		guess.Similarity = r.Similarity
		guess.Distance = max(r.Distance, 1)
		guess.Source = r.Source
	}

	p.logger.Debug("guess scored",
		slog.String("game_id", string(game.ID)),
		slog.String("player_id", string(playerID)),
		slog.Int("distance", guess.Distance),
		slog.String("rank_source", string(guess.Source)),
	)

	return &Outcome{Guess: guess, Lemma: entry.Lemma}, nil
}

func isCorrect(word, lemma, secret, secretLemma string) bool {
	if secretLemma == "" {
		secretLemma = secret
	}
	return word == secret || word == secretLemma || lemma == secret || lemma == secretLemma
}
