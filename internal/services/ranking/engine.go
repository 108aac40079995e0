// Package ranking turns a guessed word into a distance from the secret word.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sajari/fuzzy"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/embedding"
)

var errNoProvider = errors.New("ranking: no embedding provider configured")

// Rank is the result of ranking a guess against a target
type Rank struct {
	Similarity float64
	Distance   int
	Source     model.RankSource
}

type rankKey struct {
	guess  string
	target string
}

// Engine ranks guesses. It is safe for concurrent use; both caches are
// process-wide and evict the least recently inserted entry when full.
type Engine struct {
	cfg      Config
	provider embedding.Provider
	logger   *slog.Logger

	ranks   *lru.Cache[rankKey, Rank]
	vectors *lru.Cache[string, []float64]
}

// New creates an Engine. A nil provider ranks every guess with the edit-distance fallback.
func New(cfg Config, provider embedding.Provider, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ranks, err := lru.New[rankKey, Rank](cfg.RankCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ranking: rank cache: %w", err)
	}
	vectors, err := lru.New[string, []float64](cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ranking: embedding cache: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
		ranks:    ranks,
		vectors:  vectors,
	}, nil
}

// Rank scores guess against target. It never fails: provider errors degrade
// to an edit-distance similarity, which is not cached.
func (e *Engine) Rank(ctx context.Context, guess, target, targetLemma string) Rank {
	guess = normalize(guess)
	target = normalize(target)
	targetLemma = normalize(targetLemma)

	if guess == target || (targetLemma != "" && guess == targetLemma) {
		return Rank{Similarity: 1.0, Distance: 0, Source: model.RankSourceExact}
	}

	key := rankKey{guess: guess, target: target}
	// Peek keeps insertion order as the eviction order
	if cached, ok := e.ranks.Peek(key); ok {
		cached.Source = model.RankSourceCache
		return cached
	}

	sim, err := e.similarity(ctx, guess, target)
	if err != nil {
		sim = editSimilarity(guess, target)
		e.logger.Warn("ranking with edit-distance fallback",
			slog.String("rank_source", string(model.RankSourceFallback)),
			slog.String("guess", guess),
			slog.String("error", err.Error()),
		)
		return Rank{Similarity: sim, Distance: e.Distance(sim, guess), Source: model.RankSourceFallback}
	}

	r := Rank{Similarity: sim, Distance: e.Distance(sim, guess), Source: model.RankSourceProvider}
	e.ranks.Add(key, r)
	return r
}

// Distance maps a similarity in [0,1] to a distance of at least 1.
// Words in a higher-similarity band always get a smaller distance than words
// in a lower band; within a band the hash of the word breaks ties.
func (e *Engine) Distance(sim float64, word string) int {
	sim = clamp(sim)
	upper := 1.0
	band := e.cfg.Bands[len(e.cfg.Bands)-1]
	for _, b := range e.cfg.Bands {
		if sim >= b.MinSimilarity {
			band = b
			break
		}
		upper = b.MinSimilarity
	}

	frac := 0.0
	if span := upper - band.MinSimilarity; span > 0 {
		frac = (upper - sim) / span
	}
	frac = clamp(frac)

	usable := band.MaxDistance - band.MinDistance - e.cfg.Jitter
	base := band.MinDistance + int(frac*float64(usable-1))
	d := base + int(xxhash.Sum64String(word)%uint64(e.cfg.Jitter))
	return max(d, 1)
}

// CacheLen returns the number of cached ranks and vectors
func (e *Engine) CacheLen() (ranks, vectors int) {
	return e.ranks.Len(), e.vectors.Len()
}

func (e *Engine) similarity(ctx context.Context, guess, target string) (float64, error) {
	if e.provider == nil {
		return 0, errNoProvider
	}
	if e.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ProviderTimeout)
		defer cancel()
	}

	gv, err := e.embed(ctx, guess)
	if err != nil {
		return 0, err
	}
	tv, err := e.embed(ctx, target)
	if err != nil {
		return 0, err
	}
	cos, err := cosine(gv, tv)
	if err != nil {
		return 0, err
	}
	return clamp((cos + 1) / 2), nil
}

func (e *Engine) embed(ctx context.Context, word string) ([]float64, error) {
	if v, ok := e.vectors.Peek(word); ok {
		return v, nil
	}
	v, err := e.provider.Embed(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", word, err)
	}
	e.vectors.Add(word, v)
	return v, nil
}

func cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("ranking: vector dimensions %d and %d differ", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("ranking: zero vector")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// editSimilarity is 1 - levenshtein/maxLen
func editSimilarity(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	dist := fuzzy.Levenshtein(&a, &b)
	return clamp(1 - float64(dist)/float64(longest))
}

func normalize(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
