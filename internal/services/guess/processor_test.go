package guess

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/mocks"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/dictionary"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/ranking"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/memory"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/testutil"
)

type stubRanker struct {
	calls int
	rank  ranking.Rank
}

func (r *stubRanker) Rank(ctx context.Context, guess, target, targetLemma string) ranking.Rank {
	r.calls++
	return r.rank
}

type ProcessorTestSuite struct {
	suite.Suite
	ranker    *stubRanker
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	processor *Processor
	state     *model.GameState
	ctx       context.Context
}

func TestProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) SetupTest() {
	s.ctx = context.Background()
	dict := dictionary.New(memory.New())
	s.Require().NoError(dict.LoadWords([]string{"planet", "rocket", "orbit", "go", "mouse", "well-known", "don't"}))

	s.ranker = &stubRanker{rank: ranking.Rank{Similarity: 0.8, Distance: 321, Source: model.RankSourceProvider}}
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.processor = New(dict, s.ranker, s.clock, s.random, testutil.NopLogger())

	s.state = &model.GameState{
		Game: &model.Game{
			ID:          "g1",
			SecretWord:  "planet",
			SecretLemma: "planet",
			Status:      model.GameStatusActive,
			TurnNumber:  3,
		},
	}
}

func (s *ProcessorTestSuite) TestIncorrectGuessIsRanked() {
	s.random.QueueID("guess-1")

	out, err := s.processor.Submit(s.ctx, s.state, "p1", "  Rocket ")
	s.Require().NoError(err)

	g := out.Guess
	s.Equal(model.GuessID("guess-1"), g.ID)
	s.Equal(model.GameID("g1"), g.GameID)
	s.Equal(model.PlayerID("p1"), g.PlayerID)
	s.Equal("rocket", g.Word)
	s.Equal(321, g.Distance)
	s.Equal(0.8, g.Similarity)
	s.False(g.IsCorrect)
	s.Equal(3, g.TurnNumber)
	s.Equal(model.RankSourceProvider, g.Source)
	s.Equal(s.clock.Now(), g.Timestamp)
	s.Equal(1, s.ranker.calls)
}

func (s *ProcessorTestSuite) TestExactGuessSkipsRanker() {
	out, err := s.processor.Submit(s.ctx, s.state, "p1", "PLANET")
	s.Require().NoError(err)

	s.True(out.Guess.IsCorrect)
	s.Equal(0, out.Guess.Distance)
	s.Equal(1.0, out.Guess.Similarity)
	s.Equal(model.RankSourceExact, out.Guess.Source)
	s.Equal(0, s.ranker.calls)
}

func (s *ProcessorTestSuite) TestInflectedGuessMatchesByLemma() {
	out, err := s.processor.Submit(s.ctx, s.state, "p1", "planets")
	s.Require().NoError(err)

	s.True(out.Guess.IsCorrect)
	s.Equal("planets", out.Guess.Word)
	s.Equal("planet", out.Lemma)
	s.Equal(0, out.Guess.Distance)
}

func (s *ProcessorTestSuite) TestGuessMatchesSecretLemma() {
	s.state.Game.SecretWord = "went"
	s.state.Game.SecretLemma = "go"

	out, err := s.processor.Submit(s.ctx, s.state, "p1", "go")
	s.Require().NoError(err)
	s.True(out.Guess.IsCorrect)
}

func (s *ProcessorTestSuite) TestRankerDistanceIsFlooredForWrongGuess() {
	s.ranker.rank = ranking.Rank{Similarity: 1.0, Distance: 0, Source: model.RankSourceProvider}

	out, err := s.processor.Submit(s.ctx, s.state, "p1", "orbit")
	s.Require().NoError(err)
	s.False(out.Guess.IsCorrect)
	s.Equal(1, out.Guess.Distance)
}

func (s *ProcessorTestSuite) TestDuplicateWord() {
	s.state.Guesses = []*model.Guess{{Word: "rocket", PlayerID: "p2"}}

	_, err := s.processor.Submit(s.ctx, s.state, "p1", "ROCKET")
	s.ErrorIs(err, model.ErrDuplicateWord)
	s.Equal(model.KindConflict, model.KindOf(err))
	s.Equal(0, s.ranker.calls)
}

func (s *ProcessorTestSuite) TestUnknownWord() {
	_, err := s.processor.Submit(s.ctx, s.state, "p1", "zzzzq")
	s.ErrorIs(err, model.ErrUnknownWord)
	s.Equal(model.KindValidation, model.KindOf(err))
	s.Equal("not a recognized word", err.Error())
}

func (s *ProcessorTestSuite) TestMalformedWords() {
	cases := map[string]string{
		"empty":      "   ",
		"digits":     "r0cket",
		"spaces":     "two words",
		"too long":   strings.Repeat("a", MaxWordLength+1),
		"punctuated": "rocket!",
	}
	for name, raw := range cases {
		_, err := s.processor.Submit(s.ctx, s.state, "p1", raw)
		s.ErrorIs(err, model.ErrInvalidWord, name)
		s.Equal(model.KindValidation, model.KindOf(err), name)
	}
	s.Equal(0, s.ranker.calls)
}

func (s *ProcessorTestSuite) TestHyphensAndApostrophesAllowed() {
	_, err := s.processor.Submit(s.ctx, s.state, "p1", "well-known")
	s.NoError(err)
	_, err = s.processor.Submit(s.ctx, s.state, "p1", "Don't")
	s.NoError(err)
}

func (s *ProcessorTestSuite) TestDictionaryNotLoaded() {
	processor := New(dictionary.New(memory.New()), s.ranker, s.clock, s.random, testutil.NopLogger())

	_, err := processor.Submit(s.ctx, s.state, "p1", "rocket")
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
	s.Equal(model.KindInternal, model.KindOf(err))
}

func (s *ProcessorTestSuite) TestFallbackEngine() {
	engine, err := ranking.New(ranking.DefaultConfig(), nil, testutil.NopLogger())
	s.Require().NoError(err)
	processor := New(dictionary.New(memory.New()), engine, s.clock, s.random, testutil.NopLogger())
	s.Require().NoError(processor.dictionary.(*dictionary.Service).LoadWords([]string{"planet", "plane"}))

	out, err := processor.Submit(s.ctx, s.state, "p1", "plane")
	s.Require().NoError(err)
	s.Equal(model.RankSourceFallback, out.Guess.Source)
	s.GreaterOrEqual(out.Guess.Distance, 1)
}
