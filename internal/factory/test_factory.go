package factory

import (
	"context"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/mocks"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/embedding"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/ranking"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/memory"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/testutil"
)

// TestSecret is the secret word of every game created by a TestApp
const TestSecret = "planet"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	// Recorder captures every published event
	Recorder *events.Recorder
}

// testVectors places a handful of words at known similarities to TestSecret
var testVectors = map[string][]float64{
	"planet": {1, 0, 0},
	"orbit":  {0.95, 0.3, 0},
	"star":   {0.8, 0.6, 0},
	"moon":   {0.7, 0.7, 0},
	"rocket": {0.5, 0.5, 0.7},
	"banana": {0, 0, 1},
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	recorder := events.NewRecorder(256)

	app, err := newWithDependencies(store, mockClock, mockRandom, dependencyConfig{
		provider:   embedding.NewVectorTable(testVectors),
		ranking:    ranking.DefaultConfig(),
		supervisor: supervisor.DefaultConfig(),
		salt:       "test",
		targets:    []string{TestSecret},
		publishers: []events.Publisher{recorder},
	}, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Recorder:   recorder,
	}
}

// LoadTestDictionary loads a small dictionary for testing
func (t *TestApp) LoadTestDictionary() error {
	words := []string{
		"planet", "planets", "orbit", "orbits", "star", "stars", "moon", "moons",
		"rocket", "rockets", "banana", "bananas", "comet", "galaxy", "space",
		"earth", "sun", "sky", "cloud", "river", "apple", "table", "chair",
	}
	if err := t.DictionaryService.LoadWords(words); err != nil {
		return err
	}
	return t.SecretSelector.Verify(context.Background(), t.DictionaryService)
}
