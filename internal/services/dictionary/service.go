package dictionary

import (
	"bufio"
	"context"
	_ "embed"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

//go:embed words.txt
var defaultWords string

// Entry is the result of a dictionary lookup
type Entry struct {
	Word  string // normalized input
	Lemma string // base form; equals Word when no inflection was recognised
	Valid bool
}

// Validator checks words and reduces them to a base form
type Validator interface {
	Lookup(ctx context.Context, word string) (Entry, error)
}

// Service provides word validation and lemmatisation backed by a word list
type Service struct {
	storage storage.Storage

	mu     sync.RWMutex
	words  map[string]struct{}
	loaded bool
}

// New creates a new dictionary Service
func New(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
		words:   make(map[string]struct{}),
	}
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadFromFile loads dictionary words from a file (one word per line) and persists them
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	words, err := readWords(file)
	if err != nil {
		return err
	}

	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadDefault loads the built-in word list and persists it
func (s *Service) LoadDefault(ctx context.Context) error {
	words, err := readWords(strings.NewReader(defaultWords))
	if err != nil {
		return err
	}
	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	return s.loadWords(words)
}

func (s *Service) loadWords(words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.words = make(map[string]struct{}, len(words))
	for _, word := range words {
		// Store lowercase for case-insensitive matching
		s.words[strings.ToLower(strings.TrimSpace(word))] = struct{}{}
	}
	s.loaded = true
	return nil
}

// Lookup validates a word and returns its lemma.
// A word is valid if it or its recognised base form is in the list.
func (s *Service) Lookup(ctx context.Context, word string) (Entry, error) {
	w := strings.ToLower(strings.TrimSpace(word))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return Entry{}, model.ErrDictionaryNotLoaded
	}

	entry := Entry{Word: w, Lemma: s.lemmaLocked(w)}
	if len([]rune(w)) < 2 {
		return entry, nil
	}
	_, known := s.words[w]
	_, knownLemma := s.words[entry.Lemma]
	entry.Valid = known || knownLemma
	return entry, nil
}

// Lemma returns the base form of a word, or the word itself
func (s *Service) Lemma(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lemmaLocked(w)
}

func (s *Service) lemmaLocked(w string) string {
	for _, candidate := range lemmaCandidates(w) {
		if candidate == w {
			continue
		}
		if _, ok := s.words[candidate]; ok {
			return candidate
		}
	}
	return w
}

// IsValidWord checks if a word exists in the dictionary directly or via its lemma
func (s *Service) IsValidWord(word string) bool {
	entry, err := s.Lookup(context.Background(), word)
	return err == nil && entry.Valid
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" && !strings.HasPrefix(word, "#") {
			words = append(words, word)
		}
	}
	return words, scanner.Err()
}

// Interface check
type ServiceInterface interface {
	Validator
	Lemma(word string) string
	IsValidWord(word string) bool
	IsLoaded() bool
	WordCount() int
	LoadFromStorage(ctx context.Context) error
	LoadFromFile(ctx context.Context, path string) error
	LoadDefault(ctx context.Context) error
	LoadWords(words []string) error
}

var _ ServiceInterface = (*Service)(nil)
