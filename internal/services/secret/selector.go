// Package secret picks the word players are trying to find.
package secret

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/dictionary"
)

//go:embed targets.txt
var defaultTargets string

// Lemmatizer reduces a word to its base form
type Lemmatizer interface {
	Lemma(word string) string
}

// Selector picks a secret word per UTC day. The same salt and date always give the same word.
type Selector struct {
	words      []string
	salt       []byte
	lemmatizer Lemmatizer
	clock      clock.Clock
}

// New creates a Selector over the given target words
func New(words []string, salt string, lemmatizer Lemmatizer, clock clock.Clock) (*Selector, error) {
	if len(words) == 0 {
		return nil, errors.New("secret: no target words")
	}
	normalized := make([]string, len(words))
	for i, w := range words {
		normalized[i] = strings.ToLower(strings.TrimSpace(w))
	}
	return &Selector{
		words:      normalized,
		salt:       []byte(salt),
		lemmatizer: lemmatizer,
		clock:      clock,
	}, nil
}

// DefaultWords returns the built-in target list
func DefaultWords() []string {
	words, _ := readWords(strings.NewReader(defaultTargets))
	return words
}

// LoadWords reads a target list from a file (one word per line, # comments)
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readWords(f)
}

// Today returns the secret word for the current UTC day and its lemma
func (s *Selector) Today() (word, lemma string) {
	return s.ForDate(s.clock.Now())
}

// ForDate returns the secret word for the UTC day containing t
func (s *Selector) ForDate(t time.Time) (word, lemma string) {
	word = s.words[s.Index(t)]
	lemma = word
	if s.lemmatizer != nil {
		lemma = s.lemmatizer.Lemma(word)
	}
	return word, lemma
}

// Index returns HMAC-SHA256(salt, YYYY-MM-DD) mod len(words)
func (s *Selector) Index(t time.Time) int {
	mac := hmac.New(sha256.New, s.salt)
	mac.Write([]byte(t.UTC().Format(time.DateOnly)))
	sum := mac.Sum(nil)
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(len(s.words)))
}

// Len returns the number of target words
func (s *Selector) Len() int {
	return len(s.words)
}

// Verify checks that every target word is accepted by the dictionary
func (s *Selector) Verify(ctx context.Context, v dictionary.Validator) error {
	var missing []string
	for _, w := range s.words {
		entry, err := v.Lookup(ctx, w)
		if err != nil {
			return err
		}
		if !entry.Valid {
			missing = append(missing, w)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("secret: target words not in dictionary: %s", strings.Join(missing, ", "))
	}
	return nil
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
