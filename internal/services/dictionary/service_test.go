package dictionary

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestIsNotLoadedByDefault() {
	s.False(s.service.IsLoaded())
	s.Equal(0, s.service.WordCount())

	_, err := s.service.Lookup(s.ctx, "apple")
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *ServiceSuite) TestLoadWords() {
	err := s.service.LoadWords([]string{"apple", "banana", "cherry"})
	s.Require().NoError(err)

	s.True(s.service.IsLoaded())
	s.Equal(3, s.service.WordCount())
}

func (s *ServiceSuite) TestLookupKnownWord() {
	_ = s.service.LoadWords([]string{"apple", "banana"})

	entry, err := s.service.Lookup(s.ctx, "  Apple ")
	s.Require().NoError(err)
	s.True(entry.Valid)
	s.Equal("apple", entry.Word)
	s.Equal("apple", entry.Lemma)
}

func (s *ServiceSuite) TestLookupUnknownWord() {
	_ = s.service.LoadWords([]string{"apple"})

	entry, err := s.service.Lookup(s.ctx, "grape")
	s.Require().NoError(err)
	s.False(entry.Valid)
	s.Equal("grape", entry.Lemma)
}

func (s *ServiceSuite) TestLookupTooShort() {
	_ = s.service.LoadWords([]string{"a", "i"})

	entry, err := s.service.Lookup(s.ctx, "a")
	s.Require().NoError(err)
	s.False(entry.Valid)
}

func (s *ServiceSuite) TestInflectionsResolveToLemma() {
	_ = s.service.LoadWords([]string{"run", "city", "box", "walk", "make", "stop", "love", "shoe", "mouse", "big", "go", "quick"})

	cases := map[string]string{
		"runs":    "run",
		"running": "run",
		"ran":     "run",
		"cities":  "city",
		"boxes":   "box",
		"walked":  "walk",
		"walking": "walk",
		"making":  "make",
		"stopped": "stop",
		"loved":   "love",
		"shoes":   "shoe",
		"mice":    "mouse",
		"bigger":  "big",
		"biggest": "big",
		"went":    "go",
		"quickly": "quick",
	}
	for word, lemma := range cases {
		entry, err := s.service.Lookup(s.ctx, word)
		s.Require().NoError(err)
		s.True(entry.Valid, word)
		s.Equal(lemma, entry.Lemma, word)
	}
}

func (s *ServiceSuite) TestLemmaLeavesUninflectedWords() {
	_ = s.service.LoadWords([]string{"water", "glass", "planet"})

	s.Equal("water", s.service.Lemma("water"))
	s.Equal("glass", s.service.Lemma("glass"))
	s.Equal("planet", s.service.Lemma("Planet"))
	s.Equal("unknowns", s.service.Lemma("unknowns"))
}

func (s *ServiceSuite) TestLoadFromFilePersists() {
	path := filepath.Join(s.T().TempDir(), "words.txt")
	s.Require().NoError(os.WriteFile(path, []byte("# comment\napple\n\nbanana\n"), 0o644))

	s.Require().NoError(s.service.LoadFromFile(s.ctx, path))
	s.Equal(2, s.service.WordCount())

	fresh := New(s.storage)
	s.Require().NoError(fresh.LoadFromStorage(s.ctx))
	s.True(fresh.IsValidWord("banana"))
}

func (s *ServiceSuite) TestLoadFromStorageNotLoaded() {
	err := s.service.LoadFromStorage(s.ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *ServiceSuite) TestLoadDefault() {
	s.Require().NoError(s.service.LoadDefault(s.ctx))
	s.Greater(s.service.WordCount(), 300)
	s.True(s.service.IsValidWord("planet"))
	s.True(s.service.IsValidWord("planets"))
	s.False(s.service.IsValidWord("qwxz"))
}
