package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderEmbed(t *testing.T) {
	var gotAuth string
	var gotReq embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{URL: srv.URL, APIKey: "secret", Model: "words-small"})
	vec, err := p.Embed(context.Background(), "planet")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "planet", gotReq.Input)
	assert.Equal(t, "words-small", gotReq.Model)
}

func TestHTTPProviderUnknownWord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTPProvider(HTTPConfig{URL: srv.URL}).Embed(context.Background(), "zzyzx")
	assert.ErrorIs(t, err, ErrUnknownWord)
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPProvider(HTTPConfig{URL: srv.URL}).Embed(context.Background(), "planet")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownWord)
	assert.Contains(t, err.Error(), "503")
}

func TestReadVectors(t *testing.T) {
	input := "3 2\nPlanet 1.0 0.0\norbit 0.9 0.1\n\nzebra -1 0.5\n"
	table, err := ReadVectors(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 2, table.Dims())

	vec, err := table.Embed(context.Background(), "planet")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 0.0}, vec)

	_, err = table.Embed(context.Background(), "comet")
	assert.ErrorIs(t, err, ErrUnknownWord)
}

func TestReadVectorsRejectsMixedDimensions(t *testing.T) {
	_, err := ReadVectors(strings.NewReader("a 1 2\nb 1 2 3\n"))
	assert.Error(t, err)
}

func TestReadVectorsRejectsBadNumbers(t *testing.T) {
	_, err := ReadVectors(strings.NewReader("a 1 two\n"))
	assert.Error(t, err)
}
