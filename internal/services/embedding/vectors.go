package embedding

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VectorTable serves embeddings from an in-memory table, typically loaded
// from a GloVe/word2vec style text file ("word v1 v2 ... vn" per line).
type VectorTable struct {
	vectors map[string][]float64
	dims    int
}

// NewVectorTable wraps an existing table; words are lowercased
func NewVectorTable(vectors map[string][]float64) *VectorTable {
	t := &VectorTable{vectors: make(map[string][]float64, len(vectors))}
	for w, v := range vectors {
		t.vectors[strings.ToLower(w)] = v
		t.dims = len(v)
	}
	return t
}

// LoadVectorFile reads a text vector file
func LoadVectorFile(path string) (*VectorTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadVectors(f)
}

// ReadVectors parses vectors from r. A leading word2vec header line ("count dims") is skipped.
// Every vector must have the same dimension.
func ReadVectors(r io.Reader) (*VectorTable, error) {
	t := &VectorTable{vectors: make(map[string][]float64)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if line == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected a word followed by components", line)
		}

		vec := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vec[i] = v
		}
		if t.dims == 0 {
			t.dims = len(vec)
		} else if len(vec) != t.dims {
			return nil, fmt.Errorf("line %d: got %d dimensions, want %d", line, len(vec), t.dims)
		}
		t.vectors[strings.ToLower(fields[0])] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Embed returns the stored vector for word
func (t *VectorTable) Embed(ctx context.Context, word string) ([]float64, error) {
	v, ok := t.vectors[word]
	if !ok {
		return nil, ErrUnknownWord
	}
	return v, nil
}

// Len returns the number of words in the table
func (t *VectorTable) Len() int {
	return len(t.vectors)
}

// Dims returns the vector dimension
func (t *VectorTable) Dims() int {
	return t.dims
}

var _ Provider = (*VectorTable)(nil)
