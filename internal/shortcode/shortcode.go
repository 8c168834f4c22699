// Package shortcode produces random fixed-length codes over a configured alphabet.
package shortcode

import (
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrInvalidParams = errors.New("invalid generator params")

type Generator struct {
	alphabet string
	length   int
}

func New(alphabet string, length int) (*Generator, error) {
	const op = "shortcode.New"

	if alphabet == "" || length <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidParams)
	}

	return &Generator{
		alphabet: alphabet,
		length:   length,
	}, nil
}

// Generate returns a single code. Symbols are drawn from crypto/rand without modulo bias.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(g.alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	return code, nil
}

// Batch returns n independently generated candidates.
func (g *Generator) Batch(n int) ([]string, error) {
	const op = "shortcode.Generator.Batch"

	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		code, err := g.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// Valid reports whether code has the generator's length and only uses its alphabet.
func (g *Generator) Valid(code string) bool {
	if len(code) != g.length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(g.alphabet, r) {
			return false
		}
	}
	return true
}

func (g *Generator) Length() int {
	return g.length
}
