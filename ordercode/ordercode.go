// Package ordercode generates the short codes diners use to look up their
// order.
package ordercode

import (
	"context"
	"math/rand/v2"

	"restaurant-queue/apperr"
)

const (
	// Alphabet is uppercase ASCII letters followed by digits.
	Alphabet           = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	Length             = 4
	DefaultMaxAttempts = 10000
)

// TakenFunc reports whether a candidate code is already used. Stores pass a
// closure bound to their creation transaction.
type TakenFunc func(ctx context.Context, code string) (bool, error)

// Generator draws codes uniformly at random from its alphabet.
type Generator struct {
	alphabet    string
	length      int
	maxAttempts int
	intN        func(n int) int
}

// Option customises a Generator.
type Option func(*Generator)

// WithAlphabet replaces the symbol set. Mostly useful for tests that need a
// tiny code space.
func WithAlphabet(alphabet string, length int) Option {
	return func(g *Generator) {
		g.alphabet = alphabet
		g.length = length
	}
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRand swaps the random source. intN must return a value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		alphabet:    Alphabet,
		length:      Length,
		maxAttempts: DefaultMaxAttempts,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Candidate returns one random code without checking for collisions.
func (g *Generator) Candidate() string {
	b := make([]byte, g.length)
	for i := range b {
		b[i] = g.alphabet[g.intN(len(g.alphabet))]
	}
	return string(b)
}

// Generate returns a code for which taken reports false. It gives up with a
// CodeSpaceExhausted error after the configured number of attempts.
func (g *Generator) Generate(ctx context.Context, taken TakenFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.Candidate()
		used, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !used {
			return code, nil
		}
	}
	return "", apperr.CodeSpaceExhausted(g.maxAttempts)
}

// Valid reports whether code has the default length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
