// Package generator produces random passwords from a character-class policy.
package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// password character classes
const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// length bounds
const (
	MinLength     = 8
	MaxLength     = 128
	DefaultLength = 12
)

var (
	// ErrNoCharacterClass is returned when a policy enables no character class.
	ErrNoCharacterClass = errors.New("no character class selected")

	// ErrLength is returned when a policy length is outside [MinLength, MaxLength].
	ErrLength = fmt.Errorf("length must be between %d and %d", MinLength, MaxLength)
)

// Policy selects the length and character classes of a generated password.
type Policy struct {
	Length  int  `json:"length"`
	Upper   bool `json:"upper"`
	Lower   bool `json:"lower"`
	Digits  bool `json:"digits"`
	Symbols bool `json:"symbols"`
}

// DefaultPolicy returns a 12 character policy with every class enabled.
func DefaultPolicy() Policy {
	return Policy{
		Length:  DefaultLength,
		Upper:   true,
		Lower:   true,
		Digits:  true,
		Symbols: true,
	}
}

// Charset returns the union of the enabled character classes.
func (p Policy) Charset() string {
	var s string
	if p.Upper {
		s += upperChars
	}
	if p.Lower {
		s += lowerChars
	}
	if p.Digits {
		s += digitChars
	}
	if p.Symbols {
		s += symbolChars
	}
	return s
}

// Validate reports whether the policy can produce a password.
func (p Policy) Validate() error {
	if p.Charset() == "" {
		return ErrNoCharacterClass
	}
	if p.Length < MinLength || p.Length > MaxLength {
		return fmt.Errorf("%w: got %d", ErrLength, p.Length)
	}
	return nil
}

// ClampLength forces n into [MinLength, MaxLength].
func ClampLength(n int) int {
	return min(max(n, MinLength), MaxLength)
}

// Generator draws passwords from a cryptographically secure source.
type Generator struct {
	rand io.Reader
}

// New creates a generator backed by crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader creates a generator reading randomness from r.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a password of exactly p.Length characters, each drawn
// independently and uniformly from p.Charset().
func (g *Generator) Generate(p Policy) (string, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}

	chars := p.Charset()
	buf := make([]byte, p.Length)
	for i := range buf {
		n, err := g.randIntn(len(chars))
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = chars[n]
	}

	return string(buf), nil
}

// randIntn returns a uniform random int in [0, n).
func (g *Generator) randIntn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
