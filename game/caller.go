package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Caller draws call tokens without replacement from the 75-token universe.
// It is not safe for concurrent use on its own; the engine serializes access.
type Caller struct {
	rng    *rand.Rand
	called map[string]bool
	order  []string
}

func NewCaller(rng *rand.Rand) *Caller {
	return &Caller{
		rng:    rng,
		called: make(map[string]bool),
	}
}

// Draw picks one uncalled token uniformly at random and records it.
// Returns ErrExhausted once all 75 tokens have been called.
func (c *Caller) Draw() (letter string, number int, err error) {
	remaining := make([]string, 0, 75-len(c.called))
	for i, l := range Letters {
		low := columnLow[i]
		for n := low; n < low+15; n++ {
			if tok := Token(l, n); !c.called[tok] {
				remaining = append(remaining, tok)
			}
		}
	}
	if len(remaining) == 0 {
		return "", 0, ErrExhausted
	}

	tok := remaining[c.rng.Intn(len(remaining))]
	c.called[tok] = true
	c.order = append(c.order, tok)

	letter, number, err = parseToken(tok)
	return letter, number, err
}

// Reset clears the called set for a new round.
func (c *Caller) Reset() {
	c.called = make(map[string]bool)
	c.order = nil
}

// Restore replaces the called set, typically from a snapshot.
func (c *Caller) Restore(tokens []string) {
	c.Reset()
	for _, tok := range tokens {
		if !c.called[tok] {
			c.called[tok] = true
			c.order = append(c.order, tok)
		}
	}
}

// Has reports whether the token has been called this round.
func (c *Caller) Has(token string) bool { return c.called[token] }

// Count returns how many tokens have been called this round.
func (c *Caller) Count() int { return len(c.order) }

// Called returns the tokens in draw order.
func (c *Caller) Called() []string {
	return append([]string(nil), c.order...)
}

func parseToken(tok string) (string, int, error) {
	letter, num, ok := strings.Cut(tok, "-")
	if !ok {
		return "", 0, fmt.Errorf("malformed call token %q", tok)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, fmt.Errorf("malformed call token %q: %v", tok, err)
	}
	return letter, n, nil
}
