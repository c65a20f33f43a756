package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

const (
	// Card ids form a fixed universe of 400 printable boards.
	MinCardID = 145
	MaxCardID = 544

	// FreeNumber marks the center free cell of the N column.
	FreeNumber = 0
)

// Letters are the five column labels in board order.
var Letters = [5]string{"B", "I", "N", "G", "O"}

// columnLow[i] is the smallest number allowed in column i; each column
// spans 15 consecutive numbers (B 1-15, I 16-30, N 31-45, G 46-60, O 61-75).
var columnLow = [5]int{1, 16, 31, 46, 61}

// Card is one 5x5 bingo board. Columns are stored top to bottom; the JSON
// shape matches what the card-selector web app expects.
type Card struct {
	CardID int   `json:"card_id"`
	B      []int `json:"B"`
	I      []int `json:"I"`
	N      []int `json:"N"`
	G      []int `json:"G"`
	O      []int `json:"O"`
}

// Column returns the column at index i (0=B .. 4=O).
func (c *Card) Column(i int) []int {
	switch i {
	case 0:
		return c.B
	case 1:
		return c.I
	case 2:
		return c.N
	case 3:
		return c.G
	case 4:
		return c.O
	}
	return nil
}

func (c *Card) clone() *Card {
	return &Card{
		CardID: c.CardID,
		B:      append([]int(nil), c.B...),
		I:      append([]int(nil), c.I...),
		N:      append([]int(nil), c.N...),
		G:      append([]int(nil), c.G...),
		O:      append([]int(nil), c.O...),
	}
}

// ColumnFor returns the column index a called number belongs to,
// or -1 if the number is outside 1-75.
func ColumnFor(n int) int {
	if n < 1 || n > 75 {
		return -1
	}
	return (n - 1) / 15
}

// Token is the canonical "<letter>-<number>" encoding of one call.
func Token(letter string, number int) string {
	return fmt.Sprintf("%s-%d", letter, number)
}

// Deck generates cards deterministically by id and caches them so a card's
// contents never change for the lifetime of the process.
type Deck struct {
	mu    sync.RWMutex
	cache map[int]*Card
}

func NewDeck() *Deck {
	return &Deck{cache: make(map[int]*Card)}
}

// Generate returns the card for the given id. The same id always yields the
// same board: each column's numbers come from a rand stream seeded with the
// id itself, so generation does not touch any shared random state. Callers
// receive a copy and cannot mutate the cached card.
func (d *Deck) Generate(cardID int) (*Card, error) {
	if cardID < MinCardID || cardID > MaxCardID {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCardID, cardID, MinCardID, MaxCardID)
	}

	d.mu.RLock()
	cached, ok := d.cache[cardID]
	d.mu.RUnlock()
	if ok {
		return cached.clone(), nil
	}

	rng := rand.New(rand.NewSource(int64(cardID)))
	card := &Card{CardID: cardID}
	for i := range Letters {
		col := make([]int, 5)
		for j, k := range rng.Perm(15)[:5] {
			col[j] = columnLow[i] + k
		}
		switch i {
		case 0:
			card.B = col
		case 1:
			card.I = col
		case 2:
			card.N = col
		case 3:
			card.G = col
		case 4:
			card.O = col
		}
	}
	card.N[2] = FreeNumber

	d.mu.Lock()
	if existing, ok := d.cache[cardID]; ok {
		card = existing
	} else {
		d.cache[cardID] = card.clone()
	}
	d.mu.Unlock()

	return card.clone(), nil
}

// FormatCard renders the board as a monospace grid. Marked cells are shown
// in brackets, the free cell as a star.
func FormatCard(card *Card, marked map[string]bool) string {
	var b strings.Builder
	b.WriteString("B   I   N   G   O\n")
	b.WriteString("--- --- --- --- ---")
	for row := 0; row < 5; row++ {
		b.WriteString("\n")
		cells := make([]string, 5)
		for i, letter := range Letters {
			n := card.Column(i)[row]
			switch {
			case n == FreeNumber:
				cells[i] = " * "
			case marked[Token(letter, n)]:
				cells[i] = fmt.Sprintf("[%2d]", n)
			default:
				cells[i] = fmt.Sprintf(" %2d ", n)
			}
		}
		b.WriteString(strings.Join(cells, " "))
	}
	return b.String()
}
