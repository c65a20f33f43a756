package game

import (
	"fmt"
	"math/rand"
	"sync"
)

const (
	seedBalanceMin = 150
	seedBalanceMax = 200
)

// Ledger tracks coin balances per Telegram user id. A user unseen before is
// seeded once with a random starting balance; after that, reads are stable.
type Ledger struct {
	mu       sync.Mutex
	rng      *rand.Rand
	balances map[int64]int
}

func NewLedger(rng *rand.Rand) *Ledger {
	return &Ledger{
		rng:      rng,
		balances: make(map[int64]int),
	}
}

// Balance returns the user's balance, seeding first-time users.
func (l *Ledger) Balance(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(userID)
}

func (l *Ledger) balance(userID int64) int {
	bal, ok := l.balances[userID]
	if !ok {
		bal = seedBalanceMin + l.rng.Intn(seedBalanceMax-seedBalanceMin+1)
		l.balances[userID] = bal
	}
	return bal
}

// Deduct subtracts amount from the user's balance. The check and subtract are
// atomic: on insufficient funds nothing changes and ErrInsufficientFunds is
// returned.
func (l *Ledger) Deduct(userID int64, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(userID)
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, bal, amount)
	}
	l.balances[userID] = bal - amount
	return nil
}

// Credit adds a non-negative amount to the user's balance.
func (l *Ledger) Credit(userID int64, amount int) {
	if amount < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balance(userID) + amount
}

// Balances returns a copy of every known balance, for snapshots.
func (l *Ledger) Balances() map[int64]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int64]int, len(l.balances))
	for id, bal := range l.balances {
		out[id] = bal
	}
	return out
}

// Restore replaces all balances, typically from a snapshot.
func (l *Ledger) Restore(balances map[int64]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[int64]int, len(balances))
	for id, bal := range balances {
		l.balances[id] = bal
	}
}
