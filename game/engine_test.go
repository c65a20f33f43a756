package game

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 1

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.AdminID == 0 {
		opts.AdminID = adminID
	}
	if opts.Seed == 0 {
		opts.Seed = 99
	}
	return NewEngine(opts)
}

// fundUser pins a user's wallet to an exact value regardless of the random
// starting seed.
func fundUser(e *Engine, userID int64, balance int) {
	current := e.ledger.Balance(userID)
	e.ledger.Credit(userID, balance)
	if err := e.ledger.Deduct(userID, current); err != nil {
		panic(err)
	}
}

func TestJoinDeductsStakeAndTakesCard(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 42, 200)

	res, err := e.Join(42, "abebe", 145)
	require.NoError(t, err)
	assert.Equal(t, 145, res.BoardNumber)
	assert.Equal(t, 10, res.Paid)
	assert.Equal(t, 190, res.Balance)
	assert.Equal(t, 10, res.Pot)
	assert.Equal(t, 1, res.PlayerCount)

	assert.Equal(t, MaxCardID-MinCardID, e.AvailableCount(), "card 145 must leave the pool")

	_, err = e.Join(43, "kebede", 145)
	assert.ErrorIs(t, err, ErrCardTaken)

	_, err = e.Join(42, "abebe", 0)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestJoinRejectionsHaveNoSideEffects(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 5, 3) // below the entry fee

	_, err := e.Join(5, "poor", 145)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 3, e.WalletOf(5))
	assert.Equal(t, 0, e.Pot())
	assert.False(t, e.HasPlayer(5))
	assert.Equal(t, MaxCardID-MinCardID+1, e.AvailableCount())

	fundUser(e, 6, 100)
	_, err = e.Join(6, "oops", MaxCardID+1)
	assert.ErrorIs(t, err, ErrInvalidCardID)
	assert.Equal(t, 100, e.WalletOf(6), "card validation happens before the deduction")
}

func TestJoinRandomAssignment(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 7, 100)

	res, err := e.Join(7, "rand", 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.BoardNumber, MinCardID)
	assert.LessOrEqual(t, res.BoardNumber, MaxCardID)
	assert.False(t, e.available[res.BoardNumber])
}

func TestStartRequiresIdleAdminAndPlayers(t *testing.T) {
	e := newTestEngine(t, Options{})

	_, err := e.Start(99)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.Start(adminID)
	assert.ErrorIs(t, err, ErrInvalidState, "zero players")

	fundUser(e, 2, 100)
	_, err = e.Join(2, "p", 0)
	require.NoError(t, err)

	res, err := e.Start(adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.GameID)

	_, err = e.Start(adminID)
	assert.ErrorIs(t, err, ErrInvalidState, "already running")

	_, err = e.Join(3, "late", 0)
	assert.ErrorIs(t, err, ErrInvalidState, "join closes while running")
}

func TestStartClearsStaleMarks(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 145)
	require.NoError(t, err)

	// Simulate marks left behind by an aborted earlier round.
	e.players[2].Marked["B-1"] = true

	_, err = e.Start(adminID)
	require.NoError(t, err)
	assert.Empty(t, e.players[2].Marked, "stale marks must not carry into a new round")
	assert.Equal(t, 0, e.caller.Count())
}

func TestCallMarksAndDetectsWinner(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 42, 200)

	_, err := e.Join(42, "abebe", 145)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)

	var winners []Winner
	potBefore := 0
	for i := 0; i < 75; i++ {
		res, err := e.Call(adminID)
		require.NoError(t, err)
		if len(res.Winners) > 0 {
			winners = res.Winners
			potBefore = res.Pot
			break
		}
	}
	require.Len(t, winners, 1, "a single line must complete within 75 calls")
	assert.Equal(t, int64(42), winners[0].UserID)
	assert.Equal(t, 10, potBefore)
	assert.Equal(t, 10, winners[0].Amount)

	// Settlement: pot credited, round back to idle, pot zeroed.
	assert.Equal(t, 200, e.WalletOf(42), "190 after stake + 10 pot")
	assert.False(t, e.Active())
	assert.Equal(t, 0, e.Pot())

	stats := e.Stats()
	assert.Equal(t, 1, stats.TotalGames)
	assert.Equal(t, 10, stats.TotalPot)
	ps := e.PlayerStatsOf(42)
	assert.Equal(t, 1, ps.GamesWon)
	assert.Equal(t, 10, ps.TotalWinnings)

	_, err = e.Call(adminID)
	assert.ErrorIs(t, err, ErrInvalidState, "call after round end")
}

func TestCallExhaustionEndsRoundWithoutPayout(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 145)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)

	// An unreachable pattern keeps the round alive through all 75 draws.
	e.pattern = Pattern("unreachable")

	for i := 0; i < 75; i++ {
		_, err := e.Call(adminID)
		require.NoError(t, err, "draw %d", i+1)
	}

	_, err = e.Call(adminID)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.False(t, e.Active())
	assert.Equal(t, 10, e.Pot(), "no payout on exhaustion; pot stays for the roster")
	assert.Equal(t, 90, e.WalletOf(2))
}

func TestSimultaneousWinnersSplitPot(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 2, 100)
	fundUser(e, 3, 100)

	_, err := e.Join(2, "first", 145)
	require.NoError(t, err)
	_, err = e.Join(3, "second", 146)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)

	// Give both players identical board contents so any completing call
	// completes both, and force an odd pot to exercise the remainder rule.
	e.players[3].Card = e.players[2].Card.clone()
	e.pot = 21

	var winners []Winner
	for i := 0; i < 75; i++ {
		res, err := e.Call(adminID)
		require.NoError(t, err)
		if len(res.Winners) > 0 {
			winners = res.Winners
			assert.Equal(t, 21, res.Pot, "pot captured before settlement")
			break
		}
	}
	require.Len(t, winners, 2)
	assert.Equal(t, int64(2), winners[0].UserID, "earliest joiner settles first")
	assert.Equal(t, 11, winners[0].Amount, "remainder coin goes to the earliest joiner")
	assert.Equal(t, 10, winners[1].Amount)

	assert.Equal(t, 101, e.WalletOf(2))
	assert.Equal(t, 100, e.WalletOf(3))
	assert.Equal(t, 0, e.Pot())
	assert.Equal(t, 1, e.Stats().TotalGames, "one winning call counts as one game")
}

func TestEndPreservesRosterAndPot(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 0)
	require.NoError(t, err)

	assert.ErrorIs(t, e.End(adminID), ErrInvalidState, "end requires a running round")

	_, err = e.Start(adminID)
	require.NoError(t, err)
	_, err = e.Call(adminID)
	require.NoError(t, err)

	require.NoError(t, e.End(adminID))
	assert.False(t, e.Active())
	assert.True(t, e.HasPlayer(2))
	assert.Equal(t, 10, e.Pot(), "pot carries over to the next round")
	assert.Empty(t, e.Summary().CalledNumbers)

	// The same roster can start again; the pot keeps accumulating.
	res, err := e.Start(adminID)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Pot)
}

func TestResetRestoresFullUniverse(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 145)
	require.NoError(t, err)
	balanceAfterJoin := e.WalletOf(2)

	require.NoError(t, e.Reset(adminID))
	assert.Equal(t, 400, e.AvailableCount())
	assert.False(t, e.HasPlayer(2))
	assert.Equal(t, 0, e.Pot())
	assert.Equal(t, balanceAfterJoin, e.WalletOf(2), "reset never touches wallets")

	assert.ErrorIs(t, e.Reset(99), ErrUnauthorized)
}

func TestAdminGatedConfiguration(t *testing.T) {
	e := newTestEngine(t, Options{})

	assert.ErrorIs(t, e.SetPattern(99, PatternX), ErrUnauthorized)
	assert.ErrorIs(t, e.SetEntryFee(99, 20), ErrUnauthorized)

	assert.Error(t, e.SetPattern(adminID, Pattern("nope")))
	assert.Error(t, e.SetEntryFee(adminID, 0))

	require.NoError(t, e.SetPattern(adminID, PatternFourCorners))
	require.NoError(t, e.SetEntryFee(adminID, 25))
	sum := e.Summary()
	assert.Equal(t, PatternFourCorners, sum.Pattern)
	assert.Equal(t, 25, sum.EntryFee)

	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 0)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)
	assert.ErrorIs(t, e.SetPattern(adminID, PatternLine), ErrInvalidState)
	assert.ErrorIs(t, e.SetEntryFee(adminID, 10), ErrInvalidState)
}

func TestEnsureAdminClaimsOnce(t *testing.T) {
	e := newTestEngine(t, Options{AdminID: -1})
	e.adminID = 0

	assert.Equal(t, int64(5), e.EnsureAdmin(5))
	assert.Equal(t, int64(5), e.EnsureAdmin(6), "second claimant does not displace the admin")
}

func TestWebAppHandOffAndSelectCard(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	fundUser(e, 42, 200)

	payload, err := e.WebAppData(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, payload.SessionID, 32)
	assert.Equal(t, 200, payload.Wallet)
	assert.Equal(t, 10, payload.Stake)
	assert.Equal(t, 400, payload.TotalCards)
	assert.False(t, payload.GameActive)
	assert.Equal(t, PatternLine, payload.WinPattern)
	assert.Equal(t, MinCardID, payload.AvailableCards[0])

	res, err := e.SelectCard(ctx, 42, "abebe", SelectCardRequest{
		Action:     "select_card",
		CardNumber: 145,
		SessionID:  payload.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, 145, res.BoardNumber)

	// The session was consumed by the selection.
	_, err = e.SelectCard(ctx, 42, "abebe", SelectCardRequest{
		Action:     "select_card",
		CardNumber: 146,
		SessionID:  payload.SessionID,
	})
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSelectCardRejectsForeignSession(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()

	payload, err := e.WebAppData(ctx, 42)
	require.NoError(t, err)

	_, err = e.SelectCard(ctx, 43, "mallory", SelectCardRequest{
		Action:     "select_card",
		CardNumber: 145,
		SessionID:  payload.SessionID,
	})
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestNotifierFailuresDoNotAbortOperations(t *testing.T) {
	sent := 0
	e := newTestEngine(t, Options{
		Notify: func(userID int64, text string) error {
			sent++
			return fmt.Errorf("recipient %d unreachable", userID)
		},
	})
	fundUser(e, 2, 100)
	_, err := e.Join(2, "p", 0)
	require.NoError(t, err)

	_, err = e.Start(adminID)
	require.NoError(t, err, "start succeeds even when every notification fails")
	assert.Greater(t, sent, 0)

	_, err = e.Call(adminID)
	require.NoError(t, err)
}

func TestOnChangeFiresAfterMutations(t *testing.T) {
	var last StateSummary
	calls := 0
	e := newTestEngine(t, Options{
		OnChange: func(s StateSummary) {
			last = s
			calls++
		},
	})
	fundUser(e, 2, 100)

	_, err := e.Join(2, "p", 145)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateIdle, last.Status)
	assert.Equal(t, []int{145}, last.TakenCards)

	_, err = e.Start(adminID)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, last.Status)
}

func TestEngineSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewSnapshotStore(path)

	e := newTestEngine(t, Options{Snapshots: store})
	fundUser(e, 42, 200)
	_, err := e.Join(42, "abebe", 145)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)
	_, err = e.Call(adminID)
	require.NoError(t, err)

	before := e.Summary()

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)

	restored := newTestEngine(t, Options{})
	restored.Restore(snap)

	after := restored.Summary()
	assert.Equal(t, before, after)
	assert.Equal(t, e.WalletOf(42), restored.WalletOf(42))

	card, _, ok := restored.PlayerCard(42)
	require.True(t, ok)
	original, _, _ := e.PlayerCard(42)
	assert.Equal(t, original, card)
}

// Wallet seeding consumes randomness from the ledger's own stream, never
// from the draw stream: interleaving first-time wallet reads between calls
// must leave the draw sequence untouched.
func TestWalletReadsDoNotPerturbDraws(t *testing.T) {
	run := func(readWallets bool) []string {
		e := newTestEngine(t, Options{})
		fundUser(e, 42, 200)
		_, err := e.Join(42, "abebe", 145)
		require.NoError(t, err)
		_, err = e.Start(adminID)
		require.NoError(t, err)
		e.pattern = Pattern("unreachable")

		tokens := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			if readWallets {
				e.WalletOf(int64(1000 + i)) // seeds a fresh wallet
			}
			res, err := e.Call(adminID)
			require.NoError(t, err)
			tokens = append(tokens, res.Token)
		}
		return tokens
	}

	assert.Equal(t, run(false), run(true))
}

// Wallet reads arrive from HTTP handlers with no engine lock held; they must
// be safe against a concurrently running round.
func TestConcurrentWalletReadsDuringCalls(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 42, 200)
	_, err := e.Join(42, "abebe", 145)
	require.NoError(t, err)
	_, err = e.Start(adminID)
	require.NoError(t, err)
	e.pattern = Pattern("unreachable")

	done := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-done:
					return
				default:
				}
				e.WalletOf(int64(g*10000 + i))
			}
		}(g)
	}

	for i := 0; i < 75; i++ {
		_, err := e.Call(adminID)
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
}

// The snapshot does not record join order, so restore seats players by
// ascending user id; the settlement tie-break must come out the same on
// every restart.
func TestRestoreSeatsPlayersInStableOrder(t *testing.T) {
	snap := &Snapshot{
		Players: map[string]PlayerSnapshot{
			"7": {Username: "C", BoardNumber: 147},
			"3": {Username: "A", BoardNumber: 145},
			"5": {Username: "B", BoardNumber: 146},
		},
	}

	for i := 0; i < 3; i++ {
		e := newTestEngine(t, Options{})
		e.Restore(snap)
		require.Len(t, e.players, 3)
		assert.Equal(t, 1, e.players[3].seq)
		assert.Equal(t, 2, e.players[5].seq)
		assert.Equal(t, 3, e.players[7].seq)
	}
}

func TestSingleWinnerRoundLifecycle(t *testing.T) {
	e := newTestEngine(t, Options{})
	fundUser(e, 100, 200)

	res, err := e.Join(100, "A", 145)
	require.NoError(t, err)
	assert.Equal(t, 190, e.WalletOf(100))
	assert.Equal(t, 10, e.Pot())
	assert.Equal(t, 145, res.BoardNumber)

	start, err := e.Start(adminID)
	require.NoError(t, err)
	assert.Equal(t, 2, start.GameID, "game id increments on start")
	assert.Empty(t, e.Summary().CalledNumbers)

	for {
		cr, err := e.Call(adminID)
		if errors.Is(err, ErrExhausted) {
			t.Fatal("round exhausted before the line completed")
		}
		require.NoError(t, err)
		if len(cr.Winners) > 0 {
			assert.Equal(t, 10, cr.Pot)
			break
		}
	}

	assert.False(t, e.Active())
	assert.Equal(t, 200, e.WalletOf(100), "winner gets the pot back on top of the reduced balance")
	assert.Equal(t, 0, e.Pot())
}
