package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/geezlabs/geez-bingo/utils/logger"
)

const (
	StateIdle    = "idle"
	StateRunning = "running"

	DefaultEntryFee = 10
)

// Notifier pushes a point-to-point message to one player. Failures are
// per-recipient: the engine logs them and keeps going.
type Notifier func(userID int64, text string) error

// HistoryRecorder receives round and wallet events for durable bookkeeping.
// Every method is best-effort; implementations must not block for long and
// must swallow their own errors.
type HistoryRecorder interface {
	RoundStarted(gameID, stake, players int)
	NumberCalled(gameID int, token string, drawn []string)
	RoundFinished(gameID int, winners []Winner, pot int)
	WalletChange(userID int64, amount int, txType string, balanceAfter int)
}

// Player is one entry in the current round's roster.
type Player struct {
	UserID      int64
	Username    string
	BoardNumber int
	Card        *Card
	Marked      map[string]bool
	seq         int // join order, used for deterministic settlement
}

// Winner describes one settled winner of a call.
type Winner struct {
	UserID      int64
	Username    string
	BoardNumber int
	Amount      int
	Card        *Card
	Marked      map[string]bool
}

// JoinResult is returned to the transport layer after a successful join.
type JoinResult struct {
	Card        *Card
	BoardNumber int
	Paid        int
	Balance     int
	Pot         int
	PlayerCount int
}

// StartResult summarizes a freshly started round.
type StartResult struct {
	GameID      int
	PlayerCount int
	Pot         int
}

// CallResult summarizes one draw.
type CallResult struct {
	Letter      string
	Number      int
	Token       string
	CallCount   int
	GameID      int
	PlayerCount int
	Winners     []Winner
	Pot         int // pot captured before settlement; 0 if no winners
}

// WebAppPayload is the hand-off sent to the card-selector web app.
type WebAppPayload struct {
	SessionID      string  `json:"session_id"`
	Wallet         int     `json:"wallet"`
	Stake          int     `json:"stake"`
	AvailableCards []int   `json:"available_cards"`
	TotalCards     int     `json:"total_cards"`
	GameActive     bool    `json:"game_active"`
	PotAmount      int     `json:"pot_amount"`
	WinPattern     Pattern `json:"win_pattern"`
}

// SelectCardRequest is the payload the web app sends back.
type SelectCardRequest struct {
	Action     string `json:"action"`
	CardNumber int    `json:"card_number"`
	SessionID  string `json:"session_id,omitempty"`
}

// StateSummary is a read-only view pushed to websocket clients and the
// state API.
type StateSummary struct {
	Status        string   `json:"status"`
	GameID        int      `json:"game_id"`
	PlayerCount   int      `json:"players"`
	Pot           int      `json:"pot"`
	EntryFee      int      `json:"entry_fee"`
	Pattern       Pattern  `json:"win_pattern"`
	CalledNumbers []string `json:"called_numbers"`
	TakenCards    []int    `json:"taken_cards"`
	CardsLeft     int      `json:"cards_left"`
}

// Options configures a new Engine. Zero values fall back to defaults.
type Options struct {
	AdminID   int64
	EntryFee  int
	Pattern   Pattern
	Snapshots *SnapshotStore
	Sessions  SessionStore
	History   HistoryRecorder
	Notify    Notifier
	OnChange  func(StateSummary)
	Seed      int64 // draws and wallet seeding; 0 means time-based
}

// Engine is the authoritative round coordinator. A single mutex serializes
// every mutating operation: chat commands, web-form selections and the
// auto-call timer all funnel through it, so at most one mutation runs at a
// time.
type Engine struct {
	mu sync.Mutex

	adminID  int64
	entryFee int
	pattern  Pattern
	active   bool
	gameID   int
	pot      int
	joinSeq  int

	players   map[int64]*Player
	available map[int]bool

	stats       LifetimeStats
	playerStats map[int64]*PlayerStats

	deck      *Deck
	caller    *Caller
	ledger    *Ledger
	sessions  SessionStore
	snapshots *SnapshotStore
	history   HistoryRecorder
	notify    Notifier
	onChange  func(StateSummary)
	rng       *rand.Rand
}

type outbound struct {
	userID int64
	text   string
}

func NewEngine(opts Options) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	// Wallet seeding runs under the ledger's own lock, concurrently with
	// draws under the engine lock, so the ledger gets its own stream.
	walletRNG := rand.New(rand.NewSource(seed + 1))

	fee := opts.EntryFee
	if fee <= 0 {
		fee = DefaultEntryFee
	}
	pattern := opts.Pattern
	if !pattern.Valid() {
		pattern = PatternLine
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}

	e := &Engine{
		adminID:     opts.AdminID,
		entryFee:    fee,
		pattern:     pattern,
		gameID:      1,
		players:     make(map[int64]*Player),
		available:   fullCardSet(),
		playerStats: make(map[int64]*PlayerStats),
		deck:        NewDeck(),
		caller:      NewCaller(rng),
		ledger:      NewLedger(walletRNG),
		sessions:    sessions,
		snapshots:   opts.Snapshots,
		history:     opts.History,
		notify:      opts.Notify,
		onChange:    opts.OnChange,
		rng:         rng,
	}
	return e
}

func fullCardSet() map[int]bool {
	set := make(map[int]bool, MaxCardID-MinCardID+1)
	for id := MinCardID; id <= MaxCardID; id++ {
		set[id] = true
	}
	return set
}

// SetNotifier installs the outbound notification callback. Call before the
// engine starts receiving operations.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notify = n
}

// SetOnChange installs the state fan-out hook. Call before the engine starts
// receiving operations.
func (e *Engine) SetOnChange(fn func(StateSummary)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// EnsureAdmin claims the admin seat for userID when none is configured and
// returns the current admin id.
func (e *Engine) EnsureAdmin(userID int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.adminID == 0 {
		e.adminID = userID
		logger.Infof("admin seat claimed by user %d", userID)
	}
	return e.adminID
}

// IsAdmin reports whether userID holds the admin seat.
func (e *Engine) IsAdmin(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return userID == e.adminID
}

func (e *Engine) requireAdmin(actorID int64) error {
	if actorID != e.adminID {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) stateName() string {
	if e.active {
		return StateRunning
	}
	return StateIdle
}

func (e *Engine) wrongState(required string) error {
	return fmt.Errorf("%w: round is %s, operation requires %s", ErrInvalidState, e.stateName(), required)
}

// Join adds a player to the roster during idle state. cardID 0 means assign
// a random available card. The stake deduction is all-or-nothing: any
// rejection leaves wallet, roster and pot untouched.
func (e *Engine) Join(userID int64, username string, cardID int) (*JoinResult, error) {
	e.mu.Lock()

	if e.active {
		e.mu.Unlock()
		return nil, e.wrongState(StateIdle)
	}
	if _, ok := e.players[userID]; ok {
		e.mu.Unlock()
		return nil, ErrAlreadyJoined
	}

	if cardID == 0 {
		if len(e.available) == 0 {
			e.mu.Unlock()
			return nil, ErrNoCardsAvailable
		}
		cardID = e.randomAvailableCard()
	} else {
		if cardID < MinCardID || cardID > MaxCardID {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCardID, cardID, MinCardID, MaxCardID)
		}
		if !e.available[cardID] {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: card #%d", ErrCardTaken, cardID)
		}
	}

	if err := e.ledger.Deduct(userID, e.entryFee); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	card, err := e.deck.Generate(cardID)
	if err != nil {
		// Range was validated above; refund to stay all-or-nothing.
		e.ledger.Credit(userID, e.entryFee)
		e.mu.Unlock()
		return nil, err
	}

	e.joinSeq++
	e.players[userID] = &Player{
		UserID:      userID,
		Username:    username,
		BoardNumber: cardID,
		Card:        card,
		Marked:      make(map[string]bool),
		seq:         e.joinSeq,
	}
	delete(e.available, cardID)
	e.pot += e.entryFee
	e.stats.TotalPlayers++

	res := &JoinResult{
		Card:        card.clone(),
		BoardNumber: cardID,
		Paid:        e.entryFee,
		Balance:     e.ledger.Balance(userID),
		Pot:         e.pot,
		PlayerCount: len(e.players),
	}
	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.recordWallet(userID, -res.Paid, "stake", res.Balance)
	e.afterMutation(snap, summary, nil)
	return res, nil
}

func (e *Engine) randomAvailableCard() int {
	ids := make([]int, 0, len(e.available))
	for id := range e.available {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids[e.rng.Intn(len(ids))]
}

// Start opens a new round: admin only, idle state, and at least one joined
// player. The called set and every player's marked set are cleared so a
// prior aborted round can never leak stale marks into this one.
func (e *Engine) Start(actorID int64) (*StartResult, error) {
	e.mu.Lock()

	if err := e.requireAdmin(actorID); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if e.active {
		e.mu.Unlock()
		return nil, e.wrongState(StateIdle)
	}
	if len(e.players) == 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: no players have joined", ErrInvalidState)
	}

	e.active = true
	e.gameID++
	e.caller.Reset()
	for _, p := range e.players {
		p.Marked = make(map[string]bool)
	}

	res := &StartResult{GameID: e.gameID, PlayerCount: len(e.players), Pot: e.pot}

	msgs := make([]outbound, 0, 2*len(e.players))
	header := fmt.Sprintf("Game #%d started! Players: %d | Pot: %d coins | Pattern: %s",
		e.gameID, len(e.players), e.pot, e.pattern)
	for _, p := range e.players {
		msgs = append(msgs,
			outbound{p.UserID, header},
			outbound{p.UserID, fmt.Sprintf("Your card (#%d):\n%s", p.BoardNumber, FormatCard(p.Card, nil))},
		)
	}

	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	gameID, stake, count := e.gameID, e.entryFee, len(e.players)
	e.mu.Unlock()

	if e.history != nil {
		e.history.RoundStarted(gameID, stake, count)
	}
	e.afterMutation(snap, summary, msgs)
	return res, nil
}

// Call draws the next number, marks every player's card, then evaluates the
// win pattern for all of them. Marking strictly precedes evaluation, so one
// call can complete several cards at once. On exhaustion of the 75-token
// universe the round ends with no payout and ErrExhausted is returned.
func (e *Engine) Call(actorID int64) (*CallResult, error) {
	e.mu.Lock()

	if err := e.requireAdmin(actorID); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if !e.active {
		e.mu.Unlock()
		return nil, e.wrongState(StateRunning)
	}

	letter, number, err := e.caller.Draw()
	if err != nil {
		e.active = false
		snap := e.snapshotLocked()
		summary := e.summaryLocked()
		msgs := e.broadcastLocked("All 75 numbers called, no winner. Round over.")
		e.mu.Unlock()
		e.afterMutation(snap, summary, msgs)
		return nil, err
	}
	token := Token(letter, number)

	col := ColumnFor(number)
	for _, p := range e.players {
		for _, n := range p.Card.Column(col) {
			if n == number {
				p.Marked[token] = true
				break
			}
		}
	}

	var winners []*Player
	for _, p := range e.players {
		if e.pattern.Match(p.Card, p.Marked) {
			winners = append(winners, p)
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].seq < winners[j].seq })

	res := &CallResult{
		Letter:      letter,
		Number:      number,
		Token:       token,
		CallCount:   e.caller.Count(),
		GameID:      e.gameID,
		PlayerCount: len(e.players),
	}

	msgs := e.broadcastLocked(fmt.Sprintf("Game %d | Call %d | Current call: %s",
		e.gameID, res.CallCount, token))

	if len(winners) > 0 {
		res.Pot = e.pot
		res.Winners = e.settleLocked(winners)
		for _, w := range res.Winners {
			text := fmt.Sprintf("BINGO! %s won %d coins with card #%d\n%s",
				w.Username, w.Amount, w.BoardNumber, FormatCard(w.Card, w.Marked))
			msgs = append(msgs, e.broadcastLocked(text)...)
		}
	}

	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	gameID := e.gameID
	drawn := e.caller.Called()
	e.mu.Unlock()

	if e.history != nil {
		e.history.NumberCalled(gameID, token, drawn)
		if len(res.Winners) > 0 {
			e.history.RoundFinished(gameID, res.Winners, res.Pot)
		}
	}
	for _, w := range res.Winners {
		e.recordWallet(w.UserID, w.Amount, "payout", e.ledger.Balance(w.UserID))
	}
	e.afterMutation(snap, summary, msgs)
	return res, nil
}

// settleLocked pays out all simultaneous winners from the pot captured
// before any mutation. The pot is split evenly; remainder coins go to the
// earliest joiners. The lifetime games counter increments once per winning
// call, not once per winner. Ends the round.
func (e *Engine) settleLocked(winners []*Player) []Winner {
	pot := e.pot
	n := len(winners)
	share := pot / n
	rem := pot % n

	e.stats.TotalGames++
	e.stats.TotalPot += pot

	out := make([]Winner, 0, n)
	for i, p := range winners {
		amount := share
		if i < rem {
			amount++
		}
		ps := e.playerStatsLocked(p.UserID)
		ps.GamesPlayed++
		ps.GamesWon++
		ps.TotalWinnings += amount

		e.ledger.Credit(p.UserID, amount)

		marked := make(map[string]bool, len(p.Marked))
		for tok := range p.Marked {
			marked[tok] = true
		}
		out = append(out, Winner{
			UserID:      p.UserID,
			Username:    p.Username,
			BoardNumber: p.BoardNumber,
			Amount:      amount,
			Card:        p.Card.clone(),
			Marked:      marked,
		})
	}

	e.pot = 0
	e.active = false
	return out
}

func (e *Engine) playerStatsLocked(userID int64) *PlayerStats {
	ps, ok := e.playerStats[userID]
	if !ok {
		ps = &PlayerStats{}
		e.playerStats[userID] = ps
	}
	return ps
}

// End force-stops a running round. Players stay on the roster and the pot
// carries over to the next round; only the called set is cleared.
func (e *Engine) End(actorID int64) error {
	e.mu.Lock()

	if err := e.requireAdmin(actorID); err != nil {
		e.mu.Unlock()
		return err
	}
	if !e.active {
		e.mu.Unlock()
		return e.wrongState(StateRunning)
	}

	e.active = false
	e.caller.Reset()
	msgs := e.broadcastLocked("Round stopped by admin. The pot carries over to the next game.")
	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.afterMutation(snap, summary, msgs)
	return nil
}

// Reset wipes the roster, pot and called set and restores the full card
// universe. Wallet balances and lifetime stats survive. Valid in any state.
func (e *Engine) Reset(actorID int64) error {
	e.mu.Lock()

	if err := e.requireAdmin(actorID); err != nil {
		e.mu.Unlock()
		return err
	}

	e.active = false
	e.pot = 0
	e.players = make(map[int64]*Player)
	e.available = fullCardSet()
	e.caller.Reset()
	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.afterMutation(snap, summary, nil)
	return nil
}

// SetPattern changes the win pattern for upcoming rounds. Idle state only.
func (e *Engine) SetPattern(actorID int64, p Pattern) error {
	e.mu.Lock()

	if err := e.requireAdmin(actorID); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.active {
		e.mu.Unlock()
		return e.wrongState(StateIdle)
	}
	if !p.Valid() {
		e.mu.Unlock()
		return fmt.Errorf("unknown pattern %q", p)
	}

	e.pattern = p
	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.afterMutation(snap, summary, nil)
	return nil
}

// SetEntryFee changes the stake for upcoming rounds. Idle state only.
func (e *Engine) SetEntryFee(actorID int64, fee int) error {
	e.mu.Lock()

	if err := e.requireAdmin(actorID); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.active {
		e.mu.Unlock()
		return e.wrongState(StateIdle)
	}
	if fee <= 0 {
		e.mu.Unlock()
		return fmt.Errorf("entry fee must be positive, got %d", fee)
	}

	e.entryFee = fee
	snap := e.snapshotLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.afterMutation(snap, summary, nil)
	return nil
}

// WebAppData builds the card-selector hand-off payload and registers a
// single-use session for it.
func (e *Engine) WebAppData(ctx context.Context, userID int64) (*WebAppPayload, error) {
	wallet := e.ledger.Balance(userID)

	e.mu.Lock()
	available := make([]int, 0, len(e.available))
	for id := range e.available {
		available = append(available, id)
	}
	sort.Ints(available)
	active := e.active
	pot := e.pot
	fee := e.entryFee
	pattern := e.pattern
	e.mu.Unlock()

	sessionID, err := NewSessionID()
	if err != nil {
		return nil, err
	}
	sess := Session{
		UserID:         userID,
		Wallet:         wallet,
		AvailableCards: available,
		IssuedAt:       time.Now(),
	}
	if err := e.sessions.Put(ctx, sessionID, sess); err != nil {
		return nil, err
	}

	return &WebAppPayload{
		SessionID:      sessionID,
		Wallet:         wallet,
		Stake:          fee,
		AvailableCards: available,
		TotalCards:     len(available),
		GameActive:     active,
		PotAmount:      pot,
		WinPattern:     pattern,
	}, nil
}

// SelectCard handles a card-selection payload from the web app. A session
// id, when present, is consumed up front: even a failed join burns it.
func (e *Engine) SelectCard(ctx context.Context, userID int64, username string, req SelectCardRequest) (*JoinResult, error) {
	if req.SessionID != "" {
		sess, err := e.sessions.Consume(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if sess.UserID != userID {
			return nil, fmt.Errorf("%w: session issued to another user", ErrSessionInvalid)
		}
	}
	return e.Join(userID, username, req.CardNumber)
}

// --- read-only accessors ---

// Active reports whether a round is currently running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// WalletOf returns the user's balance, seeding first-time users.
func (e *Engine) WalletOf(userID int64) int {
	return e.ledger.Balance(userID)
}

// Stats returns the lifetime counters.
func (e *Engine) Stats() LifetimeStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// PlayerStatsOf returns the per-player lifetime counters.
func (e *Engine) PlayerStatsOf(userID int64) PlayerStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ps, ok := e.playerStats[userID]; ok {
		return *ps
	}
	return PlayerStats{}
}

// HasPlayer reports whether the user is on the current roster.
func (e *Engine) HasPlayer(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.players[userID]
	return ok
}

// PlayerCard returns a copy of the player's card and marked set.
func (e *Engine) PlayerCard(userID int64) (*Card, map[string]bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.players[userID]
	if !ok {
		return nil, nil, false
	}
	marked := make(map[string]bool, len(p.Marked))
	for tok := range p.Marked {
		marked[tok] = true
	}
	return p.Card.clone(), marked, true
}

// AvailableCount returns how many cards remain selectable.
func (e *Engine) AvailableCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.available)
}

// Pot returns the current pot amount.
func (e *Engine) Pot() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pot
}

// EntryFee returns the current stake.
func (e *Engine) EntryFee() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entryFee
}

// Summary returns the state view used by the websocket hub and state API.
func (e *Engine) Summary() StateSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked()
}

func (e *Engine) summaryLocked() StateSummary {
	taken := make([]int, 0, MaxCardID-MinCardID+1-len(e.available))
	for id := MinCardID; id <= MaxCardID; id++ {
		if !e.available[id] {
			taken = append(taken, id)
		}
	}
	return StateSummary{
		Status:        e.stateName(),
		GameID:        e.gameID,
		PlayerCount:   len(e.players),
		Pot:           e.pot,
		EntryFee:      e.entryFee,
		Pattern:       e.pattern,
		CalledNumbers: e.caller.Called(),
		TakenCards:    taken,
		CardsLeft:     len(e.available),
	}
}

// --- snapshot persistence ---

func (e *Engine) snapshotLocked() *Snapshot {
	players := make(map[string]PlayerSnapshot, len(e.players))
	for id, p := range e.players {
		marked := make([]string, 0, len(p.Marked))
		for tok := range p.Marked {
			marked = append(marked, tok)
		}
		sort.Strings(marked)
		players[strconv.FormatInt(id, 10)] = PlayerSnapshot{
			Username:    p.Username,
			BoardNumber: p.BoardNumber,
			Card:        p.Card.clone(),
			Marked:      marked,
		}
	}

	available := make([]int, 0, len(e.available))
	for id := range e.available {
		available = append(available, id)
	}
	sort.Ints(available)

	playerStats := make(map[string]PlayerStats, len(e.playerStats))
	for id, ps := range e.playerStats {
		playerStats[strconv.FormatInt(id, 10)] = *ps
	}

	wallets := make(map[string]int)
	for id, bal := range e.ledger.Balances() {
		wallets[strconv.FormatInt(id, 10)] = bal
	}

	return &Snapshot{
		Players:        players,
		CalledNumbers:  e.caller.Called(),
		GameActive:     e.active,
		CurrentGameID:  e.gameID,
		PotAmount:      e.pot,
		EntryFee:       e.entryFee,
		WinPattern:     string(e.pattern),
		GameStats:      e.stats,
		PlayerStats:    playerStats,
		AvailableCards: available,
		UserWallets:    wallets,
	}
}

// Restore loads a snapshot into the engine, filling defaults for fields a
// partial snapshot may lack: full card universe, empty stats, zero pot.
func (e *Engine) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.active = snap.GameActive
	e.pot = snap.PotAmount
	if snap.CurrentGameID > 0 {
		e.gameID = snap.CurrentGameID
	}
	if snap.EntryFee > 0 {
		e.entryFee = snap.EntryFee
	}
	if p := Pattern(snap.WinPattern); p.Valid() {
		e.pattern = p
	}
	e.stats = snap.GameStats

	// Seat in ascending user-id order so the settlement tie-break stays
	// the same across restarts; the snapshot does not record join order.
	ids := make([]int64, 0, len(snap.Players))
	byID := make(map[int64]PlayerSnapshot, len(snap.Players))
	for key, ps := range snap.Players {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warnf("snapshot: skipping player with bad id %q", key)
			continue
		}
		ids = append(ids, id)
		byID[id] = ps
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	e.players = make(map[int64]*Player, len(ids))
	for _, id := range ids {
		ps := byID[id]
		card := ps.Card
		if card == nil {
			generated, err := e.deck.Generate(ps.BoardNumber)
			if err != nil {
				logger.Warnf("snapshot: skipping player %d with bad board %d", id, ps.BoardNumber)
				continue
			}
			card = generated
		}
		marked := make(map[string]bool, len(ps.Marked))
		for _, tok := range ps.Marked {
			marked[tok] = true
		}
		e.joinSeq++
		e.players[id] = &Player{
			UserID:      id,
			Username:    ps.Username,
			BoardNumber: ps.BoardNumber,
			Card:        card,
			Marked:      marked,
			seq:         e.joinSeq,
		}
	}

	if snap.AvailableCards != nil {
		e.available = make(map[int]bool, len(snap.AvailableCards))
		for _, id := range snap.AvailableCards {
			e.available[id] = true
		}
	} else {
		e.available = fullCardSet()
		for _, p := range e.players {
			delete(e.available, p.BoardNumber)
		}
	}

	e.caller.Restore(snap.CalledNumbers)

	e.playerStats = make(map[int64]*PlayerStats, len(snap.PlayerStats))
	for key, ps := range snap.PlayerStats {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		stats := ps
		e.playerStats[id] = &stats
	}

	wallets := make(map[int64]int, len(snap.UserWallets))
	for key, bal := range snap.UserWallets {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		wallets[id] = bal
	}
	e.ledger.Restore(wallets)
}

// --- post-mutation plumbing ---

// broadcastLocked builds one message per current player.
func (e *Engine) broadcastLocked(text string) []outbound {
	msgs := make([]outbound, 0, len(e.players))
	for id := range e.players {
		msgs = append(msgs, outbound{id, text})
	}
	return msgs
}

// afterMutation runs outside the lock: checkpoint, state fan-out, and
// per-recipient notifications. None of it can fail the operation that
// triggered it.
func (e *Engine) afterMutation(snap *Snapshot, summary StateSummary, msgs []outbound) {
	e.snapshots.Save(snap)
	if e.onChange != nil {
		e.onChange(summary)
	}
	if e.notify == nil {
		return
	}
	for _, m := range msgs {
		if err := e.notify(m.userID, m.text); err != nil {
			logger.Warnf("notify user %d failed: %v", m.userID, err)
		}
	}
}

func (e *Engine) recordWallet(userID int64, amount int, txType string, balanceAfter int) {
	if e.history != nil {
		e.history.WalletChange(userID, amount, txType, balanceAfter)
	}
}
