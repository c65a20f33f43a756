package game

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/geezlabs/geez-bingo/utils/logger"
)

// PlayerSnapshot is one player entry as persisted to disk.
type PlayerSnapshot struct {
	Username    string   `json:"username"`
	BoardNumber int      `json:"board_number"`
	Card        *Card    `json:"card"`
	Marked      []string `json:"marked"`
}

// LifetimeStats accumulates across rounds and survives resets.
type LifetimeStats struct {
	TotalGames   int `json:"total_games"`
	TotalPlayers int `json:"total_players"`
	TotalPot     int `json:"total_pot"`
}

// PlayerStats accumulates per player across rounds.
type PlayerStats struct {
	GamesPlayed   int `json:"games_played"`
	GamesWon      int `json:"games_won"`
	TotalWinnings int `json:"total_winnings"`
}

// Snapshot is the serialized engine + ledger state. Sets (marked tokens,
// called tokens, available card ids) are stored as ordered lists. Map keys
// are strings because of JSON.
type Snapshot struct {
	Players        map[string]PlayerSnapshot `json:"players"`
	CalledNumbers  []string                  `json:"called_numbers"`
	GameActive     bool                      `json:"game_active"`
	CurrentGameID  int                       `json:"current_game_id"`
	PotAmount      int                       `json:"pot_amount"`
	EntryFee       int                       `json:"entry_fee"`
	WinPattern     string                    `json:"win_pattern"`
	GameStats      LifetimeStats             `json:"game_stats"`
	PlayerStats    map[string]PlayerStats    `json:"player_stats"`
	AvailableCards []int                     `json:"available_cards"`
	UserWallets    map[string]int            `json:"user_wallets"`
}

// SnapshotStore checkpoints engine state to a JSON file after each mutating
// operation. It is a best-effort convenience for process restarts, not a
// durable store: a crash loses everything since the last mutation.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Save writes the snapshot. Failures are logged and swallowed so the round
// keeps operating from memory.
func (s *SnapshotStore) Save(snap *Snapshot) {
	if s == nil || s.path == "" {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Errorf("snapshot marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		logger.Errorf("snapshot write to %s failed: %v", s.path, err)
	}
}

// Load reads the previous snapshot. A missing file returns (nil, nil); the
// engine then starts from defaults. Partial snapshots are returned as-is and
// the engine fills in defaults for absent fields.
func (s *SnapshotStore) Load() (*Snapshot, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
