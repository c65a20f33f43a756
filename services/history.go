package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/geezlabs/geez-bingo/game"
	"github.com/geezlabs/geez-bingo/models"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

// HistoryService persists round and wallet events to Postgres. Every method
// is best-effort: recording failures are logged and never surface to the
// engine, which keeps running from memory.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

var _ game.HistoryRecorder = (*HistoryService)(nil)

func (s *HistoryService) RoundStarted(gameID, stake, players int) {
	round := models.Round{
		RoundRef:    uuid.NewString(),
		GameID:      gameID,
		Stake:       stake,
		Players:     players,
		Status:      "in_progress",
		NumbersJSON: datatypes.JSON([]byte("[]")),
		StartTime:   time.Now(),
	}
	if err := s.db.Create(&round).Error; err != nil {
		logger.Errorf("history: create round %d failed: %v", gameID, err)
	}
}

func (s *HistoryService) NumberCalled(gameID int, token string, drawn []string) {
	data, err := json.Marshal(drawn)
	if err != nil {
		logger.Errorf("history: marshal drawn numbers for round %d failed: %v", gameID, err)
		return
	}
	err = s.db.Model(&models.Round{}).
		Where("game_id = ? AND status = ?", gameID, "in_progress").
		Update("numbers_json", datatypes.JSON(data)).Error
	if err != nil {
		logger.Errorf("history: record call %s for round %d failed: %v", token, gameID, err)
	}
}

type winnerRecord struct {
	TelegramID  int64  `json:"telegram_id"`
	Username    string `json:"username"`
	BoardNumber int    `json:"board_number"`
	Amount      int    `json:"amount"`
}

func (s *HistoryService) RoundFinished(gameID int, winners []game.Winner, pot int) {
	records := make([]winnerRecord, 0, len(winners))
	for _, w := range winners {
		records = append(records, winnerRecord{
			TelegramID:  w.UserID,
			Username:    w.Username,
			BoardNumber: w.BoardNumber,
			Amount:      w.Amount,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		logger.Errorf("history: marshal winners for round %d failed: %v", gameID, err)
		return
	}
	err = s.db.Model(&models.Round{}).
		Where("game_id = ? AND status = ?", gameID, "in_progress").
		Updates(map[string]interface{}{
			"status":       "finished",
			"pot":          pot,
			"winners_json": datatypes.JSON(data),
			"end_time":     time.Now(),
		}).Error
	if err != nil {
		logger.Errorf("history: finish round %d failed: %v", gameID, err)
	}
}

func (s *HistoryService) WalletChange(userID int64, amount int, txType string, balanceAfter int) {
	tx := models.Transaction{
		TelegramID:   userID,
		Type:         models.TransactionType(txType),
		Amount:       amount,
		BalanceAfter: balanceAfter,
	}
	if err := s.db.Create(&tx).Error; err != nil {
		logger.Errorf("history: record %s of %d for user %d failed: %v", txType, amount, userID, err)
	}
}
