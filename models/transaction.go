package models

import "time"

type TransactionType string

const (
	StakeTransaction  TransactionType = "stake"
	PayoutTransaction TransactionType = "payout"
)

// Transaction records one wallet mutation: a stake deduction (negative
// amount) or a pot payout (positive amount).
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TelegramID   int64           `gorm:"index" json:"telegram_id"`
	Type         TransactionType `json:"type"`
	Amount       int             `json:"amount"`
	BalanceAfter int             `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
