package models

import (
	"time"

	"gorm.io/datatypes"
)

// Round is the durable record of one played round.
type Round struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RoundRef    string `gorm:"uniqueIndex" json:"round_ref"`
	GameID      int    `gorm:"index" json:"game_id"`
	Stake       int    `json:"stake"`
	Players     int    `json:"players"`
	Status      string `json:"status"` // in_progress | finished
	Pot         int    `json:"pot"`
	NumbersJSON datatypes.JSON `json:"numbers_drawn"`
	WinnersJSON datatypes.JSON `json:"winners"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
