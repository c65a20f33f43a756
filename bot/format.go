package bot

import (
	"errors"
	"fmt"

	"github.com/geezlabs/geez-bingo/game"
)

func welcomeText(name string, wallet int, sum game.StateSummary) string {
	status := "🔴 INACTIVE"
	if sum.Status == game.StateRunning {
		status = "🟢 ACTIVE"
	}
	return fmt.Sprintf(
		"🎯 Welcome to Geez Bingo, %s!\n\n"+
			"💰 Wallet: %d coins\n"+
			"🎫 Available Cards: %d\n"+
			"🏆 Current Pot: %d coins\n\n"+
			"Game Status: %s",
		name, wallet, sum.CardsLeft, sum.Pot, status)
}

func joinText(username string, res *game.JoinResult) string {
	return fmt.Sprintf(
		"✅ %s joined!\n\n"+
			"💰 Paid: %d coins\n"+
			"🎫 Card: #%d\n"+
			"🏆 Pot: %d coins\n\n"+
			"%s\n\n"+
			"Players: %d",
		username, res.Paid, res.BoardNumber, res.Pot,
		game.FormatCard(res.Card, nil), res.PlayerCount)
}

func callText(res *game.CallResult) string {
	text := fmt.Sprintf(
		"🎱 Game %d | Players %d | Call %d\n\n"+
			"Current Call: %s",
		res.GameID, res.PlayerCount, res.CallCount, res.Token)
	if len(res.Winners) > 0 {
		text += fmt.Sprintf("\n\n🎉 BINGO! %d winner(s), pot %d coins.", len(res.Winners), res.Pot)
	}
	return text
}

func statsText(stats game.LifetimeStats) string {
	return fmt.Sprintf(
		"📊 Statistics\n\n"+
			"Games: %d\n"+
			"Players: %d\n"+
			"Total Pot: %d coins",
		stats.TotalGames, stats.TotalPlayers, stats.TotalPot)
}

func walletText(balance int, stats game.PlayerStats) string {
	return fmt.Sprintf(
		"💰 Wallet: %d coins\n\n"+
			"Games played: %d\n"+
			"Games won: %d\n"+
			"Total winnings: %d coins",
		balance, stats.GamesPlayed, stats.GamesWon, stats.TotalWinnings)
}

// rejectionText turns an engine rejection into a user-facing message.
func rejectionText(err error) string {
	switch {
	case errors.Is(err, game.ErrUnauthorized):
		return "❌ Admin only!"
	case errors.Is(err, game.ErrAlreadyJoined):
		return "✅ You're already in the game!"
	case errors.Is(err, game.ErrInsufficientFunds):
		return fmt.Sprintf("❌ Not enough coins: %v.", err)
	case errors.Is(err, game.ErrNoCardsAvailable):
		return "❌ No cards available!"
	case errors.Is(err, game.ErrCardTaken), errors.Is(err, game.ErrInvalidCardID):
		return fmt.Sprintf("❌ %v.", err)
	case errors.Is(err, game.ErrInvalidState):
		return fmt.Sprintf("❌ %v.", err)
	case errors.Is(err, game.ErrSessionInvalid):
		return "❌ Your card selector session expired. Open it again from /start."
	default:
		return fmt.Sprintf("❌ %v", err)
	}
}
