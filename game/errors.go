package game

import "errors"

// Rejection reasons returned by engine operations. All of them are recoverable:
// the transport layer turns them into a reply to the initiating user.
var (
	ErrUnauthorized      = errors.New("admin only")
	ErrInvalidState      = errors.New("invalid round state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidCardID     = errors.New("invalid card id")
	ErrCardTaken         = errors.New("card not available")
	ErrNoCardsAvailable  = errors.New("no cards available")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrSessionInvalid    = errors.New("session invalid or expired")
	ErrExhausted         = errors.New("all numbers called")
)
