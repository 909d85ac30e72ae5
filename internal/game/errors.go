package game

import "errors"

// Recoverable, user-visible failures. Operations wrap these with context;
// match them with errors.Is.
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientCargo     = errors.New("insufficient cargo")
	ErrInsufficientHoldSpace = errors.New("insufficient hold space")
	ErrInvalidLocation       = errors.New("operation not available at this port")
	ErrInvalidDestination    = errors.New("invalid destination")
	ErrGameOver              = errors.New("game already over")
	ErrInvalidSaveData       = errors.New("invalid save data")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrUnknownGood           = errors.New("unknown good")
)
