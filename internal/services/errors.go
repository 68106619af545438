package services

import "errors"

var (
	ErrInsufficientFee       = errors.New("send more to enter raffle")
	ErrRoundNotOpen          = errors.New("raffle not open")
	ErrIndexOutOfRange       = errors.New("player index out of range")
	ErrRequestAlreadyPending = errors.New("randomness request already pending")
	ErrUnknownRequest        = errors.New("nonexistent request")
	ErrUpkeepNotNeeded       = errors.New("upkeep not needed")
	ErrPayoutFailed          = errors.New("transfer to winner failed")
	ErrNoRandomWords         = errors.New("fulfillment carries no random words")
)
