package apperror

import "errors"

var (
	ErrNotFound        = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrGameFinished    = errors.New("game is already finished")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrInvalidPatch    = errors.New("invalid room patch")
	ErrVersionConflict = errors.New("room was changed by another writer")
	ErrRoomNotLoaded   = errors.New("room is not loaded")
	ErrGameNotStarted  = errors.New("game is not started")

	// ErrRemoteWrite is reported when the store rejects a create or update.
	ErrRemoteWrite = errors.New("remote write failed")
	// ErrNetwork is reported when the store could not be reached at all.
	ErrNetwork = errors.New("network failure")
)
