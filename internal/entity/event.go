package entity

// Event is a meaningful change the presentation layer gives feedback for.
type Event string

const (
	EventMarkPlaced   Event = "mark_placed"
	EventMarkRemoved  Event = "mark_removed"
	EventWin          Event = "win"
	EventPlayerJoined Event = "player_joined"
	EventReset        Event = "reset"
	EventError        Event = "error"
)
