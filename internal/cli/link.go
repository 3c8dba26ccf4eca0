package cli

import (
	"errors"
	"regexp"
	"strings"
)

const gamePath = "/game/"

var (
	ErrEmptyRoomInput = errors.New("enter a game id or link")

	gameLinkPattern = regexp.MustCompile(`/game/([a-f0-9-]+)`)
)

// RoomLink is the shareable address of a room.
func RoomLink(origin, roomID string) string {
	return strings.TrimRight(origin, "/") + gamePath + roomID
}

// ParseRoomInput accepts a bare room id or any text containing a game link.
func ParseRoomInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyRoomInput
	}

	if match := gameLinkPattern.FindStringSubmatch(input); match != nil {
		return match[1], nil
	}

	return input, nil
}
