package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

// ActionRoomUpdate carries the full room record after every write.
const ActionRoomUpdate = "room:update"

type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRoomMessage wraps a room record in the wire envelope.
func NewRoomMessage(room *entity.Room) (*Message, error) {
	payload, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room: %w", err)
	}

	return &Message{Action: ActionRoomUpdate, Payload: payload}, nil
}

// DecodeRoom returns the room carried by a room:update message.
func (that *Message) DecodeRoom() (*entity.Room, error) {
	if that.Action != ActionRoomUpdate {
		return nil, fmt.Errorf("unexpected action %q", that.Action)
	}

	var room entity.Room
	if err := json.Unmarshal(that.Payload, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func sendRoom(conn *websocket.Conn, room *entity.Room) error {
	message, err := NewRoomMessage(room)
	if err != nil {
		return err
	}

	if err = conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
