package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const maxBodyBytes = 16 << 10

type roomService interface {
	CreateRoom(ctx context.Context, hostID string) (*entity.Room, error)
	GetRoom(ctx context.Context, id string) (*entity.Room, error)
	UpdateRoom(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error)
}

type CreateRoomRequest struct {
	PlayerXID string `json:"player_x_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomHandlers struct {
	logger      *slog.Logger
	roomService roomService
}

func NewRoomHandlers(logger *slog.Logger, roomService roomService) *RoomHandlers {
	return &RoomHandlers{
		logger:      logger.With("component", "rest"),
		roomService: roomService,
	}
}

// CreateRoom - POST /rooms.
func (that *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		that.writeError(w, "CreateRoom", err)
		return
	}

	room, err := that.roomService.CreateRoom(r.Context(), req.PlayerXID)
	if err != nil {
		that.writeError(w, "CreateRoom", err)
		return
	}

	that.writeJSON(w, http.StatusCreated, room)
}

// GetRoom - GET /rooms/{id}.
func (that *RoomHandlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := that.roomService.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, "GetRoom", err)
		return
	}

	that.writeJSON(w, http.StatusOK, room)
}

// UpdateRoom - PATCH /rooms/{id}. Only the fields present in the body are written.
func (that *RoomHandlers) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var patch entity.RoomPatch
	if err := decodeBody(w, r, &patch); err != nil {
		that.writeError(w, "UpdateRoom", err)
		return
	}

	room, err := that.roomService.UpdateRoom(r.Context(), chi.URLParam(r, "id"), &patch)
	if err != nil {
		that.writeError(w, "UpdateRoom", err)
		return
	}

	that.writeJSON(w, http.StatusOK, room)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errors.Join(apperror.ErrInvalidPatch, err)
	}

	return nil
}

// StatusCode maps domain errors to HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidPatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (that *RoomHandlers) writeError(w http.ResponseWriter, method string, err error) {
	status := StatusCode(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		message = http.StatusText(status)
	}

	that.writeJSON(w, status, ErrorResponse{Error: message})
}

func (that *RoomHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
