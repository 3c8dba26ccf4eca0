package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/transport/rest"
	wsproto "github.com/rocketscienceinc/infinite-tictactoe/transport/websocket"
)

const (
	requestTimeout = 10 * time.Second
	pushBuffer     = 16
)

// Client talks to the room server over HTTP and watches rooms over a websocket.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	clock      clockwork.Clock
	retryDelay time.Duration
}

func New(logger *slog.Logger, baseURL string, retryDelay time.Duration, clock clockwork.Clock) *Client {
	return &Client{
		logger:     logger.With("component", "room-client"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		dialer:     websocket.DefaultDialer,
		clock:      clock,
		retryDelay: retryDelay,
	}
}

// CreateRoom inserts a room hosted by playerID. A failed attempt is retried once after
// the retry delay.
func (that *Client) CreateRoom(ctx context.Context, playerID string) (*entity.Room, error) {
	log := that.logger.With("method", "CreateRoom")

	room, err := that.createRoom(ctx, playerID)
	if err == nil {
		return room, nil
	}

	log.Warn("create failed, retrying", "error", err, "delay", that.retryDelay)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-that.clock.After(that.retryDelay):
	}

	return that.createRoom(ctx, playerID)
}

func (that *Client) createRoom(ctx context.Context, playerID string) (*entity.Room, error) {
	var room entity.Room
	if err := that.do(ctx, http.MethodPost, "/rooms", rest.CreateRoomRequest{PlayerXID: playerID}, &room); err != nil {
		return nil, err
	}

	return &room, nil
}

func (that *Client) FetchRoom(ctx context.Context, id string) (*entity.Room, error) {
	var room entity.Room
	if err := that.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(id), nil, &room); err != nil {
		return nil, err
	}

	return &room, nil
}

// UpdateRoom writes the patched fields and returns the stored record.
func (that *Client) UpdateRoom(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error) {
	var room entity.Room
	if err := that.do(ctx, http.MethodPatch, "/rooms/"+url.PathEscape(id), patch, &room); err != nil {
		return nil, err
	}

	return &room, nil
}

// Subscribe streams every new version of the room until ctx ends or the connection
// drops; the channel is closed then.
func (that *Client) Subscribe(ctx context.Context, id string) (<-chan *entity.Room, error) {
	log := that.logger.With("method", "Subscribe", "roomID", id)

	wsURL, err := that.watchURL(id)
	if err != nil {
		return nil, err
	}

	conn, resp, err := that.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("%w: dial room feed: %v", apperror.ErrNetwork, err)
	}

	updates := make(chan *entity.Room, pushBuffer)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(updates)

		for {
			var message wsproto.Message
			if err := conn.ReadJSON(&message); err != nil {
				if ctx.Err() == nil {
					log.Warn("room feed closed", "error", err)
				}
				return
			}

			room, err := message.DecodeRoom()
			if err != nil {
				log.Error("bad room feed message", "error", err)
				continue
			}

			select {
			case updates <- room:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}

func (that *Client) watchURL(id string) (string, error) {
	u, err := url.Parse(that.baseURL + "/rooms/" + url.PathEscape(id) + "/ws")
	if err != nil {
		return "", fmt.Errorf("bad server url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	return u.String(), nil
}

func (that *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, that.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := that.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response body: %v", apperror.ErrRemoteWrite, err)
	}

	return nil
}

// statusError maps a failed response back onto the shared sentinels.
func statusError(resp *http.Response) error {
	var body rest.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	message := body.Error
	if message == "" {
		message = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", apperror.ErrVersionConflict, message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %w: %s", apperror.ErrRemoteWrite, apperror.ErrInvalidPatch, message)
	default:
		return fmt.Errorf("%w: %s", apperror.ErrRemoteWrite, message)
	}
}

// IsNetworkError reports whether err never reached the store.
func IsNetworkError(err error) bool {
	return errors.Is(err, apperror.ErrNetwork)
}
