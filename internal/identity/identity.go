package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// PlayerIDKey is the local state key holding the client's identity.
const PlayerIDKey = "ttt-player-id"

// Provider issues a stable per-client player identifier persisted in a local state file.
// The identifier is an equality key only, it authenticates nothing.
type Provider struct {
	path     string
	mu       sync.Mutex
	cached   string
	generate func() string
}

func NewProvider(path string) *Provider {
	return &Provider{
		path:     path,
		generate: uuid.NewString,
	}
}

// DefaultPath returns the state file location under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}

	return filepath.Join(dir, "infinite-tictactoe", "state.yml"), nil
}

// GetOrCreateID returns the persisted identifier, creating and persisting one on first use.
func (that *Provider) GetOrCreateID() (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.cached != "" {
		return that.cached, nil
	}

	state, err := that.load()
	if err != nil {
		return "", err
	}

	if id := state[PlayerIDKey]; id != "" {
		that.cached = id
		return id, nil
	}

	id := that.generate()
	state[PlayerIDKey] = id

	if err = that.save(state); err != nil {
		return "", err
	}

	that.cached = id

	return id, nil
}

func (that *Provider) load() (map[string]string, error) {
	state := map[string]string{}

	data, err := os.ReadFile(that.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}

	if err = yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse local state: %w", err)
	}

	if state == nil {
		state = map[string]string{}
	}

	return state, nil
}

func (that *Provider) save(state map[string]string) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal local state: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(that.path), 0o700); err != nil {
		return fmt.Errorf("failed to create local state dir: %w", err)
	}

	if err = os.WriteFile(that.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write local state: %w", err)
	}

	return nil
}
