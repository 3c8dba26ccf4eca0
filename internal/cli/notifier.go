package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const bell = "\a"

var cues = map[entity.Event]string{
	entity.EventMarkPlaced:   "",
	entity.EventMarkRemoved:  "oldest mark removed",
	entity.EventWin:          "game over",
	entity.EventPlayerJoined: "opponent joined",
	entity.EventReset:        "new game",
	entity.EventError:        "",
}

// Notifier prints a short cue for every session event and alert. The terminal bell
// stands in for sounds.
type Notifier struct {
	mu    sync.Mutex
	w     io.Writer
	sound bool
}

func NewNotifier(w io.Writer, sound bool) *Notifier {
	return &Notifier{w: w, sound: sound}
}

func (that *Notifier) Notify(event entity.Event) {
	cue, known := cues[event]
	if !known {
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.sound {
		_, _ = io.WriteString(that.w, bell)
	}
	if cue != "" {
		_, _ = fmt.Fprintf(that.w, "* %s\n", cue)
	}
}

func (that *Notifier) Alert(title, description string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if description == "" {
		_, _ = fmt.Fprintf(that.w, "! %s\n", title)
		return
	}
	_, _ = fmt.Fprintf(that.w, "! %s %s\n", title, description)
}
