package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/cli"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/client"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/config"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/identity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/logging"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/session"
)

var (
	configFlag  = flag.String("config", "client.yml", "client config file")
	joinFlag    = flag.String("join", "", "game id or link to open directly")
	noColorFlag = flag.Bool("no-color", false, "disable ANSI colors")
)

func main() {
	flag.Parse()

	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.LoadClient(*configFlag)
	if err != nil {
		return err
	}

	logger, closeLog, err := initLogger(conf)
	if err != nil {
		return err
	}
	defer closeLog()

	identityPath := conf.IdentityFile
	if identityPath == "" {
		if identityPath, err = identity.DefaultPath(); err != nil {
			return err
		}
	}

	playerID, err := identity.NewProvider(identityPath).GetOrCreateID()
	if err != nil {
		return fmt.Errorf("failed to load player identity: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clock := clockwork.NewRealClock()
	roomClient := client.New(logger, conf.ServerURL, conf.RetryDelay, clock)
	notifier := cli.NewNotifier(os.Stdout, true)
	input := readLines(os.Stdin)

	roomID, err := home(ctx, roomClient, playerID, notifier, input)
	if err != nil {
		return err
	}

	controller := session.New(logger, playerID, roomClient, notifier, clock, conf.PollInterval)
	defer controller.Close()

	if err = controller.Open(ctx, roomID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return errors.New("room not found")
		}
		return err
	}

	return play(ctx, controller, conf.PublicOrigin, input)
}

// home resolves the room to open: the -join flag, a pasted id or link, or a new game.
func home(ctx context.Context, roomClient *client.Client, playerID string, notifier *cli.Notifier, input <-chan string) (string, error) {
	if *joinFlag != "" {
		return cli.ParseRoomInput(*joinFlag)
	}

	for {
		fmt.Print("Infinite Tic-Tac-Toe\n[c] create game, or paste a game id / link: ")

		var line string
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case next, ok := <-input:
			if !ok {
				return "", io.EOF
			}
			line = strings.TrimSpace(next)
		}

		if strings.EqualFold(line, "c") {
			roomID, err := session.CreateGame(ctx, roomClient, playerID, notifier)
			if err != nil {
				continue
			}
			return roomID, nil
		}

		roomID, err := cli.ParseRoomInput(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		return roomID, nil
	}
}

func play(ctx context.Context, controller *session.Controller, origin string, input <-chan string) error {
	view := cli.View{PlayerID: controller.PlayerID(), Origin: origin, Color: !*noColorFlag}

	autoJoin(ctx, controller)

	for {
		select {
		case <-ctx.Done():
			return nil
		case room := <-controller.Updates():
			view.Room = room
			fmt.Print("\033[H\033[2J")
			if err := cli.Render(os.Stdout, view); err != nil {
				return err
			}
			fmt.Print("[1-9] move  [r] reset  [q] quit > ")
		case line, ok := <-input:
			if !ok {
				return nil
			}
			if quit := handleInput(ctx, controller, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// autoJoin takes the free slot for visitors of a waiting room.
func autoJoin(ctx context.Context, controller *session.Controller) {
	room := controller.Snapshot()
	if room == nil || !room.IsWaiting() || room.PlayerXID == controller.PlayerID() {
		return
	}

	_ = controller.Join(ctx)
}

func handleInput(ctx context.Context, controller *session.Controller, line string) bool {
	switch strings.ToLower(line) {
	case "q":
		return true
	case "r":
		_ = controller.Reset(ctx)
		return false
	case "":
		return false
	}

	cell, err := strconv.Atoi(line)
	if err != nil || cell < 1 || cell > entity.BoardSize {
		fmt.Println("pick a cell from 1 to 9")
		return false
	}

	switch err = controller.Move(ctx, cell-1); {
	case errors.Is(err, apperror.ErrNotYourTurn):
		fmt.Println("not your turn")
	case errors.Is(err, apperror.ErrCellOccupied):
		fmt.Println("cell is taken")
	case errors.Is(err, apperror.ErrGameFinished):
		fmt.Println("game over, press r to play again")
	case errors.Is(err, apperror.ErrGameNotStarted):
		fmt.Println("waiting for opponent")
	}

	return false
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return lines
}

// initLogger keeps stdout for the board: logs go to a file or nowhere.
func initLogger(conf *config.ClientConfig) (*slog.Logger, func(), error) {
	if conf.LogFile == "" {
		return logging.New(io.Discard, conf.LogLevel), func() {}, nil
	}

	file, err := os.OpenFile(conf.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return logging.New(file, conf.LogLevel), func() { _ = file.Close() }, nil
}
