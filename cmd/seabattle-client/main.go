// Package main implements an interactive debugging client for the sea
// battle game server. It speaks the line-oriented JSON protocol directly
// and prints every server push as it arrives.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
)

// session holds connection state shared between the REPL and the reader
// goroutine that consumes server pushes.
type session struct {
	mu       sync.Mutex
	conn     net.Conn
	nickname string
	gameID   int64
	turn     string
}

func (s *session) send(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected, use 'connect'")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(raw, '\r', '\n'))
	return err
}

func main() {
	addr := flag.String("addr", "localhost:33333", "Server address")
	flag.Parse()

	s := &session{gameID: -1}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "seabattle> ",
		HistoryFile:     ".seabattle_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", colorRed, err.Error(), colorReset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sSea Battle Debug Client%s\n", colorCyan, colorReset)
	fmt.Printf("%sServer: %s%s\n", colorCyan, *addr, colorReset)
	fmt.Printf("Type 'help' for commands\n\n")

	if err := connect(s, *addr, rl); err != nil {
		fmt.Printf("%s%v%s (use 'connect' to retry)\n", colorYellow, err, colorReset)
	}

	for {
		rl.SetPrompt(buildPrompt(s))
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "x" {
			break
		}

		if err := execute(s, *addr, rl, line); err != nil {
			fmt.Printf("%s%v%s\n", colorRed, err, colorReset)
		}
	}
}

func buildPrompt(s *session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompt := "seabattle"
	if s.nickname != "" {
		prompt += fmt.Sprintf(" %s%s%s", colorMagenta, s.nickname, colorReset)
	}
	if s.gameID > 0 {
		prompt += fmt.Sprintf(" %s#%d%s", colorYellow, s.gameID, colorReset)
	}
	return prompt + "> "
}

func execute(s *session, addr string, rl *readline.Instance, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "h":
		printHelp()
		return nil
	case "connect":
		return connect(s, addr, rl)
	case "register":
		return doRegister(s, args, rl)
	case "login":
		return doLogin(s, args, rl)
	case "start":
		return doStart(s)
	case "place":
		return doPlace(s, args)
	case "auto":
		return doAutoPlace(s)
	case "ready":
		return doReady(s)
	case "fire":
		return doFire(s, args)
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  connect                     reconnect to the server
  register <nick> <email>     create an account (prompts for password)
  login <nick>                log in (prompts for password)
  start                       request a game
  place <x> <y> <size> <h|v>  place one ship
  auto                        place a full legal fleet
  ready                       declare the fleet complete
  fire <x> <y>                shoot at the opponent's board
  exit                        quit`)
}

func connect(s *session, addr string, rl *readline.Instance) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()
	fmt.Printf("%sConnected to %s%s\n", colorGreen, addr, colorReset)

	go readLoop(s, conn, rl)
	return nil
}

// readLoop prints every server line until the connection drops. Replies
// and pushes share one stream, so everything is shown as it arrives.
func readLoop(s *session, conn net.Conn, rl *readline.Instance) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal(line, &msg); err != nil {
			fmt.Fprintf(rl.Stdout(), "%s<< %s%s\n", colorYellow, line, colorReset)
			continue
		}
		s.absorb(msg)
		fmt.Fprintf(rl.Stdout(), "%s\n", render(msg))
	}
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	fmt.Fprintf(rl.Stdout(), "%sConnection closed%s\n", colorYellow, colorReset)
}

// absorb updates session state from server messages.
func (s *session) absorb(msg map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch msg["type"] {
	case "register", "login":
		if msg["status"] == "success" {
			if nick, ok := msg["nickname"].(string); ok {
				s.nickname = nick
			}
		}
	case "game_ready":
		if id, ok := msg["game_id"].(float64); ok {
			s.gameID = int64(id)
		}
	case "game_start", "make_move", "move_result":
		if turn, ok := msg["current_turn"].(string); ok {
			s.turn = turn
		}
	case "gameover":
		s.gameID = -1
		s.turn = ""
	}
}

func render(msg map[string]any) string {
	typ, _ := msg["type"].(string)
	status, _ := msg["status"].(string)
	text, _ := msg["message"].(string)

	color := colorCyan
	switch {
	case status == "error":
		color = colorRed
	case typ == "gameover":
		color = colorMagenta
	case typ == "make_move" || typ == "move_result":
		color = colorYellow
	case status == "success":
		color = colorGreen
	}

	out := fmt.Sprintf("%s<< [%s/%s] %s%s", color, typ, status, text, colorReset)
	if x, ok := msg["x"].(float64); ok {
		out += fmt.Sprintf(" at (%d,%d)", int(x), int(msg["y"].(float64)))
	}
	if turn, ok := msg["current_turn"].(string); ok {
		out += fmt.Sprintf(", next turn: %s", turn)
	}
	if opponent, ok := msg["opponent"].(string); ok {
		out += fmt.Sprintf(", opponent: %s", opponent)
	}
	return out
}

func promptPassword(rl *readline.Instance) (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		// Not a terminal (piped input), fall back to a plain line read.
		line, rerr := rl.Readline()
		if rerr != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
	return string(pwBytes), nil
}

func doRegister(s *session, args []string, rl *readline.Instance) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: register <nick> <email>")
	}
	password, err := promptPassword(rl)
	if err != nil {
		return err
	}
	return s.send(map[string]any{
		"type":     "register",
		"nickname": args[0],
		"email":    args[1],
		"password": password,
	})
}

func doLogin(s *session, args []string, rl *readline.Instance) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: login <nick>")
	}
	password, err := promptPassword(rl)
	if err != nil {
		return err
	}
	return s.send(map[string]any{
		"type":     "login",
		"nickname": args[0],
		"password": password,
	})
}

func (s *session) identity() (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nickname == "" {
		return "", 0, fmt.Errorf("not logged in")
	}
	return s.nickname, s.gameID, nil
}

func doStart(s *session) error {
	nickname, _, err := s.identity()
	if err != nil {
		return err
	}
	return s.send(map[string]any{"type": "start_game", "nickname": nickname})
}

func doPlace(s *session, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: place <x> <y> <size> <h|v>")
	}
	nickname, gameID, err := s.identity()
	if err != nil {
		return err
	}
	if gameID <= 0 {
		return fmt.Errorf("no active game, use 'start' first")
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad x: %q", args[0])
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad y: %q", args[1])
	}
	size, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("bad size: %q", args[2])
	}
	var horizontal bool
	switch args[3] {
	case "h":
		horizontal = true
	case "v":
		horizontal = false
	default:
		return fmt.Errorf("orientation must be h or v")
	}
	return s.send(map[string]any{
		"type":          "place_ship",
		"nickname":      nickname,
		"game_id":       gameID,
		"x":             x,
		"y":             y,
		"size":          size,
		"is_horizontal": horizontal,
	})
}

// autoFleet is a legal ten-ship layout with one-cell separation.
var autoFleet = [][4]int{
	// x, y, size, horizontal(1)/vertical(0)
	{0, 0, 4, 1},
	{5, 0, 3, 1},
	{0, 2, 3, 1},
	{4, 2, 2, 1},
	{7, 2, 2, 1},
	{0, 4, 2, 1},
	{3, 4, 1, 1},
	{5, 4, 1, 1},
	{7, 4, 1, 1},
	{9, 4, 1, 1},
}

func doAutoPlace(s *session) error {
	nickname, gameID, err := s.identity()
	if err != nil {
		return err
	}
	if gameID <= 0 {
		return fmt.Errorf("no active game, use 'start' first")
	}
	for _, ship := range autoFleet {
		err := s.send(map[string]any{
			"type":          "place_ship",
			"nickname":      nickname,
			"game_id":       gameID,
			"x":             ship[0],
			"y":             ship[1],
			"size":          ship[2],
			"is_horizontal": ship[3] == 1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func doReady(s *session) error {
	nickname, gameID, err := s.identity()
	if err != nil {
		return err
	}
	if gameID <= 0 {
		return fmt.Errorf("no active game, use 'start' first")
	}
	return s.send(map[string]any{
		"type":     "ready_to_battle",
		"nickname": nickname,
		"game_id":  gameID,
	})
}

func doFire(s *session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: fire <x> <y>")
	}
	nickname, gameID, err := s.identity()
	if err != nil {
		return err
	}
	if gameID <= 0 {
		return fmt.Errorf("no active game")
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad x: %q", args[0])
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad y: %q", args[1])
	}
	return s.send(map[string]any{
		"type":     "make_move",
		"nickname": nickname,
		"game_id":  gameID,
		"x":        x,
		"y":        y,
	})
}
