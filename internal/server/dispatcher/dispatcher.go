// Package dispatcher decodes wire requests, validates payloads and routes
// them to the service layer. Replies are returned to the transport; pushes
// to the other player go through the session registry.
package dispatcher

import (
	"encoding/json"
	"errors"
	"log"
	"net"

	"github.com/go-playground/validator/v10"

	"seabattle/internal/server/core"
	"seabattle/internal/server/service"
	"seabattle/internal/server/session"
	"seabattle/internal/server/storage"
)

type Dispatcher struct {
	svc      *service.Service
	registry *session.Registry
	validate *validator.Validate
}

func New(svc *service.Service, registry *session.Registry) *Dispatcher {
	return &Dispatcher{
		svc:      svc,
		registry: registry,
		validate: validator.New(),
	}
}

// HandleLine processes one request line from conn and returns the reply
// to send back, or nil when the handler already delivered it. Pushes to
// the opponent happen on the side.
func (d *Dispatcher) HandleLine(conn net.Conn, line []byte) any {
	var env core.Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		log.Printf("Failed to parse request: %v", err)
		return core.NewErrorResponse(core.TypeError, "Invalid JSON format")
	}
	if env.Type == "" {
		log.Printf("Missing type field, input: %s", line)
		return core.NewErrorResponse(core.TypeError, "Missing type field")
	}

	switch env.Type {
	case core.TypeRegister:
		return d.handleRegister(conn, line)
	case core.TypeLogin:
		return d.handleLogin(conn, line)
	case core.TypeStartGame:
		return d.handleStartGame(line)
	case core.TypePlaceShip:
		return d.handlePlaceShip(line)
	case core.TypeReadyToBattle:
		return d.handleReady(line)
	case core.TypeMakeMove:
		return d.handleMakeMove(line)
	default:
		log.Printf("Unknown command type: %s", env.Type)
		return core.NewErrorResponse(core.TypeError, "Unknown command")
	}
}

func (d *Dispatcher) handleRegister(conn net.Conn, line []byte) any {
	var req core.RegisterRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return core.NewErrorResponse(core.TypeRegister, "Invalid JSON format")
	}
	if err := d.validate.Struct(req); err != nil {
		return core.NewErrorResponse(core.TypeRegister, "Invalid registration data")
	}

	if _, err := d.svc.RegisterUser(req.Nickname, req.Email, req.Password); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return core.NewErrorResponse(core.TypeRegister, "User already exists")
		}
		log.Printf("Registration failed for %s: %v", req.Nickname, err)
		return core.NewErrorResponse(core.TypeRegister, "Registration failed")
	}

	d.registry.RegisterClient(req.Nickname, conn)
	return core.BasicResponse{
		Type:     core.TypeRegister,
		Status:   core.StatusSuccess,
		Message:  "User registered successfully",
		Nickname: req.Nickname,
	}
}

func (d *Dispatcher) handleLogin(conn net.Conn, line []byte) any {
	var req core.LoginRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return core.NewErrorResponse(core.TypeLogin, "Invalid JSON format")
	}
	if err := d.validate.Struct(req); err != nil {
		return core.NewErrorResponse(core.TypeLogin, "Invalid login data")
	}

	if _, err := d.svc.Authenticate(req.Nickname, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return core.NewErrorResponse(core.TypeLogin, "Invalid nickname or password")
		}
		log.Printf("Login failed for %s: %v", req.Nickname, err)
		return core.NewErrorResponse(core.TypeLogin, "Database query failed")
	}
	if err := d.svc.UpdateLastLogin(req.Nickname); err != nil {
		log.Printf("%v", err)
	}

	d.registry.RegisterClient(req.Nickname, conn)
	return core.BasicResponse{
		Type:     core.TypeLogin,
		Status:   core.StatusSuccess,
		Message:  "Login successful",
		Nickname: req.Nickname,
	}
}

func (d *Dispatcher) handleStartGame(line []byte) any {
	var req core.StartGameRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return core.NewErrorResponse(core.TypeStartGame, "Invalid JSON format")
	}
	if err := d.validate.Struct(req); err != nil {
		return core.NewErrorResponse(core.TypeStartGame, "Missing nickname")
	}

	count := d.registry.AddPlayerToGame(req.Nickname)
	if count == session.MaxPlayers {
		opponent := d.registry.GetOpponent(req.Nickname)
		gameID, err := d.svc.CreateGame(req.Nickname, opponent)
		if err != nil {
			log.Printf("Failed to create game for %s vs %s: %v", req.Nickname, opponent, err)
			return core.NewErrorResponse(core.TypeStartGame, "Failed to create game")
		}
		d.registry.SetGameID(gameID)
		log.Printf("Game %d created: %s vs %s", gameID, req.Nickname, opponent)

		notice := core.GameReadyNotice{
			Type:     core.TypeGameReady,
			Status:   core.StatusSuccess,
			Message:  "Please place your ships and confirm readiness",
			GameID:   gameID,
			Opponent: opponent,
		}
		d.registry.SendToUser(req.Nickname, notice)
		notice.Opponent = req.Nickname
		d.registry.SendToUser(opponent, notice)
	}

	return core.BasicResponse{
		Type:    core.TypeStartGame,
		Status:  core.StatusWaiting,
		Message: "Waiting for opponent",
	}
}

func (d *Dispatcher) handlePlaceShip(line []byte) any {
	var req core.PlaceShipRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return core.NewErrorResponse(core.TypePlaceShip, "Invalid JSON format")
	}
	if msg := d.requiredFieldError(req, "Invalid ship coordinates or size"); msg != "" {
		return core.NewErrorResponse(core.TypePlaceShip, msg)
	}

	err := d.svc.PlaceShip(req.GameID, req.Nickname, *req.X, *req.Y, req.Size, *req.IsHorizontal)
	switch {
	case err == nil:
		return core.BasicResponse{
			Type:    core.TypePlaceShip,
			Status:  core.StatusSuccess,
			Message: "Ship placed successfully",
		}
	case errors.Is(err, service.ErrInvalidShip),
		errors.Is(err, service.ErrShipHorizontalOOB),
		errors.Is(err, service.ErrShipVerticalOOB):
		return core.NewErrorResponse(core.TypePlaceShip, err.Error())
	default:
		log.Printf("Failed to place ship for %s in game %d: %v", req.Nickname, req.GameID, err)
		return core.NewErrorResponse(core.TypePlaceShip, "Failed to place ship")
	}
}

func (d *Dispatcher) handleReady(line []byte) any {
	var req core.ReadyRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return core.NewErrorResponse(core.TypeReadyToBattle, "Invalid JSON format")
	}
	if err := d.validate.Struct(req); err != nil {
		return core.NewErrorResponse(core.TypeReadyToBattle, "Missing required fields")
	}
	if !d.registry.IsRegistered(req.Nickname) || !d.registry.IsQueued(req.Nickname) {
		return core.NewErrorResponse(core.TypeError, "Player not registered")
	}

	if err := d.svc.ReadyToBattle(req.GameID, req.Nickname); err != nil {
		return core.NewErrorResponse(core.TypeReadyToBattle, err.Error())
	}

	if d.registry.MarkReady(req.Nickname) {
		d.startBattle()
	}
	return core.BasicResponse{
		Type:    core.TypeReadyToBattle,
		Status:  core.StatusSuccess,
		Message: "Ready status received",
	}
}

// startBattle hands the first turn to the first queued player and pushes
// game_start to both.
func (d *Dispatcher) startBattle() {
	gameID := d.registry.GameID()
	first := d.registry.FirstPlayer()
	if err := d.svc.SetTurn(gameID, first); err != nil {
		log.Printf("Failed to set opening turn for game %d: %v", gameID, err)
		return
	}
	log.Printf("Both players ready, starting game %d, first turn: %s", gameID, first)

	notice := core.GameStartNotice{
		Type:        core.TypeGameStart,
		Status:      core.StatusSuccess,
		Message:     "Game started",
		CurrentTurn: first,
	}
	d.registry.SendToUser(first, notice)
	if opponent := d.registry.GetOpponent(first); opponent != "" {
		d.registry.SendToUser(opponent, notice)
	}
}

func (d *Dispatcher) handleMakeMove(line []byte) any {
	var req core.MakeMoveRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return core.NewErrorResponse(core.TypeMakeMove, "Invalid JSON format")
	}
	if msg := d.requiredFieldError(req, "Invalid move coordinates"); msg != "" {
		return core.NewErrorResponse(core.TypeMakeMove, msg)
	}
	if req.GameID != d.registry.GameID() {
		return core.NewErrorResponse(core.TypeMakeMove, "Invalid game ID")
	}

	out, err := d.svc.ResolveMove(req.GameID, req.Nickname, *req.X, *req.Y)
	if err != nil {
		if errors.Is(err, service.ErrNotYourTurn) {
			return core.NewErrorResponse(core.TypeMakeMove, err.Error())
		}
		log.Printf("Failed to process move for %s in game %d: %v", req.Nickname, req.GameID, err)
		return core.NewErrorResponse(core.TypeMakeMove, "Failed to process move")
	}
	if out.Result == core.ShotAlreadyShot {
		return core.NewErrorResponse(core.TypeMakeMove, "Cell already shot")
	}

	d.registry.SendToUser(out.Opponent, core.MoveReply{
		Type:        core.TypeMoveResult,
		Status:      string(out.Result),
		Message:     opponentMoveMessage(out.Result),
		X:           *req.X,
		Y:           *req.Y,
		CurrentTurn: out.NextTurn,
	})

	reply := core.MoveReply{
		Type:        core.TypeMakeMove,
		Status:      string(out.Result),
		Message:     shooterMoveMessage(out.Result),
		X:           *req.X,
		Y:           *req.Y,
		CurrentTurn: out.NextTurn,
	}
	if out.GameOver {
		// The shooter must see the move ack before the gameover push.
		d.registry.SendToUser(req.Nickname, reply)
		d.finishGame(out.Winner, out.Opponent)
		return nil
	}
	return reply
}

// finishGame pushes the terminal notices and frees the game slot.
func (d *Dispatcher) finishGame(winner, loser string) {
	log.Printf("Game over: %s defeated %s", winner, loser)
	d.registry.SendToUser(winner, core.GameOverNotice{
		Type:    core.TypeGameOver,
		Status:  core.StatusVictory,
		Message: "All enemy ships sunk",
	})
	d.registry.SendToUser(loser, core.GameOverNotice{
		Type:    core.TypeGameOver,
		Status:  core.StatusDefeat,
		Message: "All your ships sunk",
	})
	d.registry.ResetGame()
}

// requiredFieldError maps validation failures to the wire message for
// the field that failed. Only `required` violations short-circuit here;
// range violations return rangeMsg so the caller can name them.
func (d *Dispatcher) requiredFieldError(req any, rangeMsg string) string {
	err := d.validate.Struct(req)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Missing required fields"
	}
	for _, ve := range verrs {
		if ve.Tag() != "required" {
			continue
		}
		switch ve.Field() {
		case "Nickname":
			return "Invalid nickname"
		case "GameID":
			return "Invalid game ID"
		default:
			return "Missing required fields"
		}
	}
	return rangeMsg
}

func shooterMoveMessage(result core.ShotResult) string {
	switch result {
	case core.ShotSunk:
		return "Ship sunk!"
	case core.ShotHit:
		return "Hit!"
	default:
		return "Miss!"
	}
}

func opponentMoveMessage(result core.ShotResult) string {
	switch result {
	case core.ShotSunk:
		return "Your ship was sunk!"
	case core.ShotHit:
		return "Your ship was hit!"
	default:
		return "Opponent missed!"
	}
}
