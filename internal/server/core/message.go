package core

// Wire message types. The protocol is one compact JSON object per line,
// CRLF-terminated, matching what the reference clients expect.

// Request type values
const (
	TypeRegister      = "register"
	TypeLogin         = "login"
	TypeStartGame     = "start_game"
	TypePlaceShip     = "place_ship"
	TypeReadyToBattle = "ready_to_battle"
	TypeMakeMove      = "make_move"
)

// Push/response type values
const (
	TypeError      = "error"
	TypeGameReady  = "game_ready"
	TypeGameStart  = "game_start"
	TypeMoveResult = "move_result"
	TypeGameOver   = "gameover"
)

// Status values
const (
	StatusSuccess      = "success"
	StatusError        = "error"
	StatusWaiting      = "waiting"
	StatusVictory      = "victory"
	StatusDefeat       = "defeat"
	StatusDisconnected = "opponent_disconnected"
)

// Envelope carries only the routing field; the dispatcher decodes it first
// to pick the request struct.
type Envelope struct {
	Type string `json:"type"`
}

type RegisterRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=40"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

type LoginRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=40"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

type StartGameRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=40"`
}

// PlaceShipRequest uses pointer fields for coordinates and orientation so
// that 0 and false survive the required check.
type PlaceShipRequest struct {
	Nickname     string `json:"nickname" validate:"required,min=1,max=40"`
	GameID       int64  `json:"game_id" validate:"required,min=1"`
	X            *int   `json:"x" validate:"required,min=0,max=9"`
	Y            *int   `json:"y" validate:"required,min=0,max=9"`
	Size         int    `json:"size" validate:"required,min=1,max=4"`
	IsHorizontal *bool  `json:"is_horizontal" validate:"required"`
}

type ReadyRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=40"`
	GameID   int64  `json:"game_id" validate:"required,min=1"`
}

type MakeMoveRequest struct {
	Nickname string `json:"nickname" validate:"required,min=1,max=40"`
	GameID   int64  `json:"game_id" validate:"required,min=1"`
	X        *int   `json:"x" validate:"required,min=0,max=9"`
	Y        *int   `json:"y" validate:"required,min=0,max=9"`
}

// BasicResponse is the {type,status,message} reply shape shared by most
// request types. Nickname is echoed on successful register/login.
type BasicResponse struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Nickname string `json:"nickname,omitempty"`
}

// GameReadyNotice is pushed to both players once a pair is formed.
type GameReadyNotice struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	GameID   int64  `json:"game_id"`
	Opponent string `json:"opponent"`
}

// GameStartNotice is pushed to both players once both confirmed readiness.
type GameStartNotice struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	CurrentTurn string `json:"current_turn"`
}

// MoveReply acknowledges a resolved shot to the shooter (type=make_move)
// or notifies the opponent (type=move_result).
type MoveReply struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	CurrentTurn string `json:"current_turn"`
}

// GameOverNotice signals a terminal condition: a fully sunk fleet or an
// opponent disconnect.
type GameOverNotice struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewErrorResponse builds the generic error reply. typ is the request type
// when known, "error" for protocol-level failures.
func NewErrorResponse(typ, message string) BasicResponse {
	return BasicResponse{Type: typ, Status: StatusError, Message: message}
}
