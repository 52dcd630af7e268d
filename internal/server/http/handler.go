// Package http exposes the read-only admin API: server health plus the
// persisted games and their move histories. The game protocol itself is
// TCP only; this surface is for operators and dashboards.
package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"seabattle/internal/server/core"
	"seabattle/internal/server/service"
	"seabattle/internal/server/session"
)

const rateLimitRate = 10 // req/sec

type Handler struct {
	svc      *service.Service
	registry *session.Registry
}

func NewHandler(svc *service.Service, registry *session.Registry) *Handler {
	return &Handler{svc: svc, registry: registry}
}

func NewFiberApp(svc *service.Service, registry *session.Registry, devMode bool) *fiber.App {
	h := NewHandler(svc, registry)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api := app.Group("/api/v1")
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrResourceLimit,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Get("/games", h.ListGames)
	api.Get("/games/:gameId/moves", h.GameMoves)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrResourceLimit
		}
	}

	return c.Status(code).JSON(response)
}

// Health reports storage status and a session snapshot
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.GetStorageHealth(),
		"session": h.registry.Snapshot(),
	})
}

// ListGames returns persisted games, optionally filtered by ?player=
func (h *Handler) ListGames(c *fiber.Ctx) error {
	player := c.Query("player")
	games, err := h.svc.Games(player)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "failed to query games",
			Code:  core.ErrInternalError,
		})
	}

	out := make([]fiber.Map, 0, len(games))
	for _, g := range games {
		out = append(out, fiber.Map{
			"game_id":      g.GameID,
			"player1":      g.Player1,
			"player2":      g.Player2,
			"current_turn": g.CurrentTurn,
			"started_at":   g.StartedAt,
		})
	}
	return c.JSON(fiber.Map{"games": out, "count": len(out)})
}

// GameMoves returns the move history of one game
func (h *Handler) GameMoves(c *fiber.Ctx) error {
	gameID, err := strconv.ParseInt(c.Params("gameId"), 10, 64)
	if err != nil || gameID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error: "invalid game ID",
			Code:  core.ErrInvalidRequest,
		})
	}

	moves, err := h.svc.Moves(gameID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "failed to query moves",
			Code:  core.ErrInternalError,
		})
	}

	out := make([]fiber.Map, 0, len(moves))
	for _, m := range moves {
		out = append(out, fiber.Map{
			"player":    m.Player,
			"x":         m.X,
			"y":         m.Y,
			"result":    m.Result,
			"played_at": m.PlayedAt,
		})
	}
	return c.JSON(fiber.Map{"game_id": gameID, "moves": out, "count": len(out)})
}
