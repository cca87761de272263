package handler

import (
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/pkg/serverutils"
	"nyan-bot/internal/service"
	internalWS "nyan-bot/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ChatHandler struct {
	bot       service.IBotService
	gate      *service.AdmissionGate
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewChatHandler(bot service.IBotService, gate *service.AdmissionGate, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		bot:       bot,
		gate:      gate,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the handshake and hands the connection to the hub.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	userID, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn(logger.ModuleWebSocket, "Invalid token in handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if !h.gate.AllowUser(userID) {
		return c.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "User is not allowed to chat with the bot"))
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info(logger.ModuleWebSocket, "Starting chat session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID, h.bot)
			h.logger.Info(logger.ModuleWebSocket, "Chat session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/chat", h.ServeWs)
}
