package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	authusecase "taskhub-backend/internal/auth/usecase"
	"taskhub-backend/internal/task/usecase"
)

// Handler upgrades authenticated connections into hub clients.
type Handler struct {
	hub      *Hub
	authUC   authusecase.AuthUsecase
	taskUC   usecase.TaskUsecase
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *Hub, authUC authusecase.AuthUsecase, taskUC usecase.TaskUsecase, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:    hub,
		authUC: authUC,
		taskUC: taskUC,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot set an Authorization header on the websocket
			// handshake; origin checking is delegated to the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWS handles GET /api/ws. The bearer token comes from the query string or
// the Authorization header; an invalid token closes the connection immediately.
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication token required"})
		return
	}

	user, err := h.authUC.ValidateToken(c.Request.Context(), token)
	if err != nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, h.taskUC, user.ID, user.Name, h.logger)
	h.hub.Register(client)

	h.logger.Info("websocket connected",
		zap.String("user_id", user.ID),
		zap.String("user_name", user.Name))

	go client.writePump()
	go client.readPump()
}
