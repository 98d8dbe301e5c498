package lobby

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blackjack/internal/room"
)

type Handler struct {
	mgr *room.Manager
}

func NewHandler(mgr *room.Manager) *Handler {
	return &Handler{mgr: mgr}
}

// GET /rooms
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.mgr.Rooms()})
}

// POST /rooms
func (h *Handler) Create(c *gin.Context) {
	r := h.mgr.CreateRoom()
	c.JSON(http.StatusOK, r.Info())
}

// POST /rooms/:id/join
func (h *Handler) Join(c *gin.Context) {
	nick := c.GetString("nick")
	if nick == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if err := h.mgr.Join(c.Param("id"), nick); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
