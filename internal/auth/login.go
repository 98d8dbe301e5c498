package auth

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"blackjack/config"
	"blackjack/internal/session"
)

var nickPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]{2,24}$`)

type LoginRequest struct {
	Nick  string `json:"nick"`
	Token string `json:"token"` // reconnection token from a previous login
}

type LoginResponse struct {
	JWT      string `json:"jwt"`
	Token    string `json:"token"`
	Nick     string `json:"nick"`
	Balance  int    `json:"balance"`
	Restored bool   `json:"restored"`
	RoomID   string `json:"room_id,omitempty"`
}

type Handler struct {
	registry *session.Registry
}

func NewHandler(registry *session.Registry) *Handler {
	return &Handler{registry: registry}
}

// Login claims a nick. A fresh nick gets a new identity and reconnection
// token; presenting the matching token reclaims a live identity after a
// dropped connection. A taken nick without the token is refused.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if !nickPattern.MatchString(req.Nick) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nick must be 2-24 chars of letters, digits, _ or -"})
		return
	}

	s, restored, err := h.registry.Login(c.Request.Context(), req.Nick, req.Token)
	if err != nil {
		if errors.Is(err, session.ErrNickTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "nick is already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	claims := jwt.MapClaims{
		"sub": s.Nick,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtStr, err := token.SignedString([]byte(config.C.JWT.Secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt generation failed"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		JWT:      jwtStr,
		Token:    s.Token,
		Nick:     s.Nick,
		Balance:  s.Balance(),
		Restored: restored,
		RoomID:   s.RoomID(),
	})
}
