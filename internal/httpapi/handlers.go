package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coldharbor/chatcore/internal/authsvc"
	"github.com/coldharbor/chatcore/internal/database"
	"github.com/coldharbor/chatcore/internal/sessioncache"
)

type signupRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

func (h *handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := authsvc.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &database.User{
		Username:     req.Username,
		DisplayName:  displayName,
		Email:        req.Email,
		PasswordHash: hash,
		APIKey:       uuid.NewString(),
		Role:         "user",
	}
	if err := h.deps.Users.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "could not create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username, "display_name": user.DisplayName})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.deps.Users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !authsvc.VerifyPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if _, err := h.deps.Users.TouchLastSeen(c.Request.Context(), user.ID); err != nil {
		h.deps.Log.WithError(err).Warn("httpapi: failed to update last seen")
	}

	token, err := h.deps.Auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	expiry := 24 * time.Hour
	session := &database.UserSession{
		UserID:       user.ID,
		SessionToken: token,
		Context:      map[string]interface{}{},
		Status:       "active",
		ExpiresAt:    time.Now().Add(expiry),
	}
	if err := h.deps.Sessions.Create(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	if h.deps.Cache != nil {
		entry := sessioncache.SessionEntry{
			UserID:    user.ID,
			Username:  user.Username,
			Role:      user.Role,
			IssuedAt:  time.Now(),
			ExpiresAt: session.ExpiresAt,
		}
		if err := h.deps.Cache.PutSession(c.Request.Context(), token, entry, expiry); err != nil {
			h.deps.Log.WithError(err).Warn("httpapi: failed to cache session")
		}
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": session.ExpiresAt})
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *handler) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := &database.ChatRoom{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedBy: authsvc.GetUserID(c),
	}
	if err := h.deps.Chats.CreateRoom(c.Request.Context(), room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *handler) listRooms(c *gin.Context) {
	limit, offset := pageParams(c)
	rooms, total, err := h.deps.Chats.ListRooms(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "total": total})
}

func (h *handler) listMessages(c *gin.Context) {
	roomID := c.Param("id")
	limit, _ := pageParams(c)

	since := int64(-1)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an integer"})
			return
		}
		since = parsed
	}

	messages, err := h.deps.Chats.MessagesPage(c.Request.Context(), roomID, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
