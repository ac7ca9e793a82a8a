package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursecommerce-backend/internal/http/response"
	"github.com/yungbote/coursecommerce-backend/internal/services"
)

type NotificationHandler struct {
	svc services.NotificationService
}

func NewNotificationHandler(svc services.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// GET /api/users/:id/notifications?unread=true&limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	unread, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.svc.List(c.Request.Context(), userID, unread, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notifications": rows})
}

// POST /api/notifications/:id/read?user_id=
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := queryUUID(c, "user_id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), id, userID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": id, "read": true})
}

// GET /api/users/:id/settings
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	s, err := h.svc.GetSettings(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": s})
}

// PUT /api/users/:id/settings
// body: any of { "theme", "language", "notification_channel", "mute_achievements" }
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Theme               *string `json:"theme"`
		Language            *string `json:"language"`
		NotificationChannel *string `json:"notification_channel"`
		MuteAchievements    *bool   `json:"mute_achievements"`
	}
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.svc.UpdateSettings(c.Request.Context(), userID, services.SettingsInput{
		Theme:               req.Theme,
		Language:            req.Language,
		NotificationChannel: req.NotificationChannel,
		MuteAchievements:    req.MuteAchievements,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": s})
}
