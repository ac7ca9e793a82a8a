package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/http/response"
)

// PasswordResetHandler is called by the auth layer; it returns the raw token
// to the caller, which owns delivery to the user.
type PasswordResetHandler struct {
	resets domainagg.PasswordResetAggregate
}

func NewPasswordResetHandler(resets domainagg.PasswordResetAggregate) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets}
}

// POST /api/password-reset/issue
// body: { "user_id": "..." } or { "email": "..." }
func (h *PasswordResetHandler) Issue(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	userID, err := optionalUUID(req.UserID)
	if err != nil {
		badField(c, "user_id", err)
		return
	}
	res, err := h.resets.IssueToken(c.Request.Context(), domainagg.IssueResetTokenInput{UserID: userID, Email: req.Email})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.RespondOK(c, gin.H{
		"user_id":    res.UserID,
		"token":      res.Token,
		"version":    res.Version,
		"expires_at": res.ExpiresAt,
	})
}

// POST /api/password-reset/redeem
// body: { "user_id": "...", "token": "...", "new_password": "..." }
func (h *PasswordResetHandler) Redeem(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id"`
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		badField(c, "user_id", err)
		return
	}
	res, err := h.resets.Redeem(c.Request.Context(), domainagg.RedeemResetTokenInput{
		UserID:      userID,
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"version":          res.Version,
		"redeemed_at":      res.RedeemedAt,
		"password_changed": res.PasswordChanged,
	})
}
