package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursecommerce-backend/internal/http/response"
	"github.com/yungbote/coursecommerce-backend/internal/services"
)

type AccountHandler struct {
	svc services.AccountService
}

func NewAccountHandler(svc services.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GET /api/users/:id/payments?limit=50
func (h *AccountHandler) ListPayments(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.svc.Payments(c.Request.Context(), userID, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"payments": rows})
}

// GET /api/users/:id/payments/:transaction_id
func (h *AccountHandler) GetPayment(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	row, err := h.svc.Payment(c.Request.Context(), userID, c.Param("transaction_id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"payment": row})
}

// GET /api/users/:id/subscriptions
func (h *AccountHandler) ListSubscriptions(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.Subscriptions(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"subscriptions": rows})
}

// GET /api/users/:id/courses
func (h *AccountHandler) ListCourses(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.Courses(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": rows})
}

// GET /api/users/:id/progress
func (h *AccountHandler) ListProgress(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.Progress(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": rows})
}

// GET /api/users/:id/progress/:course_id
func (h *AccountHandler) GetCourseProgress(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	courseID, ok := pathUUID(c, "course_id")
	if !ok {
		return
	}
	row, err := h.svc.CourseProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": row})
}

// GET /api/users/:id/achievements/earned
func (h *AccountHandler) ListEarned(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.Achievements(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"achievements": rows})
}

// GET /api/users/:id/stats
func (h *AccountHandler) ListStats(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": rows})
}
