package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursecommerce-backend/internal/http/response"
	"github.com/yungbote/coursecommerce-backend/internal/services"
)

// ContentHandler serves the content-delivery gate.
type ContentHandler struct {
	entitlements services.EntitlementService
	catalog      services.CatalogService
}

func NewContentHandler(entitlements services.EntitlementService, catalog services.CatalogService) *ContentHandler {
	return &ContentHandler{entitlements: entitlements, catalog: catalog}
}

// GET /api/courses/:id/access?user_id=
func (h *ContentHandler) Access(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := queryUUID(c, "user_id")
	if !ok {
		return
	}
	allowed, err := h.entitlements.HasAccess(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user_id": userID, "course_id": courseID, "allowed": allowed})
}

// GET /api/courses/:id/outline?user_id=
func (h *ContentHandler) Outline(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := queryUUID(c, "user_id")
	if !ok {
		return
	}
	units, err := h.catalog.Outline(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course_id": courseID, "units": units})
}

// GET /api/plans
func (h *ContentHandler) ListPlans(c *gin.Context) {
	plans, err := h.catalog.ListPlans(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"plans": plans})
}

// GET /api/users/:id/achievements
func (h *ContentHandler) ListStandings(c *gin.Context) {
	userID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	standings, err := h.catalog.ListStandings(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"achievements": standings})
}
