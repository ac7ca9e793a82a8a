package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/http/response"
)

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondAPIError(c, domainagg.NewError(domainagg.CodeValidation, "http", "invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		response.RespondAPIError(c, domainagg.NewError(domainagg.CodeValidation, "http", name+" is required", nil))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondAPIError(c, domainagg.NewError(domainagg.CodeValidation, "http", "invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional body field; "" maps to uuid.Nil.
func optionalUUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondAPIError(c, domainagg.NewError(domainagg.CodeValidation, "http", "invalid request body", err))
		return false
	}
	return true
}

func badField(c *gin.Context, field string, err error) {
	if err == nil {
		err = errors.New("invalid value")
	}
	response.RespondAPIError(c, domainagg.NewError(domainagg.CodeValidation, "http", "invalid "+field, err))
}
