package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/educenter-crm-api/internal/middleware"
	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// eventIDParam reads the :id path segment. A value that is not a UUID cannot
// name a stored event and is answered with NOT_FOUND.
func eventIDParam(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "event not found"))
		return "", false
	}
	return id.String(), true
}

func userIDParam(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id must be a UUID"))
		return "", false
	}
	return id.String(), true
}
