package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

// respondError переводит доменные ошибки в HTTP статусы
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrOutOfRange):
		c.JSON(http.StatusConflict, gin.H{"error": "slide index out of range", "error_type": "out_of_range"})
	case errors.Is(err, apperrors.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": "answer already submitted for this slide", "error_type": "duplicate_submission"})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, repository.ErrCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[Handler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// currentUserID извлекает id пользователя, установленный middleware-ом
func currentUserID(c *gin.Context) string {
	return c.MustGet("user_id").(string)
}
