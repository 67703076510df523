package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhanyysh/Chat02/internal/apperr"
)

// respondErr maps the domain error taxonomy onto HTTP statuses. Unknown
// errors stay opaque.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
	case errors.Is(err, apperr.ErrNotAuthorized),
		errors.Is(err, apperr.ErrCreatorCannotLeave):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrUnknownGroup),
		errors.Is(err, apperr.ErrUnknownUser),
		errors.Is(err, apperr.ErrUnknownMember),
		errors.Is(err, apperr.ErrNotAMember):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, apperr.ErrAlreadyMember),
		errors.Is(err, apperr.ErrNoOp):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, apperr.ErrInvalidMessage),
		errors.Is(err, apperr.ErrInvalidContent),
		errors.Is(err, apperr.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
