package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faultline-dev/faultline/internal/errs"
)

// respondError maps domain errors onto HTTP status codes. Anything outside
// the known taxonomy is a 500 and gets logged with its cause.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errs.IsValidation(err):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errs.IsNotFound(err):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errs.IsAuthorization(err):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errs.IsConflict(err):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		zap.L().Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
