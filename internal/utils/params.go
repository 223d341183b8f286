package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamUint parses a positive integer path parameter.
func ParamUint(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New("missing " + name + " parameter")
	}

	value, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}

	return uint(value), nil
}
