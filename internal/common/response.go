package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes data as the JSON body with status 200.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Fail writes the error payload every failure path shares: {"error": msg, "code": code}.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"error": msg,
		"code":  code,
	})
}

// FailErr renders err through the error taxonomy. Errors outside the taxonomy
// are reported as a generic 500 so internals never leak to the client.
func FailErr(c *gin.Context, err error) {
	var ae *AppError
	if !errors.As(err, &ae) {
		Fail(c, http.StatusInternalServerError, 50000, "internal error")
		return
	}
	Fail(c, StatusOf(err), ae.Kind.code(), ae.Message)
}
