package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shineum/email-json/internal/resolver"
)

// notFoundMessage is returned when every strategy misses.
const notFoundMessage = "No JSON found in email"

// Resolver resolves the email stored at path. *resolver.Resolver implements it.
type Resolver interface {
	ResolveFile(ctx context.Context, path string) (resolver.Result, error)
}

// parseRequest is the query of GET /email-parser/parse.
type parseRequest struct {
	Path string `form:"path" binding:"required"`
}

// parseResponse is the body of a successful resolution.
type parseResponse struct {
	JSONContent any `json:"jsonContent"`
}

type handler struct {
	resolver Resolver
	logger   *slog.Logger
}

func (h *handler) parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"statusCode": http.StatusBadRequest,
			"message":    []string{"path should not be empty"},
			"error":      "Bad Request",
		})
		return
	}

	res, err := h.resolver.ResolveFile(c.Request.Context(), req.Path)
	if err != nil {
		var fatal *resolver.FatalInputError
		switch {
		case errors.As(err, &fatal):
			h.logger.Error("email could not be loaded", "path", req.Path, "error", fatal.Err)
		case errors.Is(err, context.Canceled):
			h.logger.Warn("request cancelled", "path", req.Path)
		default:
			h.logger.Error("resolution failed", "path", req.Path, "error", err)
		}
		c.JSON(http.StatusInternalServerError, errorBody(http.StatusInternalServerError, err.Error()))
		return
	}

	if !res.Found() {
		c.JSON(http.StatusNotFound, errorBody(http.StatusNotFound, notFoundMessage))
		return
	}

	c.Header("X-Resolved-Strategy", res.Strategy)
	c.JSON(http.StatusOK, parseResponse{JSONContent: res.Value})
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errorBody(status int, message string) gin.H {
	return gin.H{"statusCode": status, "message": message}
}
