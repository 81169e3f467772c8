package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"parkometr/internal/auth"
	"parkometr/internal/http/middleware"
	"parkometr/internal/lpr"

	"github.com/gin-gonic/gin"
)

// Deps carries the process-wide settings handlers build their services from.
type Deps struct {
	Tokens        auth.Tokens
	LPR           *lpr.Client
	LPRSamplesDir string
	PublicBaseURL string
	Now           func() time.Time
}

var (
	depsMu sync.RWMutex
	deps   Deps
)

// Configure installs the settings used by every handler.
func Configure(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

func currentDeps() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return deps
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid JSON payload", err.Error())
		return false
	}
	return true
}

// pathID parses a positive integer path parameter or writes a 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", name+" must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func requestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}
