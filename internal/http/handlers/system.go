package handlers

import (
	"net/http"
	"sync"

	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for /api/routes.
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "parkometr is running"})
}

// DBCheck pings the database and reports which ledger tables exist.
func DBCheck(c *gin.Context) {
	if err := intconfig.EnsureDB(); err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal_error", "database unavailable", nil)
		return
	}
	db, ctx := intconfig.DB, c.Request.Context()
	tables := gin.H{}
	ready := true
	for _, t := range intdb.Tables {
		ok := intdb.HasTable(ctx, db, t)
		tables[t] = ok
		ready = ready && ok
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK", "ready": ready, "tables": tables})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
