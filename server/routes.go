// Package server exposes a minimal, read-only HTTP surface over a running
// engine.Engine: liveness, per-stage queue depths, and topology. It carries
// no control endpoints -- submission happens through the engine package's
// Go API, not over HTTP.
package server

import (
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gradsync/gradsync/engine"
)

var mode string = gin.ReleaseMode

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.ReleaseMode
	}

	gin.SetMode(mode)
}

// Server wraps an engine.Engine with the observability router.
type Server struct {
	addr net.Addr
	eng  *engine.Engine

	// allowedHosts is the operator-configured Host header allow-list
	// (envconfig.AllowedHosts), on top of loopback/private addresses and
	// this host's own name.
	allowedHosts []string
}

// GenerateRoutes builds the gin router for the observability surface.
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr, s.allowedHosts),
	)

	r.GET("/healthz", s.healthzHandler)
	r.GET("/debug/queues", s.queuesHandler)
	r.GET("/debug/topology", s.topologyHandler)

	return r
}

// healthzHandler reports process liveness only: a 200 means the HTTP
// server itself is up, not that every stage loop is making progress.
func (s *Server) healthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// queuesHandler returns the per-stage queue snapshot from engine.Stats.
func (s *Server) queuesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Stats().Queues)
}

// topologyHandler returns this process's rank, size, and role.
func (s *Server) topologyHandler(c *gin.Context) {
	stats := s.eng.Stats()
	c.JSON(http.StatusOK, gin.H{
		"rank":        stats.Rank,
		"local_rank":  stats.LocalRank,
		"size":        stats.Size,
		"local_size":  stats.LocalSize,
		"root":        stats.Root,
		"distributed": stats.Distributed,
	})
}
