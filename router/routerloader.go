// Package router assembles the gin engine used by sift services and the
// middleware stack it runs: request logging, panic recovery, a request
// timeout, and owner identification for the batch routes.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/remiges-tech/logharbour/logharbour"
)

const (
	// DefaultTimeout bounds request handling. Analysis runs in background
	// workers, so requests are short database and storage work.
	DefaultTimeout = 60 * time.Second
)

// SetupRouter builds a gin engine with the standard middleware chain.
// gin.Recovery sits between logging and timeout on purpose:
// TimeoutMiddleware re-raises handler panics in the goroutine Recovery
// watches, and LogRequest outermost records the final status of every
// request including recovered panics. Pass a non-positive timeout to get
// DefaultTimeout.
func SetupRouter(logger *logharbour.Logger, timeout time.Duration) (*gin.Engine, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := gin.New()
	r.Use(LogRequest(NewLogHarbourAdapter(logger)))
	r.Use(gin.Recovery())
	r.Use(TimeoutMiddleware(timeout))

	return r, nil
}
