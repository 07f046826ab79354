package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/remiges-tech/logharbour/logharbour"
)

// RequestInfo holds everything LogRequest captures about one
// request/response cycle. StartTime is recorded in UTC.
type RequestInfo struct {
	Method             string        `json:"method"`
	Path               string        `json:"path"`
	ClientIP           string        `json:"client_ip"`
	StatusCode         int           `json:"status_code"`
	StartTime          time.Time     `json:"start_time"`
	Duration           time.Duration `json:"duration"`
	RequestSize        int64         `json:"request_size"`
	ResponseSize       int64         `json:"response_size"`
	Query              string        `json:"query,omitempty"`
	UserAgent          string        `json:"user_agent,omitempty"`
	Referer            string        `json:"referer,omitempty"`
	TraceID            string        `json:"trace_id,omitempty"`
	SpanID             string        `json:"span_id,omitempty"`
	TimedOut           bool          `json:"timed_out,omitempty"`
	ClientDisconnected bool          `json:"client_disconnected,omitempty"`
	PanicRecovered     bool          `json:"panic_recovered,omitempty"`
	PanicValue         string        `json:"panic_value,omitempty"`
}

// RequestLogger is the sink LogRequest writes to. The adapter indirection
// keeps the middleware independent of the logging library.
type RequestLogger interface {
	Log(info RequestInfo)
}

// LogRequest logs one structured entry at the end of each request:
// method, path, status, timing, sizes, trace headers, plus any timeout,
// disconnect or panic markers left behind by TimeoutMiddleware.
func LogRequest(logger RequestLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestSize := c.Request.ContentLength

		traceID := c.GetHeader("X-Trace-ID")
		spanID := c.GetHeader("X-Span-ID")

		c.Next()

		duration := time.Since(startTime)

		var timedOut, clientDisconnected, panicRecovered bool
		var panicValue string
		if v, exists := c.Get(CtxKeyTimedOut); exists {
			timedOut, _ = v.(bool)
		}
		if v, exists := c.Get(CtxKeyClientDisconnected); exists {
			clientDisconnected, _ = v.(bool)
		}
		if v, exists := c.Get(CtxKeyPanicRecovered); exists {
			panicRecovered, _ = v.(bool)
		}
		if v, exists := c.Get(CtxKeyPanicValue); exists {
			panicValue, _ = v.(string)
		}

		info := RequestInfo{
			Method:             c.Request.Method,
			Path:               c.Request.URL.Path,
			ClientIP:           c.ClientIP(),
			StatusCode:         c.Writer.Status(),
			StartTime:          startTime.UTC(),
			Duration:           duration,
			RequestSize:        requestSize,
			ResponseSize:       int64(c.Writer.Size()),
			Query:              c.Request.URL.RawQuery,
			UserAgent:          c.Request.UserAgent(),
			Referer:            c.Request.Referer(),
			TraceID:            traceID,
			SpanID:             spanID,
			TimedOut:           timedOut,
			ClientDisconnected: clientDisconnected,
			PanicRecovered:     panicRecovered,
			PanicValue:         panicValue,
		}

		logger.Log(info)
	}
}

// LogHarbourAdapter implements RequestLogger on a LogHarbour logger.
type LogHarbourAdapter struct {
	logger *logharbour.Logger
}

func NewLogHarbourAdapter(logger *logharbour.Logger) *LogHarbourAdapter {
	return &LogHarbourAdapter{
		logger: logger,
	}
}

// Log writes the request as a LogHarbour activity entry, with the HTTP
// method as class and the path as instance.
func (a *LogHarbourAdapter) Log(info RequestInfo) {
	logger := a.logger.WithModule("http").
		WithOp("request").
		WithRemoteIP(info.ClientIP).
		WithClass(info.Method).
		WithInstanceId(info.Path).
		WithStatus(getStatus(info.StatusCode))

	activityData := map[string]any{
		"method":        info.Method,
		"path":          info.Path,
		"status":        info.StatusCode,
		"start_time":    info.StartTime.Format(time.RFC3339),
		"duration_ms":   info.Duration.Milliseconds(),
		"duration":      info.Duration.String(),
		"request_size":  info.RequestSize,
		"response_size": info.ResponseSize,
		"query":         info.Query,
		"user_agent":    info.UserAgent,
		"referer":       info.Referer,
	}

	if info.TraceID != "" {
		activityData["trace_id"] = info.TraceID
	}

	if info.SpanID != "" {
		activityData["span_id"] = info.SpanID
	}

	if info.TimedOut {
		activityData["timed_out"] = true
	}
	if info.ClientDisconnected {
		activityData["client_disconnected"] = true
	}
	if info.PanicRecovered {
		activityData["panic_recovered"] = true
		activityData["panic_value"] = info.PanicValue
	}

	logger.Info().LogActivity("HTTP request completed", activityData)
}

func getStatus(statusCode int) logharbour.Status {
	if statusCode >= 200 && statusCode < 400 {
		return logharbour.Success
	}
	return logharbour.Failure
}
