package router

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remiges-tech/sift/wscutils"
)

// timeoutWriter wraps gin.ResponseWriter to serialize writes and track
// whether the handler wrote a response. TimeoutMiddleware uses that to
// decide between the handler's response and a 504.
type timeoutWriter struct {
	gin.ResponseWriter
	discardWrites *atomic.Bool
	mu            sync.Mutex
	wroteHeader   bool
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	if w.discardWrites.Load() {
		return len(b), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseWriter.Write(b)
}

func (w *timeoutWriter) WriteHeader(code int) {
	if w.discardWrites.Load() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *timeoutWriter) WriteString(s string) (int, error) {
	if w.discardWrites.Load() {
		return len(s), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseWriter.WriteString(s)
}

func (w *timeoutWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.(http.Hijacker).Hijack()
}

func (w *timeoutWriter) Flush() {
	if w.discardWrites.Load() {
		return
	}
	w.ResponseWriter.(http.Flusher).Flush()
}

// MiddlewareErrorScenario names an error condition a middleware can
// answer a request with. Services register the msgid and errcode to use
// for each scenario at startup.
type MiddlewareErrorScenario string

const (
	RequestTimeout MiddlewareErrorScenario = "RequestTimeout"
	MissingOwner   MiddlewareErrorScenario = "MissingOwner"
)

// Context keys set by TimeoutMiddleware and read by LogRequest so the
// request log can tell a server-side timeout from a client disconnect
// and record handler panics.
const (
	CtxKeyTimedOut           = "_request_timed_out"
	CtxKeyClientDisconnected = "_client_disconnected"
	CtxKeyPanicRecovered     = "_panic_recovered"
	CtxKeyPanicValue         = "_panic_value"
)

var middlewareScenarioToMsgID = make(map[MiddlewareErrorScenario]int)
var middlewareScenarioToErrCode = make(map[MiddlewareErrorScenario]string)

// Fallbacks for scenarios no one registered.
var defaultMsgID = 9999
var defaultErrCode = wscutils.ErrcodeUnknown

func RegisterMiddlewareMsgID(scenario MiddlewareErrorScenario, msgID int) {
	middlewareScenarioToMsgID[scenario] = msgID
}

func RegisterMiddlewareErrCode(scenario MiddlewareErrorScenario, errCode string) {
	middlewareScenarioToErrCode[scenario] = errCode
}

func scenarioResponse(scenario MiddlewareErrorScenario) *wscutils.Response {
	msgID, ok := middlewareScenarioToMsgID[scenario]
	if !ok {
		msgID = defaultMsgID
	}
	errCode, ok := middlewareScenarioToErrCode[scenario]
	if !ok {
		errCode = defaultErrCode
	}
	return wscutils.NewErrorResponse(msgID, errCode)
}

// TimeoutMiddleware limits request processing time. When the handler does
// not finish within the timeout and has not written a response, the
// middleware answers with 504 Gateway Timeout.
//
// The handler's own response always wins when one was written, even when
// it lands after the deadline: the client waited anyway and gets the real
// result. Timeouts only cut work short in handlers that honor context
// cancellation; a handler that ignores its context runs to completion and
// merely delays the response.
//
// The handler runs in a separate goroutine so the timeout can fire
// independently. Panics in that goroutine are re-raised in the main
// goroutine, which means gin.Recovery() must be registered BEFORE this
// middleware:
//
//	r.Use(LogRequest(logger))
//	r.Use(gin.Recovery())
//	r.Use(TimeoutMiddleware(timeout))
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// Tells the panic handler when the main goroutine has stopped
		// listening on panicCh.
		var timedOut atomic.Bool

		// Never set. Writes are allowed throughout because the response
		// decision waits for the handler to finish.
		var neverDiscard atomic.Bool

		tw := &timeoutWriter{
			ResponseWriter: c.Writer,
			discardWrites:  &neverDiscard,
		}
		c.Writer = tw

		finCh := make(chan struct{}, 1)
		panicCh := make(chan any, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					c.Set(CtxKeyPanicRecovered, true)
					c.Set(CtxKeyPanicValue, fmt.Sprintf("%v", p))

					if !timedOut.Load() {
						panicCh <- p
					}
				}
				finCh <- struct{}{}
			}()
			c.Next()
		}()

		select {
		case p := <-panicCh:
			// Re-panic where gin.Recovery() can catch it.
			panic(p)

		case <-ctx.Done():
			timedOut.Store(true)

			// ctx.Err() tells the two cancellation causes apart.
			if ctx.Err() == context.DeadlineExceeded {
				c.Set(CtxKeyTimedOut, true)
			} else {
				c.Set(CtxKeyClientDisconnected, true)
			}

			// The handler can still finish and write during this wait.
			<-finCh

			if _, panicked := c.Get(CtxKeyPanicRecovered); panicked {
				tw.mu.Lock()
				handlerWrote := tw.wroteHeader
				tw.mu.Unlock()

				if !handlerWrote {
					c.AbortWithStatusJSON(http.StatusInternalServerError,
						wscutils.NewErrorResponse(defaultMsgID, defaultErrCode))
				}
				return
			}

			tw.mu.Lock()
			handlerWrote := tw.wroteHeader
			tw.mu.Unlock()

			if handlerWrote {
				return
			}

			c.AbortWithStatusJSON(http.StatusGatewayTimeout, scenarioResponse(RequestTimeout))

		case <-finCh:
			// Handler completed within the timeout.
		}
	}
}
