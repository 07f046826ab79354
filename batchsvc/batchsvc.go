// Package batchsvc exposes the screening engine over HTTP. Handlers are
// thin: they establish the caller's identity, move request data into an
// engine call and translate the engine's errors into wscutils envelopes
// with the right status code. All batch semantics live in the engine.
package batchsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/remiges-tech/sift/engine"
	"github.com/remiges-tech/sift/router"
	"github.com/remiges-tech/sift/service"
	"github.com/remiges-tech/sift/wscutils"
)

// Message IDs and error codes of this service. The IDs pick the message
// templates clients render; the codes are the stable tokens programs
// switch on.
const (
	MsgIDInvalidJSON   = 1001
	MsgIDInvalidInput  = 1002
	MsgIDMissingUser   = 1003
	MsgIDForbidden     = 1004
	MsgIDNotFound      = 1005
	MsgIDBatchActive   = 1006
	MsgIDUpstream      = 1007
	MsgIDInternal      = 1008
	MsgIDNoEngine      = 1009
	MsgIDBadUpload     = 1010
	MsgIDUnhealthy     = 1011
	MsgIDTimeout       = 1012
	MsgIDValidationErr = 101

	ErrcodeForbidden   = "forbidden"
	ErrcodeNotFound    = "not_found"
	ErrcodeBatchActive = "batch_active"
	ErrcodeUpstream    = "upstream_unavailable"
	ErrcodeInternal    = "internal"
	ErrcodeBadUpload   = "bad_upload"
)

func init() {
	wscutils.SetValidationTagToErrCodeMap(map[string]string{
		"required": wscutils.ErrcodeMissing,
		"oneof":    wscutils.ErrcodeInvalidRequest,
		"max":      wscutils.ErrcodeInvalidRequest,
	})
	wscutils.SetValidationTagToMsgIDMap(map[string]int{
		"required": MsgIDValidationErr,
		"oneof":    MsgIDValidationErr,
		"max":      MsgIDValidationErr,
	})
	wscutils.SetDefaultErrCode(wscutils.ErrcodeInvalidRequest)
	wscutils.SetDefaultMsgID(MsgIDValidationErr)
	wscutils.SetMsgIDInvalidJSON(MsgIDInvalidJSON)
	wscutils.SetErrCodeInvalidJSON(wscutils.ErrcodeInvalidJson)

	router.RegisterMiddlewareMsgID(router.MissingOwner, MsgIDMissingUser)
	router.RegisterMiddlewareErrCode(router.MissingOwner, wscutils.ErrcodeRequestUserInvalid)
	router.RegisterMiddlewareMsgID(router.RequestTimeout, MsgIDTimeout)
	router.RegisterMiddlewareErrCode(router.RequestTimeout, wscutils.ErrcodeRequestTimeout)
}

// Screener is the slice of the engine the handlers call. Declared here so
// tests can substitute a fake; *engine.Engine satisfies it.
type Screener interface {
	BatchCreate(ctx context.Context, owner, jd string, files []engine.FileInput_t) (string, error)
	BatchControl(ctx context.Context, owner, batchID string, action engine.ControlAction) (engine.ControlOutcome, error)
	BatchGet(ctx context.Context, owner, batchID string) (engine.BatchDetails_t, error)
	BatchQuickStatus(ctx context.Context, owner, batchID string) (engine.BatchStatus_t, error)
	ItemList(ctx context.Context, owner, batchID, statusFilter string) ([]engine.ItemDetails_t, error)
	BatchTeardown(ctx context.Context, owner, batchID string) error
}

// EngineDependencyKey is where RegisterBatchHandlers expects the Screener
// in the service's dependency map.
const EngineDependencyKey = "engine"

// RegisterBatchHandlers registers the batch control surface on the service.
// The batch routes sit behind the identity middleware; health stays open
// so load balancers can probe without credentials. The service must carry
// a Screener under EngineDependencyKey.
func RegisterBatchHandlers(s *service.Service) {
	g := s.CreateGroup("/batches")
	g.Group.Use(router.IdentityMiddleware())
	g.RegisterRoute(http.MethodPost, "", handlerFor(s, HandleCreateBatch))
	g.RegisterRoute(http.MethodPost, "/:id/control", handlerFor(s, HandleControlBatch))
	g.RegisterRoute(http.MethodGet, "/:id", handlerFor(s, HandleGetBatch))
	g.RegisterRoute(http.MethodGet, "/:id/status", handlerFor(s, HandleQuickStatus))
	g.RegisterRoute(http.MethodGet, "/:id/items", handlerFor(s, HandleListItems))
	g.RegisterRoute(http.MethodDelete, "/:id", handlerFor(s, HandleTeardownBatch))

	s.RegisterRoute(http.MethodGet, "/health", HandleHealth)
}

func handlerFor(s *service.Service, h service.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c, s)
	}
}

// ControlRequest is the data part of a POST /batches/:id/control request.
type ControlRequest struct {
	Action string `json:"action" validate:"required,oneof=pause resume cancel"`
}

// HandleCreateBatch accepts a multipart form with a jd field and one or
// more files parts, and creates a screening batch from them.
func HandleCreateBatch(c *gin.Context, s *service.Service) {
	owner, ok := requestUser(c)
	if !ok {
		return
	}
	eng, ok := getScreener(c, s)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		sendFieldError(c, http.StatusBadRequest, MsgIDBadUpload, ErrcodeBadUpload, "form", err.Error())
		return
	}
	jd := c.PostForm("jd")

	var files []engine.FileInput_t
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			sendFieldError(c, http.StatusBadRequest, MsgIDBadUpload, ErrcodeBadUpload, "files", fmt.Sprintf("cannot read %q: %v", fh.Filename, err))
			return
		}
		contents, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			sendFieldError(c, http.StatusBadRequest, MsgIDBadUpload, ErrcodeBadUpload, "files", fmt.Sprintf("cannot read %q: %v", fh.Filename, err))
			return
		}
		files = append(files, engine.FileInput_t{Filename: fh.Filename, Contents: contents})
	}

	batchID, err := eng.BatchCreate(c.Request.Context(), owner, jd, files)
	if err != nil {
		sendEngineError(c, s, err)
		return
	}
	s.Logger.Info().LogActivity("batch created over HTTP", map[string]any{
		"batch": batchID,
		"owner": owner,
		"files": len(files),
	})
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"id": batchID}))
}

// HandleControlBatch applies pause, resume or cancel to a batch.
func HandleControlBatch(c *gin.Context, s *service.Service) {
	owner, ok := requestUser(c)
	if !ok {
		return
	}
	eng, ok := getScreener(c, s)
	if !ok {
		return
	}

	var req ControlRequest
	if err := wscutils.BindJSON(c, &req); err != nil {
		return
	}
	validationErrors := wscutils.WscValidate(req, func(err validator.FieldError) []string {
		if err.Tag() == "oneof" {
			return []string{fmt.Sprint(err.Value()), err.Param()}
		}
		return []string{}
	})
	if len(validationErrors) > 0 {
		wscutils.SendErrorResponse(c, wscutils.NewResponse(wscutils.ErrorStatus, nil, validationErrors))
		return
	}

	outcome, err := eng.BatchControl(c.Request.Context(), owner, c.Param("id"), engine.ControlAction(req.Action))
	if err != nil {
		sendEngineError(c, s, err)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"result": outcome}))
}

// HandleGetBatch returns the full batch snapshot, counters included.
func HandleGetBatch(c *gin.Context, s *service.Service) {
	owner, ok := requestUser(c)
	if !ok {
		return
	}
	eng, ok := getScreener(c, s)
	if !ok {
		return
	}

	details, err := eng.BatchGet(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		sendEngineError(c, s, err)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(details))
}

// HandleQuickStatus returns just the batch status, served from the cache
// when it is warm.
func HandleQuickStatus(c *gin.Context, s *service.Service) {
	owner, ok := requestUser(c)
	if !ok {
		return
	}
	eng, ok := getScreener(c, s)
	if !ok {
		return
	}

	status, err := eng.BatchQuickStatus(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		sendEngineError(c, s, err)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"status": status}))
}

// HandleListItems returns the batch's items, optionally filtered by the
// status query parameter.
func HandleListItems(c *gin.Context, s *service.Service) {
	owner, ok := requestUser(c)
	if !ok {
		return
	}
	eng, ok := getScreener(c, s)
	if !ok {
		return
	}

	items, err := eng.ItemList(c.Request.Context(), owner, c.Param("id"), c.Query("status"))
	if err != nil {
		sendEngineError(c, s, err)
		return
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"items": items}))
}

// HandleTeardownBatch removes a terminal batch with its items and files.
func HandleTeardownBatch(c *gin.Context, s *service.Service) {
	owner, ok := requestUser(c)
	if !ok {
		return
	}
	eng, ok := getScreener(c, s)
	if !ok {
		return
	}

	if err := eng.BatchTeardown(c.Request.Context(), owner, c.Param("id")); err != nil {
		sendEngineError(c, s, err)
		return
	}
	s.Logger.Info().LogActivity("batch torn down over HTTP", map[string]any{
		"batch": c.Param("id"),
		"owner": owner,
	})
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"result": "ok"}))
}

// HandleHealth reports liveness. It pings the database because a sift
// process that cannot reach Postgres can neither serve nor process.
func HandleHealth(c *gin.Context, s *service.Service) {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if db, ok := s.Database.(pinger); ok {
		if err := db.Ping(c.Request.Context()); err != nil {
			s.Logger.Error(err).LogActivity("health check database ping failed", nil)
			c.JSON(http.StatusServiceUnavailable, wscutils.NewErrorResponse(MsgIDUnhealthy, ErrcodeUpstream))
			return
		}
	}
	wscutils.SendSuccessResponse(c, wscutils.NewSuccessResponse(gin.H{"status": "ok"}))
}

// requestUser reads the caller identity from the context, answering 401
// when the identity middleware did not set one.
func requestUser(c *gin.Context) (string, bool) {
	owner, err := wscutils.GetRequestUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, wscutils.NewErrorResponse(MsgIDMissingUser, wscutils.ErrcodeRequestUserInvalid))
		return "", false
	}
	return owner, true
}

// getScreener pulls the engine out of the service dependencies.
func getScreener(c *gin.Context, s *service.Service) (Screener, bool) {
	eng, ok := s.Dependencies[EngineDependencyKey].(Screener)
	if !ok {
		s.Logger.Error(errors.New("engine dependency missing or of wrong type")).LogActivity("service misconfigured", nil)
		c.JSON(http.StatusInternalServerError, wscutils.NewErrorResponse(MsgIDNoEngine, ErrcodeInternal))
		return nil, false
	}
	return eng, true
}

func sendFieldError(c *gin.Context, status, msgID int, errcode, field string, vals ...string) {
	msg := wscutils.BuildErrorMessage(msgID, errcode, field, vals...)
	c.JSON(status, wscutils.NewResponse(wscutils.ErrorStatus, nil, []wscutils.ErrorMessage{msg}))
}

// sendEngineError maps an engine error onto the HTTP surface. Validation
// failures keep their field name; upstream failures are logged here
// because the client only learns which class of thing broke, not what.
func sendEngineError(c *gin.Context, s *service.Service, err error) {
	var ve *engine.ValidationError
	switch {
	case errors.As(err, &ve):
		sendFieldError(c, http.StatusBadRequest, MsgIDInvalidInput, wscutils.ErrcodeInvalidRequest, ve.Field, ve.Details)
	case errors.Is(err, engine.ErrInvalidInput):
		sendFieldError(c, http.StatusBadRequest, MsgIDInvalidInput, wscutils.ErrcodeInvalidRequest, "", err.Error())
	case errors.Is(err, engine.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, wscutils.NewErrorResponse(MsgIDForbidden, ErrcodeForbidden))
	case errors.Is(err, engine.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, wscutils.NewErrorResponse(MsgIDNotFound, ErrcodeNotFound))
	case errors.Is(err, engine.ErrBatchActive):
		c.JSON(http.StatusConflict, wscutils.NewErrorResponse(MsgIDBatchActive, ErrcodeBatchActive))
	case errors.Is(err, engine.ErrUpstream):
		s.Logger.Error(err).LogActivity("request failed on upstream dependency", nil)
		c.JSON(http.StatusBadGateway, wscutils.NewErrorResponse(MsgIDUpstream, ErrcodeUpstream))
	default:
		s.Logger.Error(err).LogActivity("request failed", nil)
		c.JSON(http.StatusInternalServerError, wscutils.NewErrorResponse(MsgIDInternal, ErrcodeInternal))
	}
}
