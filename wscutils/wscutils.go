// Package wscutils defines the request and response envelopes shared by all
// web services in this repository, together with helpers for binding,
// validating and answering requests in that shape.
//
// Every response carries a status, a data payload and a list of messages.
// Error messages identify the problem twice: errcode is a stable token for
// programs, msgid picks the human-readable template the client renders. The
// mapping from validation tags to both is registered once at service startup
// via the Set* functions.
package wscutils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	SuccessStatus = "success"
	ErrorStatus   = "error"
)

// Request is the standard envelope of an incoming request.
type Request struct {
	Data any `json:"data" binding:"required"`
}

// Response is the standard envelope of an outgoing response.
type Response struct {
	Status   string         `json:"status"`
	Data     any            `json:"data"`
	Messages []ErrorMessage `json:"messages"`
}

// ErrorMessage is one entry in the messages part of a response. Field names
// the offending request field where one exists, Vals carries the values the
// client needs to fill the message template.
type ErrorMessage struct {
	MsgID   int      `json:"msgid"`
	ErrCode string   `json:"errcode"`
	Field   string   `json:"field,omitempty"`
	Vals    []string `json:"vals,omitempty"`
}

// Registries mapping validation tags to message IDs and error codes, with
// fallbacks for tags that were never registered. Services fill these once
// at startup.
var (
	validationTagToMsgID   = make(map[string]int)
	validationTagToErrCode = make(map[string]string)
	defaultMsgID           int
	defaultErrCode         = ErrcodeUnknown
	msgIDInvalidJSON       int
	errCodeInvalidJSON     = ErrcodeInvalidJson
)

// SetValidationTagToMsgIDMap registers the message ID to use for each
// validation tag.
func SetValidationTagToMsgIDMap(m map[string]int) {
	validationTagToMsgID = m
}

// SetValidationTagToErrCodeMap registers the error code to use for each
// validation tag.
func SetValidationTagToErrCodeMap(m map[string]string) {
	validationTagToErrCode = m
}

// SetDefaultMsgID sets the message ID used for unregistered validation tags.
func SetDefaultMsgID(msgID int) {
	defaultMsgID = msgID
}

// SetDefaultErrCode sets the error code used for unregistered validation tags.
func SetDefaultErrCode(errCode string) {
	defaultErrCode = errCode
}

// SetMsgIDInvalidJSON sets the message ID reported when a request body
// cannot be parsed.
func SetMsgIDInvalidJSON(msgID int) {
	msgIDInvalidJSON = msgID
}

// SetErrCodeInvalidJSON sets the error code reported when a request body
// cannot be parsed.
func SetErrCodeInvalidJSON(errCode string) {
	errCodeInvalidJSON = errCode
}

// BuildErrorMessage assembles an ErrorMessage. Pass an empty fieldName for
// errors that are not tied to one request field.
func BuildErrorMessage(msgID int, errCode string, fieldName string, vals ...string) ErrorMessage {
	return ErrorMessage{
		MsgID:   msgID,
		ErrCode: errCode,
		Field:   fieldName,
		Vals:    vals,
	}
}

// WscValidate runs struct tag validation on data and converts each failure
// into an ErrorMessage using the registered tag mappings. getVals supplies
// the template values for a failure; it is written by the caller because
// only the caller knows which values the client's message templates expect.
func WscValidate[T any](data T, getVals func(err validator.FieldError) []string) []ErrorMessage {
	var validationErrors []ErrorMessage

	validate := validator.New()
	err := validate.Struct(data)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, vErr := range validationErrs {
				msgID, ok := validationTagToMsgID[vErr.Tag()]
				if !ok {
					msgID = defaultMsgID
				}
				errCode, ok := validationTagToErrCode[vErr.Tag()]
				if !ok {
					errCode = defaultErrCode
				}
				vals := getVals(vErr)
				validationErrors = append(validationErrors,
					BuildErrorMessage(msgID, errCode, vErr.Field(), vals...))
			}
		}
	}
	return validationErrors
}

// NewResponse creates a response envelope with the given status, payload
// and messages.
func NewResponse(status string, data any, messages []ErrorMessage) *Response {
	return &Response{
		Status:   status,
		Data:     data,
		Messages: messages,
	}
}

// NewSuccessResponse creates a success envelope around data.
func NewSuccessResponse(data any) *Response {
	return NewResponse(SuccessStatus, data, nil)
}

// NewErrorResponse creates an error envelope carrying a single message with
// no field.
func NewErrorResponse(msgID int, errCode string) *Response {
	return NewResponse(ErrorStatus, nil, []ErrorMessage{BuildErrorMessage(msgID, errCode, "")})
}

// BindJSON binds the data part of the request envelope into data. On parse
// failure it has already answered the request with a 400 invalid JSON
// response; the caller only needs to return.
func BindJSON(c *gin.Context, data any) error {
	req := Request{Data: data}
	if err := c.ShouldBindJSON(&req); err != nil {
		SendErrorResponse(c, NewErrorResponse(msgIDInvalidJSON, errCodeInvalidJSON))
		return err
	}
	return nil
}

// GetRequestUser extracts the authenticated user set on the gin context by
// the identity middleware.
func GetRequestUser(c *gin.Context) (string, error) {
	requestUser, exists := c.Get("RequestUser")
	if !exists {
		return "", fmt.Errorf("missing_request_user")
	}

	requestUserStr, ok := requestUser.(string)
	if !ok {
		return "", fmt.Errorf("invalid_request_user")
	}

	return requestUserStr, nil
}

// SendSuccessResponse answers the request with HTTP 200 and the given
// envelope.
func SendSuccessResponse(c *gin.Context, response *Response) {
	c.JSON(http.StatusOK, response)
}

// SendErrorResponse answers the request with HTTP 400 and the given
// envelope. Handlers that need a different status code call c.JSON
// directly with the envelope.
func SendErrorResponse(c *gin.Context, response *Response) {
	c.JSON(http.StatusBadRequest, response)
}
