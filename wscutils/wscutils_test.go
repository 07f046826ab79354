package wscutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setup()
	os.Exit(m.Run())
}

func setup() {
	SetValidationTagToMsgIDMap(map[string]int{
		"required": 101,
		"email":    102,
		"min":      103,
	})
	SetValidationTagToErrCodeMap(map[string]string{
		"required": "required",
		"email":    "email_format",
		"min":      "too_short",
	})
	SetDefaultMsgID(9999)
	SetDefaultErrCode(ErrcodeUnknown)
	SetMsgIDInvalidJSON(1001)
	SetErrCodeInvalidJSON(ErrcodeInvalidJson)
}

func testGetVals(err validator.FieldError) []string {
	switch err.Tag() {
	case "min":
		return []string{err.Param()}
	default:
		return nil
	}
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestBuildErrorMessage(t *testing.T) {
	msg := BuildErrorMessage(103, "too_short", "JD", "10")
	assert.Equal(t, 103, msg.MsgID)
	assert.Equal(t, "too_short", msg.ErrCode)
	assert.Equal(t, "JD", msg.Field)
	assert.Equal(t, []string{"10"}, msg.Vals)

	// Field and vals stay off the wire when empty.
	bare := BuildErrorMessage(42, "not_found", "")
	data, err := json.Marshal(bare)
	require.NoError(t, err)
	assert.JSONEq(t, `{"msgid":42,"errcode":"not_found"}`, string(data))
}

func TestNewResponses(t *testing.T) {
	success := NewSuccessResponse(map[string]string{"id": "b1"})
	assert.Equal(t, SuccessStatus, success.Status)
	assert.Nil(t, success.Messages)

	failure := NewErrorResponse(55, "not_found")
	assert.Equal(t, ErrorStatus, failure.Status)
	assert.Nil(t, failure.Data)
	require.Len(t, failure.Messages, 1)
	assert.Equal(t, 55, failure.Messages[0].MsgID)
	assert.Equal(t, "not_found", failure.Messages[0].ErrCode)
}

func TestSendSuccessResponse(t *testing.T) {
	c, w := newTestContext(t)

	SendSuccessResponse(c, NewSuccessResponse(map[string]any{"id": "7b0a"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"id":"7b0a"},"messages":null}`, w.Body.String())
}

func TestSendErrorResponse(t *testing.T) {
	c, w := newTestContext(t)

	SendErrorResponse(c, NewErrorResponse(55, "not_found"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"error","data":null,"messages":[{"msgid":55,"errcode":"not_found"}]}`, w.Body.String())
}

func TestWscValidate(t *testing.T) {
	type screenRequest struct {
		Owner string `validate:"required,email"`
		JD    string `validate:"required,min=10"`
	}

	tests := []struct {
		name string
		req  screenRequest
		want []ErrorMessage
	}{
		{
			name: "valid request yields no messages",
			req:  screenRequest{Owner: "hiring@example.com", JD: "ten chars or more"},
			want: nil,
		},
		{
			name: "missing field maps the required tag",
			req:  screenRequest{Owner: "hiring@example.com"},
			want: []ErrorMessage{
				{MsgID: 101, ErrCode: "required", Field: "JD"},
			},
		},
		{
			name: "tag params flow into vals",
			req:  screenRequest{Owner: "hiring@example.com", JD: "short"},
			want: []ErrorMessage{
				{MsgID: 103, ErrCode: "too_short", Field: "JD", Vals: []string{"10"}},
			},
		},
		{
			name: "each failing field gets its own message",
			req:  screenRequest{Owner: "not-an-email", JD: "short"},
			want: []ErrorMessage{
				{MsgID: 102, ErrCode: "email_format", Field: "Owner"},
				{MsgID: 103, ErrCode: "too_short", Field: "JD", Vals: []string{"10"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WscValidate(tt.req, testGetVals)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWscValidateUnregisteredTagFallsBack(t *testing.T) {
	type capped struct {
		Code string `validate:"max=4"`
	}

	got := WscValidate(capped{Code: "toolong"}, testGetVals)
	require.Len(t, got, 1)
	assert.Equal(t, 9999, got[0].MsgID)
	assert.Equal(t, ErrcodeUnknown, got[0].ErrCode)
	assert.Equal(t, "Code", got[0].Field)
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		Action string `json:"action"`
	}

	t.Run("binds the data envelope", func(t *testing.T) {
		c, w := newTestContext(t)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"data":{"action":"pause"}}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var p payload
		err := BindJSON(c, &p)
		require.NoError(t, err)
		assert.Equal(t, "pause", p.Action)
		assert.Empty(t, w.Body.String())
	})

	t.Run("answers 400 on malformed JSON", func(t *testing.T) {
		c, w := newTestContext(t)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"data":`))
		c.Request.Header.Set("Content-Type", "application/json")

		var p payload
		err := BindJSON(c, &p)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"error","data":null,"messages":[{"msgid":1001,"errcode":"invalid_json"}]}`, w.Body.String())
	})

	t.Run("answers 400 when the data key is missing", func(t *testing.T) {
		c, w := newTestContext(t)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var p payload
		err := BindJSON(c, &p)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetRequestUser(t *testing.T) {
	t.Run("returns the user set by middleware", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("RequestUser", "alice@example.com")

		user, err := GetRequestUser(c)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user)
	})

	t.Run("errors when no user was set", func(t *testing.T) {
		c, _ := newTestContext(t)

		_, err := GetRequestUser(c)
		assert.ErrorContains(t, err, "missing_request_user")
	})

	t.Run("errors when the value is not a string", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("RequestUser", 42)

		_, err := GetRequestUser(c)
		assert.ErrorContains(t, err, "invalid_request_user")
	})
}
