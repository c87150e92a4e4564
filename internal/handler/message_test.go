package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wagateway/gateway-server-go/internal/errors"
	"github.com/wagateway/gateway-server-go/internal/httputil"
	"github.com/wagateway/gateway-server-go/internal/service"
)

func postSend(h *MessageHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestMessageHandler_Send(t *testing.T) {
	t.Run("returns 400 on empty body without touching the session", func(t *testing.T) {
		sender := new(mockSender)
		rec := postSend(NewMessageHandler(sender), "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns 400 when phone or message is missing", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{"missing phone", `{"message":"hi"}`, "phone"},
			{"missing message", `{"phone":"5511999999999"}`, "message"},
			{"empty object", `{}`, "phone"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				sender := new(mockSender)
				rec := postSend(NewMessageHandler(sender), tc.body)

				require.Equal(t, http.StatusBadRequest, rec.Code)

				var resp httputil.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, apperrors.ErrCodeMissingRequired, resp.Code)
				assert.Contains(t, resp.Error, tc.field)
				sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("returns 503 when no session is open", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendMessage", mock.Anything, "5511999999999", "hi").
			Return(nil, apperrors.SessionUnavailable())

		rec := postSend(NewMessageHandler(sender), `{"phone":"5511999999999","message":"hi"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"session_unavailable"`)
	})

	t.Run("returns 500 when the send fails", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendMessage", mock.Anything, "5511999999999", "hi").
			Return(nil, apperrors.SendFailed(errors.New("socket closed")))

		rec := postSend(NewMessageHandler(sender), `{"phone":"5511999999999","message":"hi"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"SEND_FAILED"`)
	})

	t.Run("returns 200 with success status", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendMessage", mock.Anything, "+55 (11) 99999-9999", "hello").
			Return(&service.SendResult{MessageID: "3EB0ABC", Phone: "5511999999999"}, nil)

		rec := postSend(NewMessageHandler(sender), `{"phone":"+55 (11) 99999-9999","message":"hello"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp sendMessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "3EB0ABC", resp.MessageID)
		assert.Contains(t, resp.Message, "+55 (11) 99999-9999")
		sender.AssertExpectations(t)
	})
}
