package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"PaymentWebhooks/internal/api/domain/order"
	"PaymentWebhooks/internal/api/domain/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProcessor struct {
	events []payment.Event
	err    error
}

func (s *stubProcessor) Process(_ context.Context, ev payment.Event) (payment.Result, error) {
	s.events = append(s.events, ev)
	return payment.Result{Outcome: ev.Outcome}, s.err
}

func webhookEngine(h *WebhookHandler) *gin.Engine {
	engine := gin.New()
	engine.POST("/webhooks/invoices", h.HandleInvoice)
	return engine
}

func TestWebhookHandler_HandleInvoice(t *testing.T) {
	testCases := []struct {
		name          string
		body          string
		processErr    error
		production    bool
		expectedCode  int
		expectedBody  string
		expectedCalls int
	}{
		{
			name:          "paid delivery acknowledged",
			body:          `{"id":"inv_1","status":"PAID"}`,
			expectedCode:  http.StatusOK,
			expectedBody:  `{"success":true}`,
			expectedCalls: 1,
		},
		{
			name:          "unhandled event acknowledged",
			body:          `{"event":"invoice.created"}`,
			expectedCode:  http.StatusOK,
			expectedBody:  `{"success":true}`,
			expectedCalls: 1,
		},
		{
			name:         "malformed json",
			body:         `{"id":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"Invalid JSON payload"}`,
		},
		{
			name:         "invalid utf-8 rejected before storage",
			body:         "{\"id\":\"inv_\xff\xfe\",\"status\":\"PAID\"}",
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"Invalid JSON payload"}`,
		},
		{
			name:         "array top level",
			body:         `[{"id":"inv_1"}]`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"Invalid JSON payload"}`,
		},
		{
			name:          "store failure exposes error outside production",
			body:          `{"id":"inv_1","status":"PAID"}`,
			processErr:    errors.New("resolve order: connection reset"),
			expectedCode:  http.StatusInternalServerError,
			expectedBody:  `{"message":"resolve order: connection reset"}`,
			expectedCalls: 1,
		},
		{
			name:          "store failure hidden in production",
			body:          `{"id":"inv_1","status":"PAID"}`,
			processErr:    errors.New("resolve order: connection reset"),
			production:    true,
			expectedCode:  http.StatusInternalServerError,
			expectedBody:  `{"message":"Internal server error"}`,
			expectedCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			processor := &stubProcessor{err: tc.processErr}
			engine := webhookEngine(NewWebhookHandler(processor, 1024, tc.production))
			w := httptest.NewRecorder()

			// when
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/invoices", strings.NewReader(tc.body)))

			// then
			assert.Equal(t, tc.expectedCode, w.Code)
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
			assert.Len(t, processor.events, tc.expectedCalls)
		})
	}
}

func TestWebhookHandler_BodyLimit(t *testing.T) {
	const limit = 64
	oversized := `{"id":"inv_1","status":"PAID","pad":"` + strings.Repeat("x", limit) + `"}`

	t.Run("declared content length over limit", func(t *testing.T) {
		processor := &stubProcessor{}
		engine := webhookEngine(NewWebhookHandler(processor, limit, false))
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/invoices", strings.NewReader(oversized)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"message":"Payload too large"}`, w.Body.String())
		assert.Empty(t, processor.events)
	})

	t.Run("undeclared oversized body", func(t *testing.T) {
		processor := &stubProcessor{}
		engine := webhookEngine(NewWebhookHandler(processor, limit, false))
		req := httptest.NewRequest(http.MethodPost, "/webhooks/invoices", strings.NewReader(oversized))
		req.ContentLength = -1
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Empty(t, processor.events)
	})

	t.Run("oversized invalid json is still 413", func(t *testing.T) {
		processor := &stubProcessor{}
		engine := webhookEngine(NewWebhookHandler(processor, limit, false))
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/invoices", strings.NewReader(strings.Repeat("{", limit+1))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestEventsHandler_GetEvents(t *testing.T) {
	t.Run("binds and splits filters", func(t *testing.T) {
		// given
		ctrl := gomock.NewController(t)
		log := order.NewMockEventLog(ctrl)
		log.EXPECT().GetWebhookEvents(gomock.Any(), order.EventQuery{
			OrderIDs: []string{"ord_1", "ord_2", "ord_3"},
			Outcomes: []string{"paid"},
			Limit:    10,
			Cursor:   "abc",
			SortAsc:  true,
		}).Return(order.EventPage{Items: []order.WebhookEvent{{ID: "e1"}}, NextCursor: "next", HasMore: true}, nil)

		engine := gin.New()
		engine.GET("/webhooks/events", NewEventsHandler(log).GetEvents)
		w := httptest.NewRecorder()

		// when
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/webhooks/events?order_ids=ord_1,ord_2&order_ids=ord_3&outcomes=paid&limit=10&cursor=abc&sort_asc=true", nil))

		// then
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"next_cursor":"next"`)
		assert.Contains(t, w.Body.String(), `"has_more":true`)
	})

	testCases := []struct {
		name         string
		url          string
		repoErr      error
		expectedCode int
	}{
		{name: "non numeric limit", url: "/webhooks/events?limit=ten", expectedCode: http.StatusBadRequest},
		{name: "bad cursor", url: "/webhooks/events?cursor=zzz", repoErr: fmt.Errorf("%w: bad cursor", order.ErrInvalidQuery), expectedCode: http.StatusBadRequest},
		{name: "store error", url: "/webhooks/events", repoErr: errors.New("pool closed"), expectedCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			log := order.NewMockEventLog(ctrl)
			if tc.repoErr != nil {
				log.EXPECT().GetWebhookEvents(gomock.Any(), gomock.Any()).Return(order.EventPage{}, tc.repoErr)
			}

			engine := gin.New()
			engine.GET("/webhooks/events", NewEventsHandler(log).GetEvents)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.url, nil))

			assert.Equal(t, tc.expectedCode, w.Code)
		})
	}
}
