package ordernotify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/paymentprovider"
)

type MockParser struct {
	mock.Mock
}

func (m *MockParser) ParseNotification(header http.Header, body []byte) (*paymentprovider.Transaction, error) {
	args := m.Called(header, body)
	tx, _ := args.Get(0).(*paymentprovider.Transaction)
	return tx, args.Error(1)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) SettlePayment(ctx context.Context, orderNo, transactionID string) error {
	return m.Called(ctx, orderNo, transactionID).Error(0)
}

func paid(orderNo string) *paymentprovider.Transaction {
	return &paymentprovider.Transaction{
		OutTradeNo:    orderNo,
		TransactionID: "wx-" + orderNo,
		TradeState:    paymentprovider.TradeStateSuccess,
	}
}

func TestNotifyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		setupMocks     func(*MockParser, *MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "settled",
			setupMocks: func(p *MockParser, s *MockService) {
				p.On("ParseNotification", mock.Anything, mock.Anything).Return(paid("A1"), nil)
				s.On("SettlePayment", mock.Anything, "A1", "wx-A1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"code":"SUCCESS"}`,
		},
		{
			name: "bad signature never reaches the service",
			setupMocks: func(p *MockParser, _ *MockService) {
				p.On("ParseNotification", mock.Anything, mock.Anything).Return(nil, errors.New("signature mismatch"))
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"code":"FAIL"`,
		},
		{
			name: "non-success trade state is acknowledged",
			setupMocks: func(p *MockParser, _ *MockService) {
				tx := paid("A2")
				tx.TradeState = "CLOSED"
				p.On("ParseNotification", mock.Anything, mock.Anything).Return(tx, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"code":"SUCCESS"}`,
		},
		{
			name: "redelivered notification",
			setupMocks: func(p *MockParser, s *MockService) {
				p.On("ParseNotification", mock.Anything, mock.Anything).Return(paid("A3"), nil)
				s.On("SettlePayment", mock.Anything, "A3", "wx-A3").Return(apperr.ErrAlreadySettled)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"message":"invalid order"`,
		},
		{
			name: "unknown order",
			setupMocks: func(p *MockParser, s *MockService) {
				p.On("ParseNotification", mock.Anything, mock.Anything).Return(paid("A4"), nil)
				s.On("SettlePayment", mock.Anything, "A4", "wx-A4").Return(apperr.ErrOrderNotFound)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"FAIL"`,
		},
		{
			name: "storage failure asks for redelivery",
			setupMocks: func(p *MockParser, s *MockService) {
				p.On("ParseNotification", mock.Anything, mock.Anything).Return(paid("A5"), nil)
				s.On("SettlePayment", mock.Anything, "A5", "wx-A5").Return(errors.New("tx aborted"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"message":"internal error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(MockParser)
			svc := new(MockService)
			tt.setupMocks(parser, svc)

			req := httptest.NewRequest(http.MethodPost, "/member/order/notify", bytes.NewBufferString(`{"id":"evt"}`))
			w := httptest.NewRecorder()

			New(logger, parser, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			parser.AssertExpectations(t)
			svc.AssertExpectations(t)
		})
	}
}
