package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shop-svc/config"
	"shop-svc/gateway"
	"shop-svc/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Mock Kafka producer for testing.
type mockProducer struct {
	sent []*sarama.ProducerMessage
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.sent = append(m.sent, msg)
	return 0, 0, nil
}

func (m *mockProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	m.sent = append(m.sent, msgs...)
	return nil
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return sarama.ProducerTxnFlagReady }

func (m *mockProducer) IsTransactional() bool { return false }

func (m *mockProducer) BeginTxn() error { return nil }

func (m *mockProducer) CommitTxn() error { return nil }

func (m *mockProducer) AbortTxn() error { return nil }

func (m *mockProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (m *mockProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

// Fake gateway for purchase tests.
type fakeGateway struct {
	createPaymentFunc func(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.ProviderPayment, error)
	getPaymentFunc    func(ctx context.Context, id string) (*gateway.ProviderPayment, error)
	createRequests    []gateway.CreatePaymentRequest
}

func (f *fakeGateway) CreatePayment(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.ProviderPayment, error) {
	f.createRequests = append(f.createRequests, req)
	if f.createPaymentFunc != nil {
		return f.createPaymentFunc(ctx, req)
	}
	return &gateway.ProviderPayment{
		ID:          "tr_WDqYK6vllg",
		Status:      "open",
		CheckoutURL: "https://checkout.example.com/tr_WDqYK6vllg",
		Metadata:    req.Metadata,
	}, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, id string) (*gateway.ProviderPayment, error) {
	if f.getPaymentFunc != nil {
		return f.getPaymentFunc(ctx, id)
	}
	return &gateway.ProviderPayment{ID: id, Status: "paid"}, nil
}

func testConfig() config.Config {
	return config.Config{
		KafkaTopic:                "order_events",
		MollieDescriptionTemplate: "Order #{order_id}",
		MollieRedirectURLTemplate: "http://localhost:8080/orders/{order_id}",
		MollieBaseURL:             "http://localhost:8080",
	}
}

func setupPurchaseTest(t *testing.T, gw gateway.Client) (sqlmock.Sqlmock, *fakeGateway, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fake, _ := gw.(*fakeGateway)
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewPurchaseHandler(
		store.NewItemStore(db),
		store.NewOrderStore(db),
		store.NewPaymentStore(db),
		gw,
		&mockProducer{},
		testConfig(),
		logger,
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/purchase", func(c *gin.Context) { c.Set("user_id", 7) }, handler.Purchase)

	return mock, fake, router
}

func postPurchase(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/purchase", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPurchase_Success(t *testing.T) {
	gw := &fakeGateway{}
	mock, fake, router := setupPurchaseTest(t, gw)

	mock.ExpectQuery("SELECT id, name, price FROM items WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(1, "widget", "9.99"))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date"}).AddRow(42, time.Now()))
	mock.ExpectQuery("INSERT INTO order_details").
		WithArgs(42, 1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs("tr_WDqYK6vllg", 42, "open", "https://checkout.example.com/tr_WDqYK6vllg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postPurchase(router, `{"items": [{"item_id": 1, "quantity": 2}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["checkout_url"] != "https://checkout.example.com/tr_WDqYK6vllg" {
		t.Errorf("unexpected checkout_url: %q", resp["checkout_url"])
	}

	if len(fake.createRequests) != 1 {
		t.Fatalf("expected 1 create-payment call, got %d", len(fake.createRequests))
	}
	createReq := fake.createRequests[0]
	if createReq.Amount.Value != "19.98" || createReq.Amount.Currency != "EUR" {
		t.Errorf("unexpected amount: %+v", createReq.Amount)
	}
	if createReq.Metadata != 42 {
		t.Errorf("unexpected metadata: %d", createReq.Metadata)
	}
	if createReq.Description != "Order #42" {
		t.Errorf("unexpected description: %q", createReq.Description)
	}
	if createReq.RedirectURL != "http://localhost:8080/orders/42" {
		t.Errorf("unexpected redirect url: %q", createReq.RedirectURL)
	}
	if createReq.WebhookURL != "http://localhost:8080/payments/webhook" {
		t.Errorf("unexpected webhook url: %q", createReq.WebhookURL)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPurchase_DuplicateItemsCollapse(t *testing.T) {
	gw := &fakeGateway{}
	mock, _, router := setupPurchaseTest(t, gw)

	mock.ExpectQuery("SELECT id, name, price FROM items WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(1, "widget", "9.99"))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date"}).AddRow(42, time.Now()))
	// One detail row with the summed quantity, not two rows.
	mock.ExpectQuery("INSERT INTO order_details").
		WithArgs(42, 1, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postPurchase(router, `{"items": [{"item_id": 1, "quantity": 2}, {"item_id": 1, "quantity": 3}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPurchase_EmptyCart(t *testing.T) {
	_, _, router := setupPurchaseTest(t, &fakeGateway{})

	w := postPurchase(router, `{"items": []}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestPurchase_UnknownItem(t *testing.T) {
	gw := &fakeGateway{}
	mock, fake, router := setupPurchaseTest(t, gw)

	// Item 99 does not exist; no order may be created.
	mock.ExpectQuery("SELECT id, name, price FROM items WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(1, "widget", "9.99"))

	w := postPurchase(router, `{"items": [{"item_id": 1, "quantity": 2}, {"item_id": 99, "quantity": 1}]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid item id : 99") {
		t.Errorf("expected invalid item id message, got %s", w.Body.String())
	}
	if len(fake.createRequests) != 0 {
		t.Error("gateway must not be called for an invalid cart")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPurchase_NonPositiveQuantity(t *testing.T) {
	gw := &fakeGateway{}
	mock, fake, router := setupPurchaseTest(t, gw)

	mock.ExpectQuery("SELECT id, name, price FROM items WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(1, "widget", "9.99"))

	w := postPurchase(router, `{"items": [{"item_id": 1, "quantity": 0}]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid quantity : 0") {
		t.Errorf("expected invalid quantity message, got %s", w.Body.String())
	}
	if len(fake.createRequests) != 0 {
		t.Error("gateway must not be called for an invalid cart")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPurchase_GatewayFailureRollsBackOrder(t *testing.T) {
	gw := &fakeGateway{
		createPaymentFunc: func(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.ProviderPayment, error) {
			return nil, &gateway.Error{StatusCode: 503, Detail: "service unavailable"}
		},
	}
	mock, _, router := setupPurchaseTest(t, gw)

	mock.ExpectQuery("SELECT id, name, price FROM items WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(1, "widget", "9.99"))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date"}).AddRow(42, time.Now()))
	mock.ExpectQuery("INSERT INTO order_details").
		WithArgs(42, 1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectCommit()
	// Compensating rollback: the order is deleted, no payment row is written.
	mock.ExpectExec("DELETE FROM orders WHERE id = \\$1").
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postPurchase(router, `{"items": [{"item_id": 1, "quantity": 2}]}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusBadGateway, w.Code, w.Body.String())
	}
	// The gateway error must not leak into the response.
	if strings.Contains(w.Body.String(), "service unavailable") {
		t.Errorf("gateway error leaked to caller: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
