package handlers

import (
	"fmt"
	"net/http"

	"shop-svc/config"
	"shop-svc/gateway"
	"shop-svc/kafka"
	"shop-svc/middleware"
	"shop-svc/models"
	"shop-svc/store"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PurchaseHandler converts a validated cart into an order plus a
// provider-backed payment. The order and the payment are deliberately not
// written in one transaction: the provider call sits between them, so a
// failed call is compensated by deleting the order instead.
type PurchaseHandler struct {
	items    *store.ItemStore
	orders   *store.OrderStore
	payments *store.PaymentStore
	gateway  gateway.Client
	producer sarama.SyncProducer
	cfg      config.Config
	logger   *zap.Logger
}

func NewPurchaseHandler(
	items *store.ItemStore,
	orders *store.OrderStore,
	payments *store.PaymentStore,
	gw gateway.Client,
	producer sarama.SyncProducer,
	cfg config.Config,
	logger *zap.Logger,
) *PurchaseHandler {
	return &PurchaseHandler{
		items:    items,
		orders:   orders,
		payments: payments,
		gateway:  gw,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

func (h *PurchaseHandler) Purchase(c *gin.Context) {
	ctx, span := otel.Tracer("shop-svc").Start(c.Request.Context(), "Purchase")
	defer span.End()

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int("user_id", userID),
		attribute.Int("cart.size", len(req.Items)),
	)

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"items is empty"}})
		return
	}

	// Every entry is checked before anything is created.
	var vErrs models.ValidationErrors
	var ids []int
	seen := make(map[int]bool)
	for _, entry := range req.Items {
		if entry.Quantity <= 0 {
			vErrs = append(vErrs, fmt.Sprintf("invalid quantity : %d", entry.Quantity))
		}
		if !seen[entry.ItemID] {
			seen[entry.ItemID] = true
			ids = append(ids, entry.ItemID)
		}
	}

	items, err := h.items.GetByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch cart items",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	for _, id := range ids {
		if _, found := items[id]; !found {
			vErrs = append(vErrs, fmt.Sprintf("invalid item id : %d", id))
		}
	}

	if len(vErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": vErrs.Messages()})
		return
	}

	// Collapse duplicate item ids into one line with the summed quantity.
	quantities := make(map[int]int)
	for _, entry := range req.Items {
		quantities[entry.ItemID] += entry.Quantity
	}
	lines := make([]store.OrderLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, store.OrderLine{Item: items[id], Quantity: quantities[id]})
	}

	order, err := h.orders.Create(ctx, userID, lines)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create order",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("order.id", order.ID))

	total := order.Total()
	provider, err := h.gateway.CreatePayment(ctx, gateway.CreatePaymentRequest{
		Amount:      gateway.Amount{Currency: "EUR", Value: total.StringFixed(2)},
		Description: h.cfg.Description(order.ID),
		RedirectURL: h.cfg.RedirectURL(order.ID),
		Metadata:    order.ID,
		WebhookURL:  h.cfg.WebhookURL(),
		Method:      h.cfg.MolliePaymentMethod,
	})
	if err != nil {
		// Compensating rollback: the order must not survive a failed payment
		// creation. The gateway error itself is not surfaced to the caller.
		span.RecordError(err)
		h.logger.Error("Payment creation failed, rolling back order",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Int("order_id", order.ID),
			zap.Error(err))
		if delErr := h.orders.Delete(ctx, order.ID); delErr != nil {
			h.logger.Error("Failed to roll back order",
				zap.Int("order_id", order.ID), zap.Error(delErr))
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment creation failed"})
		return
	}

	status, err := models.ParsePaymentStatus(provider.Status)
	if err != nil {
		status = models.PaymentStatusOpen
		h.logger.Warn("Provider returned unknown payment status, defaulting to open",
			zap.String("payment_id", provider.ID), zap.String("status", provider.Status))
	}

	payment := &models.Payment{
		ID:          provider.ID,
		OrderID:     order.ID,
		Status:      status,
		CheckoutURL: provider.CheckoutURL,
	}
	if err := h.payments.Create(ctx, payment); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to persist payment",
			zap.String("payment_id", payment.ID), zap.Int("order_id", order.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	middleware.RecordOrderCreated()

	if h.producer != nil {
		event := models.OrderEvent{
			OrderID:   order.ID,
			UserID:    userID,
			PaymentID: payment.ID,
			Total:     total.StringFixed(2),
			Status:    payment.Status,
			EventType: "order_created",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, h.cfg.KafkaTopic, event, h.logger); err != nil {
			h.logger.Error("Failed to publish order_created event", zap.Error(err))
		}
	}

	h.logger.Info("Purchase completed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("total", total.StringFixed(2)),
	)
	c.JSON(http.StatusOK, models.PurchaseResponse{CheckoutURL: payment.CheckoutURL})
}
