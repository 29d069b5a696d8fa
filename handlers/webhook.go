package handlers

import (
	"errors"
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

// WebhookHandler receives the provider's asynchronous status notifications.
// A missing id or an unknown payment is a silent success: replayed and
// foreign notifications must not trigger provider retries.
type WebhookHandler struct {
	payments *store.PaymentStore
	gateway  gateway.Client
	producer sarama.SyncProducer
	cfg      config.Config
	logger   *zap.Logger
}

func NewWebhookHandler(
	payments *store.PaymentStore,
	gw gateway.Client,
	producer sarama.SyncProducer,
	cfg config.Config,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		gateway:  gw,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

func (h *WebhookHandler) UpdatePayment(c *gin.Context) {
	ctx, span := otel.Tracer("shop-svc").Start(c.Request.Context(), "UpdatePayment")
	defer span.End()

	id := c.PostForm("id")
	if id == "" {
		c.Status(http.StatusOK)
		return
	}

	span.SetAttributes(attribute.String("payment.id", id))

	payment, err := h.payments.Get(ctx, id)
	if errors.Is(err, store.ErrPaymentNotFound) {
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load payment",
			zap.String("payment_id", id), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	if err := h.payments.Reconcile(ctx, h.gateway, payment); err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrMetadataMismatch) {
			h.logger.Error("Payment integrity violation",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.String("payment_id", id),
				zap.Error(err))
		} else {
			h.logger.Error("Payment reconciliation failed",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.String("payment_id", id),
				zap.Error(err))
		}
		// Non-2xx keeps the notification in the provider's retry queue.
		c.Status(http.StatusInternalServerError)
		return
	}

	middleware.RecordPaymentReconciled(string(payment.Status))

	if h.producer != nil {
		event := models.OrderEvent{
			OrderID:   payment.OrderID,
			PaymentID: payment.ID,
			Status:    payment.Status,
			EventType: "payment_updated",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, h.cfg.KafkaTopic, event, h.logger); err != nil {
			h.logger.Error("Failed to publish payment_updated event", zap.Error(err))
		}
	}

	h.logger.Info("Payment reconciled",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
	)
	c.Status(http.StatusOK)
}
