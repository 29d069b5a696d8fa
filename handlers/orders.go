package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-svc/middleware"
	"shop-svc/store"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderHandler serves the read-only order listings, always scoped to the
// requesting user.
type OrderHandler struct {
	orders   *store.OrderStore
	payments *store.PaymentStore
	logger   *zap.Logger
}

func NewOrderHandler(orders *store.OrderStore, payments *store.PaymentStore, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		logger:   logger,
	}
}

func (h *OrderHandler) List(c *gin.Context) {
	ctx, span := otel.Tracer("shop-svc").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	filter := store.OrderFilter{Ordering: c.Query("ordering")}
	if raw := c.Query("date_lt"); raw != "" {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_lt"})
			return
		}
		filter.DateLT = &date
	}
	if raw := c.Query("date_gt"); raw != "" {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_gt"})
			return
		}
		filter.DateGT = &date
	}

	orders, err := h.orders.ListByUser(ctx, userID, filter)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list orders",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))

	response := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		entry := gin.H{
			"order_id": order.ID,
			"total":    order.Total().StringFixed(2),
			"date":     order.Date,
		}
		payment, err := h.payments.GetByOrder(ctx, order.ID)
		if err == nil {
			entry["status"] = payment.Status
			entry["checkout_url"] = payment.CheckoutURL
		} else if !errors.Is(err, store.ErrPaymentNotFound) {
			span.RecordError(err)
			h.logger.Error("Failed to load payment for order",
				zap.Int("order_id", order.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, response)
}

func (h *OrderHandler) ListDetails(c *gin.Context) {
	ctx, span := otel.Tracer("shop-svc").Start(c.Request.Context(), "ListOrderDetails")
	defer span.End()

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	order, err := h.orders.Get(ctx, orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	// Other users' orders look like they do not exist.
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	filter := store.DetailFilter{Ordering: c.Query("ordering")}
	if raw := c.Query("quantity_lt"); raw != "" {
		quantity, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity_lt"})
			return
		}
		filter.QuantityLT = &quantity
	}
	if raw := c.Query("quantity_gt"); raw != "" {
		quantity, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity_gt"})
			return
		}
		filter.QuantityGT = &quantity
	}

	details, err := h.orders.ListDetails(ctx, orderID, filter)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list order details",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, details)
}
