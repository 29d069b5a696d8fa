package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-svc/cache"
	"shop-svc/middleware"
	"shop-svc/models"
	"shop-svc/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ItemHandler struct {
	items       *store.ItemStore
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewItemHandler(items *store.ItemStore, redisClient *redis.Client, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		items:       items,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (h *ItemHandler) List(c *gin.Context) {
	ctx, span := otel.Tracer("shop-svc").Start(c.Request.Context(), "ListItems")
	defer span.End()

	filter := store.ItemFilter{
		NameContains: c.Query("name_contains"),
		Ordering:     c.Query("ordering"),
	}
	if raw := c.Query("price_lt"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price_lt"})
			return
		}
		filter.PriceLT = &price
	}
	if raw := c.Query("price_gt"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price_gt"})
			return
		}
		filter.PriceGT = &price
	}

	items, err := h.items.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list items",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("items.count", len(items)))
	c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) Get(c *gin.Context) {
	ctx, span := otel.Tracer("shop-svc").Start(c.Request.Context(), "GetItem")
	defer span.End()

	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}
	span.SetAttributes(attribute.Int("item.id", id))

	if h.redisClient != nil {
		if cachedData, err := cache.GetItem(ctx, h.redisClient, raw); err == nil {
			var item models.Item
			if err := json.Unmarshal(cachedData, &item); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.JSON(http.StatusOK, item)
				return
			}
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
	}

	item, err := h.items.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to fetch item",
			zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if h.redisClient != nil {
		cache.SetItem(ctx, h.redisClient, raw, item, 5*time.Minute)
	}

	c.JSON(http.StatusOK, item)
}
