package handler

import (
	"errors"
	"net/http"
	"time"

	"purchase-order-service/internal/model"
	"purchase-order-service/internal/store"
	"purchase-order-service/pkg/logger"
	"purchase-order-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FulfillmentItemRequest ties a received quantity to a purchase order line.
type FulfillmentItemRequest struct {
	PurchaseOrderItemID uint    `json:"purchase_order_item_id"`
	QuantityReceived    float64 `json:"quantity_received"`
	UnitPrice           float64 `json:"unit_price"`
	Notes               string  `json:"notes"`
}

// FulfillmentRequest defines the structure for fulfillment creation requests
type FulfillmentRequest struct {
	PurchaseOrderID uint                     `json:"purchase_order_id"`
	VendorID        uint                     `json:"vendor_id"`
	ReceiptDate     string                   `json:"receipt_date"`
	ReceiptNumber   string                   `json:"receipt_number"`
	Notes           string                   `json:"notes"`
	Items           []FulfillmentItemRequest `json:"items"`
}

// ListFulfillments retrieves the fulfillments recorded against a purchase
// order.
func (h *Handler) ListFulfillments(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordFulfillmentOperation("list")

	orderID, err := parseIDParam(c, "purchaseOrderId")
	if err != nil {
		log.Error("Invalid purchase order ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid purchase order ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	fulfillments, err := h.store.ListFulfillments(orderID)
	if err != nil {
		log.Error("Failed to retrieve fulfillments", zap.Uint("purchase_order_id", orderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve fulfillments"})
	}

	log.Info("Fulfillments retrieved successfully",
		zap.Uint("purchase_order_id", orderID),
		zap.Int("count", len(fulfillments)))
	return c.JSON(http.StatusOK, fulfillments)
}

// GetFulfillment retrieves a fulfillment with its items and vendor.
func (h *Handler) GetFulfillment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordFulfillmentOperation("get")

	id, err := parseIDParam(c, "fulfillmentId")
	if err != nil {
		log.Error("Invalid fulfillment ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid fulfillment ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	fulfillment, err := h.store.GetFulfillment(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Fulfillment not found", zap.Uint("fulfillment_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Fulfillment not found"})
		}
		log.Error("Failed to retrieve fulfillment", zap.Uint("fulfillment_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve fulfillment"})
	}

	return c.JSON(http.StatusOK, fulfillment)
}

// CreateFulfillment records a goods receipt against a purchase order. Item
// entries with a non-positive received quantity are skipped, and the derived
// total only sums the kept entries.
func (h *Handler) CreateFulfillment(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new fulfillment")
	prometheus.RecordFulfillmentOperation("create")

	var req FulfillmentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.PurchaseOrderID == 0 || req.VendorID == 0 || req.ReceiptDate == "" {
		log.Warn("Missing required fulfillment fields")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "purchase_order_id, vendor_id and receipt_date are required"})
	}
	if len(req.Items) == 0 {
		log.Warn("Fulfillment items are required")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "At least one item is required"})
	}

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthenticated(c)
	}

	receiptDate, err := parseDate(req.ReceiptDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid receipt_date, expected YYYY-MM-DD"})
	}

	fulfillment := model.Fulfillment{
		PurchaseOrderID: req.PurchaseOrderID,
		VendorID:        req.VendorID,
		ReceiptDate:     *receiptDate,
		ReceiptNumber:   req.ReceiptNumber,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}
	for _, item := range req.Items {
		fulfillment.Items = append(fulfillment.Items, model.FulfillmentItem{
			PurchaseOrderItemID: item.PurchaseOrderItemID,
			QuantityReceived:    item.QuantityReceived,
			UnitPrice:           item.UnitPrice,
			Notes:               item.Notes,
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	created, err := h.store.CreateFulfillment(&fulfillment)
	if err != nil {
		log.Error("Failed to create fulfillment",
			zap.Uint("purchase_order_id", req.PurchaseOrderID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to create fulfillment"})
	}

	log.Info("Fulfillment created successfully",
		zap.Uint("fulfillment_id", created.ID),
		zap.Uint("purchase_order_id", created.PurchaseOrderID),
		zap.Float64("total_amount", created.TotalAmount),
		zap.Int("item_count", len(created.Items)))
	return c.JSON(http.StatusCreated, created)
}

// DeleteFulfillment deletes a fulfillment and its item rows.
func (h *Handler) DeleteFulfillment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordFulfillmentOperation("delete")

	id, err := parseIDParam(c, "fulfillmentId")
	if err != nil {
		log.Error("Invalid fulfillment ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid fulfillment ID"})
	}

	log.Info("Deleting fulfillment", zap.Uint("fulfillment_id", id))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.store.DeleteFulfillment(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Fulfillment not found", zap.Uint("fulfillment_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Fulfillment not found"})
		}
		log.Error("Failed to delete fulfillment", zap.Uint("fulfillment_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to delete fulfillment"})
	}

	log.Info("Fulfillment deleted successfully", zap.Uint("fulfillment_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Fulfillment deleted successfully"})
}
