package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"purchase-order-service/internal/model"
	"purchase-order-service/internal/store"
	"purchase-order-service/pkg/logger"
	"purchase-order-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PurchaseOrderItemRequest defines one line item in a purchase order
// creation/update request. A zero ID marks a new line on update.
type PurchaseOrderItemRequest struct {
	ID            uint    `json:"id"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	Notes         string  `json:"notes"`
}

// PurchaseOrderRequest defines the structure for purchase order
// creation/update requests. Items is a pointer so that an update can
// distinguish "items omitted" from "items emptied".
type PurchaseOrderRequest struct {
	WorkOrderID          uint                        `json:"work_order_id"`
	VendorID             uint                        `json:"vendor_id"`
	PONumber             string                      `json:"po_number"`
	Status               string                      `json:"status"`
	IssueDate            string                      `json:"issue_date"`
	ExpectedDeliveryDate string                      `json:"expected_delivery_date"`
	TotalAmount          *float64                    `json:"total_amount"`
	Notes                string                      `json:"notes"`
	Items                *[]PurchaseOrderItemRequest `json:"items"`
}

// SplitItemRequest names one line and the quantity to move off it.
type SplitItemRequest struct {
	POItemID        uint    `json:"po_item_id"`
	QuantityToSplit float64 `json:"quantity_to_split"`
}

// SplitRequest defines the structure for purchase order split requests.
type SplitRequest struct {
	PurchaseOrderID uint               `json:"purchase_order_id"`
	VendorID        uint               `json:"vendor_id"`
	Items           []SplitItemRequest `json:"items"`
	Notes           string             `json:"notes"`
}

// ListPurchaseOrders retrieves purchase orders, optionally filtered by work
// order.
func (h *Handler) ListPurchaseOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("list")

	var workOrderID uint
	if raw := c.QueryParam("workOrderId"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			log.Warn("Invalid workOrderId parameter", zap.String("value", raw), zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid workOrderId parameter"})
		}
		workOrderID = uint(parsed)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	orders, err := h.store.ListPurchaseOrders(workOrderID)
	if err != nil {
		log.Error("Failed to retrieve purchase orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve purchase orders"})
	}

	log.Info("Purchase orders retrieved successfully",
		zap.Int("count", len(orders)),
		zap.Uint("work_order_id", workOrderID))
	return c.JSON(http.StatusOK, orders)
}

// GetPurchaseOrder retrieves a purchase order with its vendor, items and
// fulfillments.
func (h *Handler) GetPurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("get")

	id, err := parseIDParam(c, "purchaseOrderId")
	if err != nil {
		log.Error("Invalid purchase order ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid purchase order ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	order, err := h.store.GetPurchaseOrder(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Purchase order not found", zap.Uint("purchase_order_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Purchase order not found"})
		}
		log.Error("Failed to retrieve purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve purchase order"})
	}

	return c.JSON(http.StatusOK, order)
}

// CreatePurchaseOrder creates a purchase order together with its line items
// in a single transaction.
func (h *Handler) CreatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new purchase order")
	prometheus.RecordPurchaseOrderOperation("create")

	var req PurchaseOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.WorkOrderID == 0 || req.VendorID == 0 || req.TotalAmount == nil {
		log.Warn("Missing required purchase order fields")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "work_order_id, vendor_id and total_amount are required"})
	}
	if req.Items == nil || len(*req.Items) == 0 {
		log.Warn("Purchase order items are required")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "At least one item is required"})
	}

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthenticated(c)
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid issue_date, expected YYYY-MM-DD"})
	}
	expectedDate, err := parseDate(req.ExpectedDeliveryDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid expected_delivery_date, expected YYYY-MM-DD"})
	}

	items := requestItems(*req.Items)
	for i := range items {
		// Creation never honors client-supplied item IDs
		items[i].ID = 0
	}

	order := model.PurchaseOrder{
		WorkOrderID:          req.WorkOrderID,
		VendorID:             req.VendorID,
		PONumber:             req.PONumber,
		Status:               req.Status,
		IssueDate:            issueDate,
		ExpectedDeliveryDate: expectedDate,
		TotalAmount:          *req.TotalAmount,
		Notes:                req.Notes,
		CreatedBy:            userID,
		Items:                items,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	created, err := h.store.CreatePurchaseOrder(&order)
	if err != nil {
		log.Error("Failed to create purchase order",
			zap.Uint("work_order_id", req.WorkOrderID),
			zap.Uint("vendor_id", req.VendorID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to create purchase order"})
	}

	log.Info("Purchase order created successfully",
		zap.Uint("purchase_order_id", created.ID),
		zap.String("po_number", created.PONumber),
		zap.Int("item_count", len(created.Items)))
	return c.JSON(http.StatusCreated, created)
}

// UpdatePurchaseOrder updates an order and, when the items array is present,
// reconciles the stored item set against it.
func (h *Handler) UpdatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("update")

	id, err := parseIDParam(c, "purchaseOrderId")
	if err != nil {
		log.Error("Invalid purchase order ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid purchase order ID"})
	}

	var req PurchaseOrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Uint("purchase_order_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.VendorID == 0 || req.TotalAmount == nil {
		log.Warn("Missing required purchase order fields", zap.Uint("purchase_order_id", id))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "vendor_id and total_amount are required"})
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid issue_date, expected YYYY-MM-DD"})
	}
	expectedDate, err := parseDate(req.ExpectedDeliveryDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid expected_delivery_date, expected YYYY-MM-DD"})
	}

	order := model.PurchaseOrder{
		ID:                   id,
		VendorID:             req.VendorID,
		PONumber:             req.PONumber,
		Status:               req.Status,
		IssueDate:            issueDate,
		ExpectedDeliveryDate: expectedDate,
		TotalAmount:          *req.TotalAmount,
		Notes:                req.Notes,
	}

	var items []model.PurchaseOrderItem
	reconcile := req.Items != nil
	if reconcile {
		items = requestItems(*req.Items)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	updated, err := h.store.UpdatePurchaseOrder(&order, items, reconcile)
	if err != nil {
		var itemErr *store.ItemNotFoundError
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Warn("Purchase order not found for update", zap.Uint("purchase_order_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Purchase order not found"})
		case errors.As(err, &itemErr):
			log.Warn("Purchase order item not found for update",
				zap.Uint("purchase_order_id", id),
				zap.Uint("item_id", itemErr.ItemID))
			return c.JSON(http.StatusNotFound, echo.Map{"message": itemErr.Error()})
		default:
			log.Error("Failed to update purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to update purchase order"})
		}
	}

	log.Info("Purchase order updated successfully",
		zap.Uint("purchase_order_id", id),
		zap.Int("item_count", len(updated.Items)))
	return c.JSON(http.StatusOK, updated)
}

// DeletePurchaseOrder deletes an order and its items. Orders with recorded
// fulfillments are refused and must be cancelled instead.
func (h *Handler) DeletePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("delete")

	id, err := parseIDParam(c, "purchaseOrderId")
	if err != nil {
		log.Error("Invalid purchase order ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid purchase order ID"})
	}

	log.Info("Deleting purchase order", zap.Uint("purchase_order_id", id))

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.store.DeletePurchaseOrder(id); err != nil {
		switch {
		case errors.Is(err, store.ErrHasFulfillments):
			log.Warn("Refusing to delete purchase order with fulfillments", zap.Uint("purchase_order_id", id))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			log.Warn("Purchase order not found", zap.Uint("purchase_order_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Purchase order not found"})
		default:
			log.Error("Failed to delete purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to delete purchase order"})
		}
	}

	log.Info("Purchase order deleted successfully", zap.Uint("purchase_order_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Purchase order deleted successfully"})
}

// SplitPurchaseOrder moves unfulfilled quantity from an order's items onto a
// new order assigned to a different vendor.
func (h *Handler) SplitPurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Splitting purchase order")
	prometheus.RecordPurchaseOrderOperation("split")

	var req SplitRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.PurchaseOrderID == 0 || req.VendorID == 0 {
		log.Warn("Missing required split fields")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "purchase_order_id and vendor_id are required"})
	}
	if len(req.Items) == 0 {
		log.Warn("Split items are required")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "At least one item is required"})
	}
	for _, item := range req.Items {
		if item.POItemID == 0 || item.QuantityToSplit <= 0 {
			log.Warn("Invalid split item",
				zap.Uint("po_item_id", item.POItemID),
				zap.Float64("quantity_to_split", item.QuantityToSplit))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Each item needs a po_item_id and a positive quantity_to_split"})
		}
	}

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthenticated(c)
	}

	input := store.SplitInput{
		PurchaseOrderID: req.PurchaseOrderID,
		VendorID:        req.VendorID,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, store.SplitItem{
			POItemID:        item.POItemID,
			QuantityToSplit: item.QuantityToSplit,
		})
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())

	created, err := h.store.SplitPurchaseOrder(input)
	if err != nil {
		var itemErr *store.ItemNotFoundError
		var overErr *store.OverAllocationError
		switch {
		case errors.Is(err, store.ErrNotFound):
			prometheus.RecordSplitResult("not_found")
			log.Warn("Purchase order not found for split", zap.Uint("purchase_order_id", req.PurchaseOrderID))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Purchase order not found"})
		case errors.Is(err, store.ErrVendorNotFound):
			prometheus.RecordSplitResult("not_found")
			log.Warn("Vendor not found for split", zap.Uint("vendor_id", req.VendorID))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Vendor not found"})
		case errors.As(err, &itemErr):
			prometheus.RecordSplitResult("not_found")
			log.Warn("Purchase order item not found for split", zap.Uint("item_id", itemErr.ItemID))
			return c.JSON(http.StatusNotFound, echo.Map{"message": itemErr.Error()})
		case errors.As(err, &overErr):
			prometheus.RecordSplitResult("over_allocation")
			log.Warn("Split exceeds remaining quantity",
				zap.Uint("item_id", overErr.ItemID),
				zap.Float64("requested", overErr.Requested),
				zap.Float64("remaining", overErr.Remaining))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": overErr.Error()})
		default:
			prometheus.RecordSplitResult("error")
			log.Error("Failed to split purchase order",
				zap.Uint("purchase_order_id", req.PurchaseOrderID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to split purchase order"})
		}
	}

	prometheus.RecordSplitResult("completed")
	log.Info("Purchase order split successfully",
		zap.Uint("source_purchase_order_id", req.PurchaseOrderID),
		zap.Uint("new_purchase_order_id", created.ID),
		zap.Float64("split_total", created.TotalAmount))
	return c.JSON(http.StatusCreated, created)
}

// requestItems converts request line items to model items.
func requestItems(reqs []PurchaseOrderItemRequest) []model.PurchaseOrderItem {
	items := make([]model.PurchaseOrderItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, model.PurchaseOrderItem{
			ID:            r.ID,
			Description:   r.Description,
			Quantity:      r.Quantity,
			UnitPrice:     r.UnitPrice,
			UnitOfMeasure: r.UnitOfMeasure,
			Notes:         r.Notes,
		})
	}
	return items
}
