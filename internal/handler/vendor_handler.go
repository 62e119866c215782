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

// VendorRequest defines the structure for vendor creation/update requests
type VendorRequest struct {
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PaymentTerms string `json:"payment_terms"`
	Notes        string `json:"notes"`
	IsActive     *bool  `json:"is_active"`
}

// ListVendors retrieves active vendors ordered by name. Inactive vendors are
// included only when include_inactive=true is passed.
func (h *Handler) ListVendors(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("list")

	includeInactive := false
	if raw := c.QueryParam("include_inactive"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			includeInactive = parsed
		} else {
			log.Warn("Invalid include_inactive parameter", zap.String("value", raw), zap.Error(err))
		}
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("query")(time.Now())

	vendors, err := h.store.ListVendors(includeInactive)
	if err != nil {
		log.Error("Failed to retrieve vendors", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve vendors"})
	}

	log.Info("Vendors retrieved successfully", zap.Int("count", len(vendors)))
	return c.JSON(http.StatusOK, vendors)
}

// GetVendor retrieves a vendor by ID. Soft-deleted vendors remain
// retrievable here.
func (h *Handler) GetVendor(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("get")

	id, err := parseIDParam(c, "vendorId")
	if err != nil {
		log.Error("Invalid vendor ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid vendor ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	vendor, err := h.store.GetVendor(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Vendor not found", zap.Uint("vendor_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Vendor not found"})
		}
		log.Error("Failed to retrieve vendor", zap.Uint("vendor_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to retrieve vendor"})
	}

	return c.JSON(http.StatusOK, vendor)
}

// CreateVendor creates a new vendor
func (h *Handler) CreateVendor(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new vendor")
	prometheus.RecordVendorOperation("create")

	var req VendorRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.Name == "" {
		log.Warn("Vendor name is required")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Vendor name is required"})
	}

	userID, ok := currentUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return unauthenticated(c)
	}

	// New vendors are active unless the request says otherwise
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	vendor := model.Vendor{
		Name:         req.Name,
		ContactName:  req.ContactName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
		IsActive:     isActive,
		CreatedBy:    userID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := h.store.CreateVendor(&vendor); err != nil {
		log.Error("Failed to create vendor", zap.String("name", req.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to create vendor"})
	}

	log.Info("Vendor created successfully",
		zap.Uint("vendor_id", vendor.ID),
		zap.String("name", vendor.Name))
	return c.JSON(http.StatusCreated, vendor)
}

// UpdateVendor updates an existing vendor
func (h *Handler) UpdateVendor(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("update")

	id, err := parseIDParam(c, "vendorId")
	if err != nil {
		log.Error("Invalid vendor ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid vendor ID"})
	}

	var req VendorRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Uint("vendor_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request data"})
	}

	if req.Name == "" {
		log.Warn("Vendor name is required", zap.Uint("vendor_id", id))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Vendor name is required"})
	}

	existing, err := h.store.GetVendor(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Vendor not found for update", zap.Uint("vendor_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Vendor not found"})
		}
		log.Error("Failed to retrieve vendor for update", zap.Uint("vendor_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to update vendor"})
	}

	isActive := existing.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	vendor := model.Vendor{
		ID:           id,
		Name:         req.Name,
		ContactName:  req.ContactName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
		IsActive:     isActive,
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := h.store.UpdateVendor(&vendor); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Vendor not found"})
		}
		log.Error("Failed to update vendor", zap.Uint("vendor_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to update vendor"})
	}

	log.Info("Vendor updated successfully",
		zap.Uint("vendor_id", id),
		zap.String("name", vendor.Name))
	return c.JSON(http.StatusOK, vendor)
}

// DeleteVendor soft-deletes a vendor by marking it inactive. The row itself
// is kept; there is no hard delete path.
func (h *Handler) DeleteVendor(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("delete")

	id, err := parseIDParam(c, "vendorId")
	if err != nil {
		log.Error("Invalid vendor ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid vendor ID"})
	}

	log.Info("Deactivating vendor", zap.Uint("vendor_id", id))

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := h.store.DeactivateVendor(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Vendor not found", zap.Uint("vendor_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Vendor not found"})
		}
		log.Error("Failed to deactivate vendor", zap.Uint("vendor_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to delete vendor"})
	}

	log.Info("Vendor deactivated successfully", zap.Uint("vendor_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Vendor deleted successfully"})
}
