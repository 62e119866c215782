package store

import (
	"errors"
	"fmt"

	"purchase-order-service/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVendorNotFound is returned when a referenced vendor does not exist.
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrHasFulfillments is returned when deleting a purchase order that has
	// recorded fulfillments. Such orders must be cancelled, not deleted.
	ErrHasFulfillments = errors.New("purchase order has recorded fulfillments and cannot be deleted; cancel it instead")
)

// ItemNotFoundError identifies the specific purchase order item that a split
// request referenced but which does not exist on the source order.
type ItemNotFoundError struct {
	ItemID uint
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("purchase order item %d not found", e.ItemID)
}

// OverAllocationError is returned when a split asks for more than an item's
// remaining quantity.
type OverAllocationError struct {
	ItemID    uint
	Requested float64
	Remaining float64
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("cannot split %.4f of item %d: only %.4f remaining", e.Requested, e.ItemID, e.Remaining)
}

// SplitItem names one purchase order line and the quantity to move off it.
type SplitItem struct {
	POItemID        uint    `json:"po_item_id"`
	QuantityToSplit float64 `json:"quantity_to_split"`
}

// SplitInput carries everything needed to split a purchase order across a
// new vendor.
type SplitInput struct {
	PurchaseOrderID uint
	VendorID        uint
	Items           []SplitItem
	Notes           string
	CreatedBy       uint
}

// Store is the data access contract for the purchase order workflow. The
// production implementation is GormStore; MemoryStore provides the same
// behavior over in-memory maps for demos and tests.
type Store interface {
	ListVendors(includeInactive bool) ([]model.Vendor, error)
	GetVendor(id uint) (*model.Vendor, error)
	CreateVendor(v *model.Vendor) error
	UpdateVendor(v *model.Vendor) error
	DeactivateVendor(id uint) error

	ListPurchaseOrders(workOrderID uint) ([]model.PurchaseOrder, error)
	GetPurchaseOrder(id uint) (*model.PurchaseOrder, error)
	CreatePurchaseOrder(po *model.PurchaseOrder) (*model.PurchaseOrder, error)
	UpdatePurchaseOrder(po *model.PurchaseOrder, items []model.PurchaseOrderItem, reconcileItems bool) (*model.PurchaseOrder, error)
	DeletePurchaseOrder(id uint) error
	SplitPurchaseOrder(in SplitInput) (*model.PurchaseOrder, error)

	ListFulfillments(purchaseOrderID uint) ([]model.Fulfillment, error)
	GetFulfillment(id uint) (*model.Fulfillment, error)
	CreateFulfillment(f *model.Fulfillment) (*model.Fulfillment, error)
	DeleteFulfillment(id uint) error
}
