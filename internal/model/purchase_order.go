package model

import (
	"time"
)

// POStatusDraft is the status assigned to purchase orders created without an
// explicit status, and to orders produced by a split.
const POStatusDraft = "Draft"

// PurchaseOrder is a commitment to buy a set of line items from a vendor
// against a work order.
type PurchaseOrder struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	WorkOrderID          uint       `json:"work_order_id" gorm:"index;not null"`
	VendorID             uint       `json:"vendor_id" gorm:"index;not null"`
	PONumber             string     `json:"po_number" gorm:"type:varchar(50);index"`
	Status               string     `json:"status" gorm:"type:varchar(30);not null;default:Draft"`
	IssueDate            *time.Time `json:"issue_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	TotalAmount          float64    `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Notes                string     `json:"notes" gorm:"type:text"`
	CreatedBy            uint       `json:"created_by" gorm:"index"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Vendor       *Vendor             `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Items        []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:PurchaseOrderID"`
	Fulfillments []Fulfillment       `json:"fulfillments,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

// PurchaseOrderItem is one priced, quantified row within a purchase order.
// QuantityRemaining bounds how much of the line can still be moved to another
// order by a split; receipts recorded as fulfillments do not decrement it.
type PurchaseOrderItem struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	PurchaseOrderID   uint      `json:"purchase_order_id" gorm:"index;not null"`
	Description       string    `json:"description" gorm:"type:varchar(255)"`
	Quantity          float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	QuantityRemaining float64   `json:"quantity_remaining" gorm:"type:decimal(12,4);not null"`
	UnitPrice         float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	UnitOfMeasure     string    `json:"unit_of_measure" gorm:"type:varchar(20)"`
	Notes             string    `json:"notes" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
