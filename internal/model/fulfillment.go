package model

import (
	"time"
)

// Fulfillment records a partial or full goods receipt against a purchase
// order. TotalAmount is derived from the item lines at creation time.
type Fulfillment struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PurchaseOrderID uint      `json:"purchase_order_id" gorm:"index;not null"`
	VendorID        uint      `json:"vendor_id" gorm:"index;not null"`
	ReceiptDate     time.Time `json:"receipt_date" gorm:"not null"`
	ReceiptNumber   string    `json:"receipt_number" gorm:"type:varchar(50)"`
	Notes           string    `json:"notes" gorm:"type:text"`
	TotalAmount     float64   `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	CreatedBy       uint      `json:"created_by" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Vendor *Vendor           `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Items  []FulfillmentItem `json:"items,omitempty" gorm:"foreignKey:FulfillmentID"`
}

// FulfillmentItem ties a received quantity back to a purchase order line.
type FulfillmentItem struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	FulfillmentID       uint      `json:"fulfillment_id" gorm:"index;not null"`
	PurchaseOrderItemID uint      `json:"purchase_order_item_id" gorm:"index;not null"`
	QuantityReceived    float64   `json:"quantity_received" gorm:"type:decimal(12,4);not null"`
	UnitPrice           float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	Notes               string    `json:"notes" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at"`
}
