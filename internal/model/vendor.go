package model

import (
	"time"
)

// Vendor represents a supplier of goods against purchase orders.
// Vendors are never hard-deleted; IsActive=false marks them retired
// while keeping the row retrievable by ID.
type Vendor struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(100);index;not null"`
	ContactName  string    `json:"contact_name" gorm:"type:varchar(100)"`
	Email        string    `json:"email" gorm:"type:varchar(100)"`
	Phone        string    `json:"phone" gorm:"type:varchar(20)"`
	Address      string    `json:"address" gorm:"type:text"`
	PaymentTerms string    `json:"payment_terms" gorm:"type:varchar(100)"`
	Notes        string    `json:"notes" gorm:"type:text"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedBy    uint      `json:"created_by" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
