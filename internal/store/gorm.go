package store

import (
	"errors"
	"fmt"

	"purchase-order-service/internal/model"

	"gorm.io/gorm"
)

// GormStore is the production Store implementation backed by a relational
// database through GORM. Every multi-statement operation runs inside a single
// transaction, and post-write reads of the populated entity happen inside
// that transaction before commit.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// --- Vendors ---

func (s *GormStore) ListVendors(includeInactive bool) ([]model.Vendor, error) {
	query := s.db.Model(&model.Vendor{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var vendors []model.Vendor
	if err := query.Order("name asc").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// GetVendor returns the vendor regardless of its active flag, so retired
// vendors stay retrievable by direct lookup.
func (s *GormStore) GetVendor(id uint) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := s.db.First(&vendor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

func (s *GormStore) CreateVendor(v *model.Vendor) error {
	return s.db.Create(v).Error
}

func (s *GormStore) UpdateVendor(v *model.Vendor) error {
	result := s.db.Model(&model.Vendor{}).Where("id = ?", v.ID).Updates(map[string]interface{}{
		"name":          v.Name,
		"contact_name":  v.ContactName,
		"email":         v.Email,
		"phone":         v.Phone,
		"address":       v.Address,
		"payment_terms": v.PaymentTerms,
		"notes":         v.Notes,
		"is_active":     v.IsActive,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateVendor soft-deletes a vendor by clearing its active flag. There
// is no hard delete path.
func (s *GormStore) DeactivateVendor(id uint) error {
	result := s.db.Model(&model.Vendor{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Purchase orders ---

func (s *GormStore) ListPurchaseOrders(workOrderID uint) ([]model.PurchaseOrder, error) {
	query := s.db.Model(&model.PurchaseOrder{})
	if workOrderID != 0 {
		query = query.Where("work_order_id = ?", workOrderID)
	}

	var orders []model.PurchaseOrder
	err := query.Preload("Vendor").Preload("Items").
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) GetPurchaseOrder(id uint) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	err := s.db.Preload("Vendor").Preload("Items").
		Preload("Fulfillments").Preload("Fulfillments.Items").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// CreatePurchaseOrder inserts the order and its item rows as one batched
// association insert in a single transaction and returns the order joined
// with its vendor and items.
func (s *GormStore) CreatePurchaseOrder(po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
	if po.Status == "" {
		po.Status = model.POStatusDraft
	}
	for i := range po.Items {
		po.Items[i].QuantityRemaining = po.Items[i].Quantity
	}

	var created model.PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(po).Error; err != nil {
			return err
		}
		return tx.Preload("Vendor").Preload("Items").First(&created, po.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePurchaseOrder saves the order's own fields and, when reconcileItems
// is set, diffs the incoming item set against the stored one: rows absent
// from the payload are deleted, matched rows are updated in place, and rows
// without an ID are inserted. TotalAmount is taken from the caller as given.
func (s *GormStore) UpdatePurchaseOrder(po *model.PurchaseOrder, items []model.PurchaseOrderItem, reconcileItems bool) (*model.PurchaseOrder, error) {
	var updated model.PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.PurchaseOrder{}).Where("id = ?", po.ID).Updates(map[string]interface{}{
			"vendor_id":              po.VendorID,
			"po_number":              po.PONumber,
			"status":                 po.Status,
			"issue_date":             po.IssueDate,
			"expected_delivery_date": po.ExpectedDeliveryDate,
			"total_amount":           po.TotalAmount,
			"notes":                  po.Notes,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if reconcileItems {
			if err := reconcileOrderItems(tx, po.ID, items); err != nil {
				return err
			}
		}

		return tx.Preload("Vendor").Preload("Items").First(&updated, po.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// reconcileOrderItems applies the incoming item set in one diff pass.
func reconcileOrderItems(tx *gorm.DB, orderID uint, items []model.PurchaseOrderItem) error {
	var existing []model.PurchaseOrderItem
	if err := tx.Where("purchase_order_id = ?", orderID).Find(&existing).Error; err != nil {
		return err
	}

	current := make(map[uint]model.PurchaseOrderItem, len(existing))
	for _, item := range existing {
		current[item.ID] = item
	}

	keep := make(map[uint]bool, len(items))
	var inserts []model.PurchaseOrderItem
	for _, item := range items {
		if item.ID == 0 {
			item.PurchaseOrderID = orderID
			item.QuantityRemaining = item.Quantity
			inserts = append(inserts, item)
			continue
		}

		old, ok := current[item.ID]
		if !ok {
			return &ItemNotFoundError{ItemID: item.ID}
		}
		keep[item.ID] = true

		// A quantity change shifts the remaining balance by the same
		// delta, floored at zero.
		remaining := old.QuantityRemaining + (item.Quantity - old.Quantity)
		if remaining < 0 {
			remaining = 0
		}
		err := tx.Model(&model.PurchaseOrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"description":        item.Description,
			"quantity":           item.Quantity,
			"quantity_remaining": remaining,
			"unit_price":         item.UnitPrice,
			"unit_of_measure":    item.UnitOfMeasure,
			"notes":              item.Notes,
		}).Error
		if err != nil {
			return err
		}
	}

	var remove []uint
	for id := range current {
		if !keep[id] {
			remove = append(remove, id)
		}
	}
	if len(remove) > 0 {
		if err := tx.Delete(&model.PurchaseOrderItem{}, remove).Error; err != nil {
			return err
		}
	}

	if len(inserts) > 0 {
		if err := tx.Create(&inserts).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeletePurchaseOrder removes the order and its item rows. Orders with at
// least one recorded fulfillment are refused before any transaction opens.
func (s *GormStore) DeletePurchaseOrder(id uint) error {
	var fulfillments int64
	err := s.db.Model(&model.Fulfillment{}).Where("purchase_order_id = ?", id).Count(&fulfillments).Error
	if err != nil {
		return err
	}
	if fulfillments > 0 {
		return ErrHasFulfillments
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", id).Delete(&model.PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.PurchaseOrder{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SplitPurchaseOrder moves unfulfilled quantity off the source order's items
// onto a new order for a different vendor. Validation and accumulation run
// over all requested items first; the mutating pass then decrements each
// source item with a guarded quantity_remaining update so that concurrent
// splits cannot over-allocate a line.
func (s *GormStore) SplitPurchaseOrder(in SplitInput) (*model.PurchaseOrder, error) {
	var created model.PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var original model.PurchaseOrder
		if err := tx.First(&original, in.PurchaseOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var vendorCount int64
		if err := tx.Model(&model.Vendor{}).Where("id = ?", in.VendorID).Count(&vendorCount).Error; err != nil {
			return err
		}
		if vendorCount == 0 {
			return ErrVendorNotFound
		}

		// First pass: validate every requested line and accumulate the
		// new order's total before anything is written.
		sources := make([]model.PurchaseOrderItem, 0, len(in.Items))
		var splitTotal float64
		for _, split := range in.Items {
			var item model.PurchaseOrderItem
			err := tx.Where("id = ? AND purchase_order_id = ?", split.POItemID, original.ID).First(&item).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &ItemNotFoundError{ItemID: split.POItemID}
				}
				return err
			}
			if split.QuantityToSplit > item.QuantityRemaining {
				return &OverAllocationError{
					ItemID:    item.ID,
					Requested: split.QuantityToSplit,
					Remaining: item.QuantityRemaining,
				}
			}
			sources = append(sources, item)
			splitTotal += split.QuantityToSplit * item.UnitPrice
		}

		notes := in.Notes
		if notes == "" {
			notes = fmt.Sprintf("Split from %s", original.PONumber)
		}
		newOrder := model.PurchaseOrder{
			WorkOrderID:          original.WorkOrderID,
			VendorID:             in.VendorID,
			PONumber:             original.PONumber + "-SPLIT",
			Status:               model.POStatusDraft,
			ExpectedDeliveryDate: original.ExpectedDeliveryDate,
			TotalAmount:          splitTotal,
			Notes:                notes,
			CreatedBy:            in.CreatedBy,
		}
		if err := tx.Create(&newOrder).Error; err != nil {
			return err
		}

		// Second pass: create the new line and decrement the source line
		// atomically. A zero row count means another split consumed the
		// remaining quantity since the validation read.
		for i, split := range in.Items {
			source := sources[i]
			newItem := model.PurchaseOrderItem{
				PurchaseOrderID:   newOrder.ID,
				Description:       source.Description,
				Quantity:          split.QuantityToSplit,
				QuantityRemaining: split.QuantityToSplit,
				UnitPrice:         source.UnitPrice,
				UnitOfMeasure:     source.UnitOfMeasure,
				Notes:             source.Notes,
			}
			if err := tx.Create(&newItem).Error; err != nil {
				return err
			}

			result := tx.Model(&model.PurchaseOrderItem{}).
				Where("id = ? AND quantity_remaining >= ?", source.ID, split.QuantityToSplit).
				Updates(map[string]interface{}{
					"quantity":           gorm.Expr("quantity - ?", split.QuantityToSplit),
					"quantity_remaining": gorm.Expr("quantity_remaining - ?", split.QuantityToSplit),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return &OverAllocationError{
					ItemID:    source.ID,
					Requested: split.QuantityToSplit,
					Remaining: source.QuantityRemaining,
				}
			}
		}

		err := tx.Model(&model.PurchaseOrder{}).Where("id = ?", original.ID).
			Update("total_amount", gorm.Expr("total_amount - ?", splitTotal)).Error
		if err != nil {
			return err
		}

		return tx.Preload("Vendor").Preload("Items").First(&created, newOrder.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// --- Fulfillments ---

func (s *GormStore) ListFulfillments(purchaseOrderID uint) ([]model.Fulfillment, error) {
	var fulfillments []model.Fulfillment
	err := s.db.Preload("Vendor").Preload("Items").
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("receipt_date desc").
		Find(&fulfillments).Error
	if err != nil {
		return nil, err
	}
	return fulfillments, nil
}

func (s *GormStore) GetFulfillment(id uint) (*model.Fulfillment, error) {
	var fulfillment model.Fulfillment
	err := s.db.Preload("Vendor").Preload("Items").First(&fulfillment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &fulfillment, nil
}

// CreateFulfillment records a goods receipt. Item entries with a
// non-positive received quantity are skipped rather than rejected, and the
// derived total sums only the entries that are kept.
func (s *GormStore) CreateFulfillment(f *model.Fulfillment) (*model.Fulfillment, error) {
	kept := make([]model.FulfillmentItem, 0, len(f.Items))
	var total float64
	for _, item := range f.Items {
		if item.QuantityReceived <= 0 {
			continue
		}
		total += item.QuantityReceived * item.UnitPrice
		kept = append(kept, item)
	}
	f.Items = kept
	f.TotalAmount = total

	var created model.Fulfillment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return err
		}
		return tx.Preload("Vendor").Preload("Items").First(&created, f.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *GormStore) DeleteFulfillment(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fulfillment_id = ?", id).Delete(&model.FulfillmentItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Fulfillment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
