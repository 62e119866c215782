package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"purchase-order-service/internal/model"
)

// MemoryStore implements Store over in-memory maps. It conforms to the same
// contract as GormStore and stands in for a real database in demos and
// tests.
type MemoryStore struct {
	mu sync.Mutex

	vendors          map[uint]model.Vendor
	orders           map[uint]model.PurchaseOrder
	items            map[uint]model.PurchaseOrderItem
	fulfillments     map[uint]model.Fulfillment
	fulfillmentItems map[uint]model.FulfillmentItem

	nextVendorID          uint
	nextOrderID           uint
	nextItemID            uint
	nextFulfillmentID     uint
	nextFulfillmentItemID uint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vendors:          make(map[uint]model.Vendor),
		orders:           make(map[uint]model.PurchaseOrder),
		items:            make(map[uint]model.PurchaseOrderItem),
		fulfillments:     make(map[uint]model.Fulfillment),
		fulfillmentItems: make(map[uint]model.FulfillmentItem),
	}
}

// --- Vendors ---

func (s *MemoryStore) ListVendors(includeInactive bool) ([]model.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vendors := make([]model.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		if !includeInactive && !v.IsActive {
			continue
		}
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i].Name < vendors[j].Name })
	return vendors, nil
}

func (s *MemoryStore) GetVendor(id uint) (*model.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vendors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) CreateVendor(v *model.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextVendorID++
	v.ID = s.nextVendorID
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	s.vendors[v.ID] = *v
	return nil
}

func (s *MemoryStore) UpdateVendor(v *model.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.vendors[v.ID]
	if !ok {
		return ErrNotFound
	}
	v.CreatedAt = stored.CreatedAt
	v.CreatedBy = stored.CreatedBy
	v.UpdatedAt = time.Now()
	s.vendors[v.ID] = *v
	return nil
}

func (s *MemoryStore) DeactivateVendor(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vendors[id]
	if !ok {
		return ErrNotFound
	}
	v.IsActive = false
	v.UpdatedAt = time.Now()
	s.vendors[id] = v
	return nil
}

// --- Purchase orders ---

func (s *MemoryStore) ListPurchaseOrders(workOrderID uint) ([]model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]model.PurchaseOrder, 0, len(s.orders))
	for id := range s.orders {
		if workOrderID != 0 && s.orders[id].WorkOrderID != workOrderID {
			continue
		}
		orders = append(orders, s.populateOrder(id, false))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (s *MemoryStore) GetPurchaseOrder(id uint) (*model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return nil, ErrNotFound
	}
	order := s.populateOrder(id, true)
	return &order, nil
}

func (s *MemoryStore) CreatePurchaseOrder(po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if po.Status == "" {
		po.Status = model.POStatusDraft
	}

	order := *po
	order.Items = nil
	order.Vendor = nil
	order.Fulfillments = nil

	s.nextOrderID++
	order.ID = s.nextOrderID
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = order

	for _, item := range po.Items {
		item.PurchaseOrderID = order.ID
		item.QuantityRemaining = item.Quantity
		s.insertItem(item)
	}

	created := s.populateOrder(order.ID, false)
	return &created, nil
}

func (s *MemoryStore) UpdatePurchaseOrder(po *model.PurchaseOrder, items []model.PurchaseOrderItem, reconcileItems bool) (*model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[po.ID]
	if !ok {
		return nil, ErrNotFound
	}

	if reconcileItems {
		// Validate before mutating so a bad item ID leaves the order
		// untouched, matching the transactional store.
		for _, item := range items {
			if item.ID == 0 {
				continue
			}
			if old, ok := s.items[item.ID]; !ok || old.PurchaseOrderID != po.ID {
				return nil, &ItemNotFoundError{ItemID: item.ID}
			}
		}
	}

	stored.VendorID = po.VendorID
	stored.PONumber = po.PONumber
	stored.Status = po.Status
	stored.IssueDate = po.IssueDate
	stored.ExpectedDeliveryDate = po.ExpectedDeliveryDate
	stored.TotalAmount = po.TotalAmount
	stored.Notes = po.Notes
	stored.UpdatedAt = time.Now()
	s.orders[po.ID] = stored

	if reconcileItems {
		keep := make(map[uint]bool, len(items))
		for _, item := range items {
			if item.ID == 0 {
				item.PurchaseOrderID = po.ID
				item.QuantityRemaining = item.Quantity
				s.insertItem(item)
				continue
			}

			old, ok := s.items[item.ID]
			if !ok || old.PurchaseOrderID != po.ID {
				return nil, &ItemNotFoundError{ItemID: item.ID}
			}
			keep[item.ID] = true

			remaining := old.QuantityRemaining + (item.Quantity - old.Quantity)
			if remaining < 0 {
				remaining = 0
			}
			old.Description = item.Description
			old.Quantity = item.Quantity
			old.QuantityRemaining = remaining
			old.UnitPrice = item.UnitPrice
			old.UnitOfMeasure = item.UnitOfMeasure
			old.Notes = item.Notes
			old.UpdatedAt = time.Now()
			s.items[old.ID] = old
		}

		for id, item := range s.items {
			if item.PurchaseOrderID == po.ID && !keep[id] {
				delete(s.items, id)
			}
		}
	}

	updated := s.populateOrder(po.ID, false)
	return &updated, nil
}

func (s *MemoryStore) DeletePurchaseOrder(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	for _, f := range s.fulfillments {
		if f.PurchaseOrderID == id {
			return ErrHasFulfillments
		}
	}

	for itemID, item := range s.items {
		if item.PurchaseOrderID == id {
			delete(s.items, itemID)
		}
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryStore) SplitPurchaseOrder(in SplitInput) (*model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.orders[in.PurchaseOrderID]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := s.vendors[in.VendorID]; !ok {
		return nil, ErrVendorNotFound
	}

	// Requested quantities are accumulated per line so a request naming the
	// same item more than once cannot slip past the remaining balance.
	sources := make([]model.PurchaseOrderItem, 0, len(in.Items))
	requested := make(map[uint]float64, len(in.Items))
	var splitTotal float64
	for _, split := range in.Items {
		item, ok := s.items[split.POItemID]
		if !ok || item.PurchaseOrderID != original.ID {
			return nil, &ItemNotFoundError{ItemID: split.POItemID}
		}
		requested[item.ID] += split.QuantityToSplit
		if requested[item.ID] > item.QuantityRemaining {
			return nil, &OverAllocationError{
				ItemID:    item.ID,
				Requested: split.QuantityToSplit,
				Remaining: item.QuantityRemaining - (requested[item.ID] - split.QuantityToSplit),
			}
		}
		sources = append(sources, item)
		splitTotal += split.QuantityToSplit * item.UnitPrice
	}

	notes := in.Notes
	if notes == "" {
		notes = fmt.Sprintf("Split from %s", original.PONumber)
	}

	s.nextOrderID++
	now := time.Now()
	newOrder := model.PurchaseOrder{
		ID:                   s.nextOrderID,
		WorkOrderID:          original.WorkOrderID,
		VendorID:             in.VendorID,
		PONumber:             original.PONumber + "-SPLIT",
		Status:               model.POStatusDraft,
		ExpectedDeliveryDate: original.ExpectedDeliveryDate,
		TotalAmount:          splitTotal,
		Notes:                notes,
		CreatedBy:            in.CreatedBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	s.orders[newOrder.ID] = newOrder

	for i, split := range in.Items {
		s.insertItem(model.PurchaseOrderItem{
			PurchaseOrderID:   newOrder.ID,
			Description:       sources[i].Description,
			Quantity:          split.QuantityToSplit,
			QuantityRemaining: split.QuantityToSplit,
			UnitPrice:         sources[i].UnitPrice,
			UnitOfMeasure:     sources[i].UnitOfMeasure,
			Notes:             sources[i].Notes,
		})

		// Decrement the live row, not the validation snapshot, so repeated
		// lines against one item stack their decrements.
		source := s.items[sources[i].ID]
		source.Quantity -= split.QuantityToSplit
		source.QuantityRemaining -= split.QuantityToSplit
		source.UpdatedAt = now
		s.items[source.ID] = source
	}

	original.TotalAmount -= splitTotal
	original.UpdatedAt = now
	s.orders[original.ID] = original

	created := s.populateOrder(newOrder.ID, false)
	return &created, nil
}

// --- Fulfillments ---

func (s *MemoryStore) ListFulfillments(purchaseOrderID uint) ([]model.Fulfillment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fulfillments := make([]model.Fulfillment, 0)
	for id := range s.fulfillments {
		if s.fulfillments[id].PurchaseOrderID != purchaseOrderID {
			continue
		}
		fulfillments = append(fulfillments, s.populateFulfillment(id))
	}
	sort.Slice(fulfillments, func(i, j int) bool {
		return fulfillments[i].ReceiptDate.After(fulfillments[j].ReceiptDate)
	})
	return fulfillments, nil
}

func (s *MemoryStore) GetFulfillment(id uint) (*model.Fulfillment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fulfillments[id]; !ok {
		return nil, ErrNotFound
	}
	fulfillment := s.populateFulfillment(id)
	return &fulfillment, nil
}

func (s *MemoryStore) CreateFulfillment(f *model.Fulfillment) (*model.Fulfillment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fulfillment := *f
	fulfillment.Items = nil
	fulfillment.Vendor = nil

	var total float64
	kept := make([]model.FulfillmentItem, 0, len(f.Items))
	for _, item := range f.Items {
		if item.QuantityReceived <= 0 {
			continue
		}
		total += item.QuantityReceived * item.UnitPrice
		kept = append(kept, item)
	}
	fulfillment.TotalAmount = total

	s.nextFulfillmentID++
	fulfillment.ID = s.nextFulfillmentID
	now := time.Now()
	fulfillment.CreatedAt = now
	fulfillment.UpdatedAt = now
	s.fulfillments[fulfillment.ID] = fulfillment

	for _, item := range kept {
		s.nextFulfillmentItemID++
		item.ID = s.nextFulfillmentItemID
		item.FulfillmentID = fulfillment.ID
		item.CreatedAt = now
		s.fulfillmentItems[item.ID] = item
	}

	created := s.populateFulfillment(fulfillment.ID)
	return &created, nil
}

func (s *MemoryStore) DeleteFulfillment(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fulfillments[id]; !ok {
		return ErrNotFound
	}
	for itemID, item := range s.fulfillmentItems {
		if item.FulfillmentID == id {
			delete(s.fulfillmentItems, itemID)
		}
	}
	delete(s.fulfillments, id)
	return nil
}

// --- helpers (callers hold the lock) ---

func (s *MemoryStore) insertItem(item model.PurchaseOrderItem) {
	s.nextItemID++
	item.ID = s.nextItemID
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = item
}

func (s *MemoryStore) populateOrder(id uint, withFulfillments bool) model.PurchaseOrder {
	order := s.orders[id]

	if vendor, ok := s.vendors[order.VendorID]; ok {
		v := vendor
		order.Vendor = &v
	}

	items := make([]model.PurchaseOrderItem, 0)
	for _, item := range s.items {
		if item.PurchaseOrderID == id {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	order.Items = items

	if withFulfillments {
		fulfillments := make([]model.Fulfillment, 0)
		for fid := range s.fulfillments {
			if s.fulfillments[fid].PurchaseOrderID == id {
				fulfillments = append(fulfillments, s.populateFulfillment(fid))
			}
		}
		sort.Slice(fulfillments, func(i, j int) bool { return fulfillments[i].ID < fulfillments[j].ID })
		order.Fulfillments = fulfillments
	}
	return order
}

func (s *MemoryStore) populateFulfillment(id uint) model.Fulfillment {
	fulfillment := s.fulfillments[id]

	if vendor, ok := s.vendors[fulfillment.VendorID]; ok {
		v := vendor
		fulfillment.Vendor = &v
	}

	items := make([]model.FulfillmentItem, 0)
	for _, item := range s.fulfillmentItems {
		if item.FulfillmentID == id {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	fulfillment.Items = items
	return fulfillment
}
