package store_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"purchase-order-service/internal/model"
	"purchase-order-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

type storeFactory func(t *testing.T) store.Store

func newGormStore(t *testing.T) store.Store {
	t.Helper()

	// A uniquely named shared in-memory database per test keeps parallel
	// tests isolated while letting the pool reuse connections.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Vendor{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderItem{},
		&model.Fulfillment{},
		&model.FulfillmentItem{},
	))
	return store.NewGormStore(db)
}

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewMemoryStore()
}

// TestStoreContract runs the same behavioral suite against both Store
// implementations.
func TestStoreContract(t *testing.T) {
	impls := []struct {
		name    string
		factory storeFactory
	}{
		{"gorm", newGormStore},
		{"memory", newMemoryStore},
	}

	for _, impl := range impls {
		impl := impl
		t.Run(impl.name, func(t *testing.T) {
			t.Run("VendorLifecycle", func(t *testing.T) { testVendorLifecycle(t, impl.factory(t)) })
			t.Run("VendorSoftDelete", func(t *testing.T) { testVendorSoftDelete(t, impl.factory(t)) })
			t.Run("CreatePurchaseOrder", func(t *testing.T) { testCreatePurchaseOrder(t, impl.factory(t)) })
			t.Run("UpdatePurchaseOrderReconcile", func(t *testing.T) { testUpdateReconcile(t, impl.factory(t)) })
			t.Run("UpdatePurchaseOrderBadItem", func(t *testing.T) { testUpdateBadItem(t, impl.factory(t)) })
			t.Run("DeletePurchaseOrder", func(t *testing.T) { testDeletePurchaseOrder(t, impl.factory(t)) })
			t.Run("DeleteBlockedByFulfillment", func(t *testing.T) { testDeleteBlocked(t, impl.factory(t)) })
			t.Run("SplitPurchaseOrder", func(t *testing.T) { testSplit(t, impl.factory(t)) })
			t.Run("SplitOverAllocation", func(t *testing.T) { testSplitOverAllocation(t, impl.factory(t)) })
			t.Run("SplitDuplicateLine", func(t *testing.T) { testSplitDuplicateLine(t, impl.factory(t)) })
			t.Run("SplitMissingItem", func(t *testing.T) { testSplitMissingItem(t, impl.factory(t)) })
			t.Run("FulfillmentLifecycle", func(t *testing.T) { testFulfillmentLifecycle(t, impl.factory(t)) })
			t.Run("FulfillmentSkipsNonPositive", func(t *testing.T) { testFulfillmentSkipsNonPositive(t, impl.factory(t)) })
		})
	}
}

func seedVendor(t *testing.T, s store.Store, name string) *model.Vendor {
	t.Helper()
	vendor := &model.Vendor{Name: name, IsActive: true, CreatedBy: 1}
	require.NoError(t, s.CreateVendor(vendor))
	require.NotZero(t, vendor.ID)
	return vendor
}

func seedOrder(t *testing.T, s store.Store, vendorID uint, items ...model.PurchaseOrderItem) *model.PurchaseOrder {
	t.Helper()
	var total float64
	for _, item := range items {
		total += item.Quantity * item.UnitPrice
	}
	order, err := s.CreatePurchaseOrder(&model.PurchaseOrder{
		WorkOrderID: 100,
		VendorID:    vendorID,
		PONumber:    "PO-1001",
		TotalAmount: total,
		CreatedBy:   1,
		Items:       items,
	})
	require.NoError(t, err)
	return order
}

func testVendorLifecycle(t *testing.T, s store.Store) {
	zeta := seedVendor(t, s, "Zeta Piping")
	acme := seedVendor(t, s, "Acme Concrete")

	vendors, err := s.ListVendors(false)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Acme Concrete", vendors[0].Name)
	assert.Equal(t, "Zeta Piping", vendors[1].Name)

	acme.PaymentTerms = "Net 30"
	acme.ContactName = "Wile E."
	require.NoError(t, s.UpdateVendor(acme))

	got, err := s.GetVendor(acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Net 30", got.PaymentTerms)
	assert.Equal(t, "Wile E.", got.ContactName)

	_, err = s.GetVendor(zeta.ID + acme.ID + 100)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.UpdateVendor(&model.Vendor{ID: 9999, Name: "ghost"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testVendorSoftDelete(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")

	require.NoError(t, s.DeactivateVendor(vendor.ID))

	// The row still exists and is retrievable by direct lookup
	got, err := s.GetVendor(vendor.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// But it is excluded from the default active list
	active, err := s.ListVendors(false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListVendors(true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, s.DeactivateVendor(9999), store.ErrNotFound)
}

func testCreatePurchaseOrder(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")

	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5, UnitOfMeasure: "ea"},
		model.PurchaseOrderItem{Description: "Elbow", Quantity: 4, UnitPrice: 2.5, UnitOfMeasure: "ea"},
	)

	assert.Equal(t, model.POStatusDraft, order.Status)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, item.Quantity, item.QuantityRemaining)
	}
	require.NotNil(t, order.Vendor)
	assert.Equal(t, "Acme Concrete", order.Vendor.Name)
	assert.InDelta(t, 60.0, order.TotalAmount, 0.001)

	listed, err := s.ListPurchaseOrders(100)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	other, err := s.ListPurchaseOrders(999)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testUpdateReconcile(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")
	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
		model.PurchaseOrderItem{Description: "Elbow", Quantity: 4, UnitPrice: 2.5},
	)
	pipe := order.Items[0]

	// Keep Pipe with a larger quantity, drop Elbow, add Valve
	updated, err := s.UpdatePurchaseOrder(&model.PurchaseOrder{
		ID:          order.ID,
		VendorID:    vendor.ID,
		PONumber:    order.PONumber,
		Status:      order.Status,
		TotalAmount: 90,
	}, []model.PurchaseOrderItem{
		{ID: pipe.ID, Description: "Pipe", Quantity: 12, UnitPrice: 5},
		{Description: "Valve", Quantity: 3, UnitPrice: 10},
	}, true)
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	byDescription := make(map[string]model.PurchaseOrderItem)
	for _, item := range updated.Items {
		byDescription[item.Description] = item
	}

	gotPipe, ok := byDescription["Pipe"]
	require.True(t, ok)
	assert.Equal(t, pipe.ID, gotPipe.ID)
	assert.InDelta(t, 12.0, gotPipe.Quantity, 0.001)
	// Quantity grew by 2, so the remaining balance grows by the same delta
	assert.InDelta(t, 12.0, gotPipe.QuantityRemaining, 0.001)

	gotValve, ok := byDescription["Valve"]
	require.True(t, ok)
	assert.NotZero(t, gotValve.ID)
	assert.InDelta(t, 3.0, gotValve.QuantityRemaining, 0.001)

	_, ok = byDescription["Elbow"]
	assert.False(t, ok)

	// TotalAmount is accepted as given, not recomputed
	assert.InDelta(t, 90.0, updated.TotalAmount, 0.001)
}

func testUpdateBadItem(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")
	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)

	_, err := s.UpdatePurchaseOrder(&model.PurchaseOrder{
		ID:          order.ID,
		VendorID:    vendor.ID,
		TotalAmount: 50,
	}, []model.PurchaseOrderItem{
		{ID: 98765, Description: "Ghost", Quantity: 1, UnitPrice: 1},
	}, true)

	var itemErr *store.ItemNotFoundError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, uint(98765), itemErr.ItemID)

	// The failed update left the order untouched
	got, err := s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Pipe", got.Items[0].Description)
	assert.InDelta(t, 50.0, got.TotalAmount, 0.001)
}

func testDeletePurchaseOrder(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")
	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)

	require.NoError(t, s.DeletePurchaseOrder(order.ID))

	_, err := s.GetPurchaseOrder(order.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeletePurchaseOrder(order.ID), store.ErrNotFound)
}

func testDeleteBlocked(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")
	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)

	_, err := s.CreateFulfillment(&model.Fulfillment{
		PurchaseOrderID: order.ID,
		VendorID:        vendor.ID,
		ReceiptDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []model.FulfillmentItem{
			{PurchaseOrderItemID: order.Items[0].ID, QuantityReceived: 5, UnitPrice: 5},
		},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeletePurchaseOrder(order.ID), store.ErrHasFulfillments)

	// Order, items and fulfillments are all unchanged
	got, err := s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Len(t, got.Fulfillments, 1)
}

func testSplit(t *testing.T, s store.Store) {
	original := seedVendor(t, s, "Acme Concrete")
	newVendor := seedVendor(t, s, "Zeta Piping")
	order := seedOrder(t, s, original.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5, UnitOfMeasure: "ea"},
	)
	require.InDelta(t, 50.0, order.TotalAmount, 0.001)

	split, err := s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: order.ID,
		VendorID:        newVendor.ID,
		Items: []store.SplitItem{
			{POItemID: order.Items[0].ID, QuantityToSplit: 4},
		},
		CreatedBy: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "PO-1001-SPLIT", split.PONumber)
	assert.Equal(t, model.POStatusDraft, split.Status)
	assert.Equal(t, order.WorkOrderID, split.WorkOrderID)
	assert.Equal(t, newVendor.ID, split.VendorID)
	assert.InDelta(t, 20.0, split.TotalAmount, 0.001)
	assert.Contains(t, split.Notes, "PO-1001")
	require.Len(t, split.Items, 1)
	assert.InDelta(t, 4.0, split.Items[0].Quantity, 0.001)
	assert.InDelta(t, 4.0, split.Items[0].QuantityRemaining, 0.001)
	assert.InDelta(t, 5.0, split.Items[0].UnitPrice, 0.001)

	source, err := s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, source.TotalAmount, 0.001)
	require.Len(t, source.Items, 1)
	assert.InDelta(t, 6.0, source.Items[0].Quantity, 0.001)
	assert.InDelta(t, 6.0, source.Items[0].QuantityRemaining, 0.001)
}

func testSplitOverAllocation(t *testing.T, s store.Store) {
	original := seedVendor(t, s, "Acme Concrete")
	newVendor := seedVendor(t, s, "Zeta Piping")
	order := seedOrder(t, s, original.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)

	_, err := s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: order.ID,
		VendorID:        newVendor.ID,
		Items: []store.SplitItem{
			{POItemID: order.Items[0].ID, QuantityToSplit: 11},
		},
	})

	var overErr *store.OverAllocationError
	require.ErrorAs(t, err, &overErr)
	assert.Equal(t, order.Items[0].ID, overErr.ItemID)
	assert.InDelta(t, 11.0, overErr.Requested, 0.001)
	assert.InDelta(t, 10.0, overErr.Remaining, 0.001)

	// Nothing was created or changed
	source, err := s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, source.TotalAmount, 0.001)
	assert.InDelta(t, 10.0, source.Items[0].Quantity, 0.001)

	orders, err := s.ListPurchaseOrders(0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func testSplitDuplicateLine(t *testing.T, s store.Store) {
	original := seedVendor(t, s, "Acme Concrete")
	newVendor := seedVendor(t, s, "Zeta Piping")
	order := seedOrder(t, s, original.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)
	pipeID := order.Items[0].ID

	// Two lines naming the same item, individually within the remaining
	// balance but 12 in total, must be rejected as over-allocation.
	_, err := s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: order.ID,
		VendorID:        newVendor.ID,
		Items: []store.SplitItem{
			{POItemID: pipeID, QuantityToSplit: 6},
			{POItemID: pipeID, QuantityToSplit: 6},
		},
	})
	var overErr *store.OverAllocationError
	require.ErrorAs(t, err, &overErr)
	assert.Equal(t, pipeID, overErr.ItemID)

	source, err := s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, source.TotalAmount, 0.001)
	require.Len(t, source.Items, 1)
	assert.InDelta(t, 10.0, source.Items[0].Quantity, 0.001)
	assert.InDelta(t, 10.0, source.Items[0].QuantityRemaining, 0.001)

	orders, err := s.ListPurchaseOrders(0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// Repeated lines that jointly fit stack their decrements.
	split, err := s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: order.ID,
		VendorID:        newVendor.ID,
		Items: []store.SplitItem{
			{POItemID: pipeID, QuantityToSplit: 3},
			{POItemID: pipeID, QuantityToSplit: 4},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 35.0, split.TotalAmount, 0.001)
	require.Len(t, split.Items, 2)

	source, err = s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, source.TotalAmount, 0.001)
	assert.InDelta(t, 3.0, source.Items[0].Quantity, 0.001)
	assert.InDelta(t, 3.0, source.Items[0].QuantityRemaining, 0.001)
}

func testSplitMissingItem(t *testing.T, s store.Store) {
	original := seedVendor(t, s, "Acme Concrete")
	newVendor := seedVendor(t, s, "Zeta Piping")
	order := seedOrder(t, s, original.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)

	_, err := s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: order.ID,
		VendorID:        newVendor.ID,
		Items: []store.SplitItem{
			{POItemID: 54321, QuantityToSplit: 1},
		},
	})
	var itemErr *store.ItemNotFoundError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, uint(54321), itemErr.ItemID)

	_, err = s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: order.ID,
		VendorID:        99999,
		Items: []store.SplitItem{
			{POItemID: order.Items[0].ID, QuantityToSplit: 1},
		},
	})
	assert.ErrorIs(t, err, store.ErrVendorNotFound)

	_, err = s.SplitPurchaseOrder(store.SplitInput{
		PurchaseOrderID: 88888,
		VendorID:        newVendor.ID,
		Items: []store.SplitItem{
			{POItemID: order.Items[0].ID, QuantityToSplit: 1},
		},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFulfillmentLifecycle(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")
	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
	)

	created, err := s.CreateFulfillment(&model.Fulfillment{
		PurchaseOrderID: order.ID,
		VendorID:        vendor.ID,
		ReceiptDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ReceiptNumber:   "R-001",
		CreatedBy:       1,
		Items: []model.FulfillmentItem{
			{PurchaseOrderItemID: order.Items[0].ID, QuantityReceived: 4, UnitPrice: 5},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, created.TotalAmount, 0.001)
	require.Len(t, created.Items, 1)
	require.NotNil(t, created.Vendor)

	got, err := s.GetFulfillment(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "R-001", got.ReceiptNumber)

	listed, err := s.ListFulfillments(order.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// Receiving goods does not decrement the line's remaining quantity;
	// only splits do.
	source, err := s.GetPurchaseOrder(order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, source.Items[0].QuantityRemaining, 0.001)

	require.NoError(t, s.DeleteFulfillment(created.ID))
	_, err = s.GetFulfillment(created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteFulfillment(created.ID), store.ErrNotFound)

	// With the fulfillment gone the order is deletable again
	require.NoError(t, s.DeletePurchaseOrder(order.ID))
}

func testFulfillmentSkipsNonPositive(t *testing.T, s store.Store) {
	vendor := seedVendor(t, s, "Acme Concrete")
	order := seedOrder(t, s, vendor.ID,
		model.PurchaseOrderItem{Description: "Pipe", Quantity: 10, UnitPrice: 5},
		model.PurchaseOrderItem{Description: "Elbow", Quantity: 4, UnitPrice: 2.5},
	)

	created, err := s.CreateFulfillment(&model.Fulfillment{
		PurchaseOrderID: order.ID,
		VendorID:        vendor.ID,
		ReceiptDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []model.FulfillmentItem{
			{PurchaseOrderItemID: order.Items[0].ID, QuantityReceived: 3, UnitPrice: 5},
			{PurchaseOrderItemID: order.Items[1].ID, QuantityReceived: 0, UnitPrice: 2.5},
		},
	})
	require.NoError(t, err)

	// The zero-quantity entry is skipped, not rejected, and the total
	// only sums the kept entries.
	require.Len(t, created.Items, 1)
	assert.Equal(t, order.Items[0].ID, created.Items[0].PurchaseOrderItemID)
	assert.InDelta(t, 15.0, created.TotalAmount, 0.001)
}
