package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitstock-api/internal/events"
	"kitstock-api/internal/model"
)

func newKitService(t *testing.T, pairing int) (*KitService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewKitService(newTestStore(t).Kits, pub, pairing), pub
}

func serialsOf(kits []model.Kit) []string {
	var out []string
	for _, k := range kits {
		out = append(out, k.SerialNumbers...)
	}
	return out
}

func TestKitService_AddDummy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)

	seeded, err := svc.AddDummy(ctx)
	require.NoError(t, err)
	require.Len(t, seeded, 4)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"SN001", "SN002", "SN003", "SN004"}, serialsOf(all)); diff != "" {
		t.Errorf("serials mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, model.StringList{"B001"}, all[0].BatchNumbers)
	for _, k := range all {
		assert.Equal(t, model.KitAvailable, k.Status)
		assert.Empty(t, k.OrderID)
	}
}

func TestKitService_ListAvailable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	for n := 1; n <= 4; n++ {
		kits, err := svc.ListAvailable(ctx, n)
		require.NoError(t, err)
		assert.Len(t, kits, n)
	}

	_, err = svc.ListAvailable(ctx, 5)
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)

	_, err = svc.ListAvailable(ctx, 0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 4, Sold: 0, Total: 4}, stats)
}

func TestKitService_ListAvailable_Pairing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 2)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	kits, err := svc.ListAvailable(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, kits, 4)

	_, err = svc.ListAvailable(ctx, 3)
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)
}

func TestKitService_SellOne(t *testing.T) {
	ctx := context.Background()
	svc, pub := newKitService(t, 1)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	sold, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", InvoiceID: "INV-1", InvoiceURL: "https://inv/1", Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, model.KitSold, sold.Status)
	assert.Equal(t, "ORD-1", sold.OrderID)
	assert.Equal(t, "INV-1", sold.InvoiceID)
	assert.Equal(t, model.StringList{"SN001"}, sold.SerialNumbers)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 3, Sold: 1, Total: 4}, stats)
	assert.Equal(t, []string{events.KitsImported, events.KitSold}, pub.types())
}

func TestKitService_SellMergesIntoOneAggregate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	sold, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", InvoiceID: "INV-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"SN001", "SN002", "SN003"}, sold.SerialNumbers)
	assert.Equal(t, model.StringList{"B001", "B002", "B003"}, sold.BatchNumbers)

	byOrder, err := svc.kits.ListByOrder(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.Equal(t, sold.ID, byOrder[0].ID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 1, Sold: 1, Total: 2}, stats)
}

func TestKitService_SellAppendsToExistingOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	first, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", InvoiceID: "INV-1", Quantity: 1})
	require.NoError(t, err)
	second, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", InvoiceID: "INV-2", Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.StringList{"SN001", "SN002", "SN003"}, second.SerialNumbers)
	assert.Equal(t, "INV-2", second.InvoiceID)

	byOrder, err := svc.kits.ListByOrder(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Len(t, byOrder, 1)
}

func TestKitService_SellInsufficientMutatesNothing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 2)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	_, err = svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: 3})
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Available)
}

func TestKitService_HugeQuantityMutatesNothing(t *testing.T) {
	ctx := context.Background()
	svc, pub := newKitService(t, 2)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)
	pub.reset()

	huge := math.MaxInt/2 + 1

	_, err = svc.ListAvailable(ctx, huge)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: huge})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: math.MaxInt / 2})
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 4, Sold: 0, Total: 4}, stats)
	assert.Empty(t, pub.types())
}

func TestKitService_SellRequiresOrderID(t *testing.T) {
	svc, _ := newKitService(t, 1)
	_, err := svc.Sell(context.Background(), SellInput{Quantity: 1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestKitService_ConcurrentSellsNeverOverAllocate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Sell(ctx, SellInput{OrderID: "ORD-" + string(rune('A'+i)), Quantity: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, model.ErrInsufficientInventory) || errors.Is(err, model.ErrConflict), err)
		}(i)
	}
	wg.Wait()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, model.KitCounts{Available: 0, Sold: 4, Total: 4}, stats)
}

func TestKitService_MakeAvailableRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, pub := newKitService(t, 2)
	_, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	sold, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, sold.SerialNumbers, 4)

	fresh, err := svc.MakeAvailable(ctx, []string{sold.ID})
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, model.StringList{"SN001", "SN002"}, fresh[0].SerialNumbers)
	assert.Equal(t, model.StringList{"SN003", "SN004"}, fresh[1].SerialNumbers)
	for _, k := range fresh {
		assert.Equal(t, model.KitAvailable, k.Status)
		assert.Equal(t, sold.BatchNumbers, k.BatchNumbers)
	}

	_, err = svc.kits.GetByID(ctx, sold.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	again, err := svc.Sell(ctx, SellInput{OrderID: "ORD-2", Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, again.SerialNumbers, 4)
	assert.Contains(t, pub.types(), events.KitsRestocked)
}

func TestKitService_MakeAvailableRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	seeded, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	sold, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: 1})
	require.NoError(t, err)

	_, err = svc.MakeAvailable(ctx, []string{sold.ID, seeded[3].ID})
	assert.ErrorIs(t, err, model.ErrNotSold)

	_, err = svc.MakeAvailable(ctx, []string{sold.ID, "missing"})
	assert.ErrorIs(t, err, model.ErrNotSold)

	still, err := svc.kits.GetByID(ctx, sold.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KitSold, still.Status)

	_, err = svc.MakeAvailable(ctx, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestKitService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	seeded, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, seeded[3].ID))
	assert.ErrorIs(t, svc.Delete(ctx, seeded[3].ID), model.ErrNotFound)

	sold, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, sold.ID), model.ErrNotAvailable)
}

func TestKitService_DeleteManySkipsSold(t *testing.T) {
	ctx := context.Background()
	svc, _ := newKitService(t, 1)
	seeded, err := svc.AddDummy(ctx)
	require.NoError(t, err)

	sold, err := svc.Sell(ctx, SellInput{OrderID: "ORD-1", Quantity: 1})
	require.NoError(t, err)

	result, err := svc.DeleteMany(ctx, []string{sold.ID, seeded[1].ID, seeded[2].ID, "missing"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{seeded[1].ID, seeded[2].ID}, result.Deleted)
	assert.ElementsMatch(t, []string{sold.ID, "missing"}, result.Skipped)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 1, Sold: 1, Total: 2}, stats)

	_, err = svc.DeleteMany(ctx, []string{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestKitService_Import(t *testing.T) {
	ctx := context.Background()
	svc, pub := newKitService(t, 1)

	csv := "serialNumber1,serialNumber2,batchNumber,notes\nA1,A2,B9,x\nC1,,B8,\n"
	kits, err := svc.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, kits, 2)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.StringList{"A1", "A2"}, all[0].SerialNumbers)
	assert.Equal(t, model.StringList{"C1"}, all[1].SerialNumbers)
	assert.Equal(t, model.StringList{"B8"}, all[1].BatchNumbers)
	assert.Equal(t, []string{events.KitsImported}, pub.types())
}

func TestMergeOrder_PreExistingFirst(t *testing.T) {
	old := model.Kit{ID: "01", SerialNumbers: model.StringList{"SN1"}, BatchNumbers: model.StringList{"B1"}, Status: model.KitSold, OrderID: "O"}
	newA := model.Kit{ID: "02", SerialNumbers: model.StringList{"SN2"}, BatchNumbers: model.StringList{"B1"}, Status: model.KitSold, OrderID: "O"}
	newB := model.Kit{ID: "03", SerialNumbers: model.StringList{"SN3"}, BatchNumbers: model.StringList{"B2"}, Status: model.KitSold, OrderID: "O"}

	target, absorbed := mergeOrder([]model.Kit{old, newA, newB}, []model.Kit{newA, newB}, model.SaleStamp{OrderID: "O", InvoiceID: "I2"})
	require.NotNil(t, target)
	assert.Equal(t, "01", target.ID)
	assert.Equal(t, []string{"02", "03"}, absorbed)
	assert.Equal(t, model.StringList{"SN1", "SN2", "SN3"}, target.SerialNumbers)
	assert.Equal(t, model.StringList{"B1", "B2"}, target.BatchNumbers)
	assert.Equal(t, "I2", target.InvoiceID)

	target, absorbed = mergeOrder(nil, nil, model.SaleStamp{})
	assert.Nil(t, target)
	assert.Nil(t, absorbed)
}
