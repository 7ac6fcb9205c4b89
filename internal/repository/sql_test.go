package repository

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"kitstock-api/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "kitstock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedKits(t *testing.T, repo KitRepository, serials ...string) []model.Kit {
	t.Helper()
	kits := make([]model.Kit, 0, len(serials))
	for i, sn := range serials {
		kits = append(kits, *model.NewAvailableKit([]string{sn}, []string{"B00" + string(rune('1'+i))}))
	}
	require.NoError(t, repo.InsertMany(context.Background(), kits))
	return kits
}

func TestOpenSQL_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitstock.db")

	first, err := OpenSQL(context.Background(), DialectSQLite, path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenSQL(context.Background(), DialectSQLite, path)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, "sqlite", second.Kind())
	assert.NoError(t, second.Ping(context.Background()))
}

func TestSQLKitRepository_ListOrder(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seeded := seedKits(t, store.Kits, "SN001", "SN002", "SN003", "SN004")

	all, err := store.Kits.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := range seeded {
		assert.Equal(t, seeded[i].ID, all[i].ID)
		assert.Equal(t, seeded[i].SerialNumbers, all[i].SerialNumbers)
	}

	avail, err := store.Kits.ListAvailable(ctx, 2)
	require.NoError(t, err)
	require.Len(t, avail, 2)
	assert.Equal(t, model.StringList{"SN001"}, avail[0].SerialNumbers)
	assert.Equal(t, model.StringList{"SN002"}, avail[1].SerialNumbers)
}

func TestSQLKitRepository_ClaimAvailable(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seeded := seedKits(t, store.Kits, "SN001", "SN002", "SN003", "SN004")

	stamp := model.SaleStamp{OrderID: "order-1", InvoiceURL: "https://inv/1", InvoiceID: "inv-1"}
	claimed, err := store.Kits.ClaimAvailable(ctx, 1, stamp)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, seeded[0].ID, claimed[0].ID)
	assert.Equal(t, model.KitSold, claimed[0].Status)
	assert.Equal(t, "order-1", claimed[0].OrderID)
	assert.Equal(t, "inv-1", claimed[0].InvoiceID)

	counts, err := store.Kits.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 3, Sold: 1, Total: 4}, counts)
}

func TestSQLKitRepository_ClaimShortfallMutatesNothing(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seedKits(t, store.Kits, "SN001", "SN002")

	_, err := store.Kits.ClaimAvailable(ctx, 3, model.SaleStamp{OrderID: "order-1"})
	require.ErrorIs(t, err, model.ErrInsufficientInventory)

	counts, err := store.Kits.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Available)
	assert.Equal(t, int64(0), counts.Sold)
}

func TestSQLKitRepository_RejectsNonPositiveCounts(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seedKits(t, store.Kits, "SN001", "SN002")

	for _, n := range []int{0, -1, math.MinInt} {
		_, err := store.Kits.ClaimAvailable(ctx, n, model.SaleStamp{OrderID: "order-1"})
		assert.ErrorIs(t, err, model.ErrInvalidInput, "claim %d", n)

		_, err = store.Kits.ListAvailable(ctx, n)
		assert.ErrorIs(t, err, model.ErrInvalidInput, "list %d", n)
	}

	counts, err := store.Kits.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 2, Sold: 0, Total: 2}, counts)
}

func TestSQLKitRepository_MergeSold(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seedKits(t, store.Kits, "SN001", "SN002", "SN003")

	claimed, err := store.Kits.ClaimAvailable(ctx, 2, model.SaleStamp{OrderID: "order-1", InvoiceID: "inv-1"})
	require.NoError(t, err)

	target := claimed[0]
	target.SerialNumbers = model.StringList{"SN001", "SN002"}
	target.BatchNumbers = model.StringList{"B001", "B002"}
	require.NoError(t, store.Kits.MergeSold(ctx, &target, []string{claimed[1].ID}))

	byOrder, err := store.Kits.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.Equal(t, model.StringList{"SN001", "SN002"}, byOrder[0].SerialNumbers)
	assert.Equal(t, model.StringList{"B001", "B002"}, byOrder[0].BatchNumbers)

	_, err = store.Kits.GetByID(ctx, claimed[1].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLKitRepository_ReplaceSold(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seeded := seedKits(t, store.Kits, "SN001", "SN002")

	claimed, err := store.Kits.ClaimAvailable(ctx, 1, model.SaleStamp{OrderID: "order-1"})
	require.NoError(t, err)

	fresh := []model.Kit{*model.NewAvailableKit([]string{"SN001"}, []string{"B001"})}

	err = store.Kits.ReplaceSold(ctx, []string{claimed[0].ID, seeded[1].ID}, fresh)
	require.ErrorIs(t, err, model.ErrNotSold)

	all, err := store.Kits.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "failed restock must not mutate")

	require.NoError(t, store.Kits.ReplaceSold(ctx, []string{claimed[0].ID}, fresh))

	counts, err := store.Kits.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KitCounts{Available: 2, Sold: 0, Total: 2}, counts)
}

func TestSQLKitRepository_DeleteAvailableSkipsSold(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	seeded := seedKits(t, store.Kits, "SN001", "SN002", "SN003")

	claimed, err := store.Kits.ClaimAvailable(ctx, 1, model.SaleStamp{OrderID: "order-1"})
	require.NoError(t, err)

	deleted, err := store.Kits.DeleteAvailable(ctx, []string{seeded[0].ID, seeded[1].ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[1].ID}, deleted)

	kit, err := store.Kits.GetByID(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.KitSold, kit.Status)
}

func TestSQLCODRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	now := time.Now().UTC()
	order := &model.CODOrder{
		ID:        "cod-1",
		OrderID:   "order-1",
		OrderNo:   "#1001",
		Amount:    decimal.RequireFromString("149.90"),
		Status:    model.CODAwaitingConfirmation,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.COD.Create(ctx, order))

	got, err := store.COD.GetByID(ctx, "cod-1")
	require.NoError(t, err)
	assert.True(t, order.Amount.Equal(got.Amount), "amount %s", got.Amount)

	updated, err := store.COD.UpdateStatus(ctx, "cod-1", model.CODAwaitingConfirmation, model.CODConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.CODConfirmed, updated.Status)

	_, err = store.COD.UpdateStatus(ctx, "cod-1", model.CODAwaitingConfirmation, model.CODCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = store.COD.UpdateStatus(ctx, "missing", model.CODAwaitingConfirmation, model.CODConfirmed)
	assert.ErrorIs(t, err, model.ErrNotFound)

	orders, err := store.COD.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.CODConfirmed, orders[0].Status)
}

func TestSQLReturnRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	now := time.Now().UTC()
	ticket := &model.ReturnTicket{
		ID:            "rt-1",
		OrderID:       "order-1",
		CustomerName:  "Jane",
		CustomerEmail: "jane@example.com",
		CustomerPhone: "+6591234567",
		TicketType:    model.TicketRefund,
		Status:        model.ReturnAwaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.Returns.Create(ctx, ticket))

	updated, err := store.Returns.UpdateStatus(ctx, "rt-1", model.ReturnAwaiting, model.ReturnReceived)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnReceived, updated.Status)

	_, err = store.Returns.UpdateStatus(ctx, "rt-1", model.ReturnAwaiting, model.ReturnReceived)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = store.Returns.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLUserRepository(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	u := &model.User{ID: "u-1", Username: "admin", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Users.Create(ctx, u))
	assert.ErrorIs(t, store.Users.Create(ctx, u), model.ErrDuplicate)

	got, err := store.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = store.Users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
