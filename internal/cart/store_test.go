package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartKey = "bharatmart:cart"

type failingStorage struct {
	storage.Store
	setErr error
	getErr error
}

func (f *failingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

func kettle() domain.LineItem {
	return domain.LineItem{ProductID: "p1", Title: "Kettle", Price: decimal.NewFromInt(499)}
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryStore) {
	mem := storage.NewMemoryStore()
	return New(context.Background(), mem, cartKey), mem
}

func TestAddItem_MergesQuantities(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	sut.AddItem(ctx, kettle())
	second := kettle()
	second.Quantity = 2
	snap := sut.AddItem(ctx, second)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, 3, snap.TotalQty)
	assert.True(t, decimal.NewFromInt(1497).Equal(snap.TotalAmount))
}

func TestAddItem_CoercesQuantityFloor(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	for _, q := range []int{0, -1, -100} {
		item := kettle()
		item.Quantity = q
		sut.AddItem(ctx, item)
	}

	items := sut.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestAddItem_PreservesInsertionOrder(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		sut.AddItem(ctx, domain.LineItem{ProductID: id, Price: decimal.NewFromInt(1)})
	}
	sut.AddItem(ctx, domain.LineItem{ProductID: "a", Price: decimal.NewFromInt(1)})

	items := sut.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ProductID)
	assert.Equal(t, "a", items[1].ProductID)
	assert.Equal(t, "b", items[2].ProductID)
	assert.Equal(t, 2, items[1].Quantity)
}

func TestAddItem_KeepsFirstSnapshot(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	sut.AddItem(ctx, kettle())
	repriced := kettle()
	repriced.Price = decimal.NewFromInt(599)
	repriced.Title = "Kettle v2"
	sut.AddItem(ctx, repriced)

	items := sut.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Kettle", items[0].Title)
	assert.True(t, decimal.NewFromInt(499).Equal(items[0].Price))
}

func TestUpdateQuantity(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	sut.AddItem(ctx, kettle())

	snap := sut.UpdateQuantity(ctx, "p1", 5)
	assert.Equal(t, 5, snap.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(2495).Equal(snap.TotalAmount))

	snap = sut.UpdateQuantity(ctx, "p1", 0)
	require.Len(t, snap.Items, 1, "zero quantity must not remove the line")
	assert.Equal(t, 1, snap.Items[0].Quantity)

	snap = sut.UpdateQuantity(ctx, "p1", -3)
	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestUpdateQuantity_UnknownProductIsNoop(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	sut.AddItem(ctx, kettle())

	snap := sut.UpdateQuantity(ctx, "nope", 9)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	sut.AddItem(ctx, kettle())

	snap := sut.RemoveItem(ctx, "missing")
	assert.Len(t, snap.Items, 1)

	snap = sut.RemoveItem(ctx, "p1")
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.TotalQty)
	assert.True(t, snap.TotalAmount.IsZero())
}

func TestClear(t *testing.T) {
	sut, mem := newTestStore(t)
	ctx := context.Background()
	sut.AddItem(ctx, kettle())
	sut.AddItem(ctx, domain.LineItem{ProductID: "p2", Price: decimal.NewFromInt(10)})

	snap := sut.Clear(ctx)
	assert.Empty(t, snap.Items)

	raw, err := mem.Get(ctx, cartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestPersistence_RoundTrip(t *testing.T) {
	sut, mem := newTestStore(t)
	ctx := context.Background()

	sut.AddItem(ctx, domain.LineItem{
		ProductID: "p1", Title: "Kettle", Price: decimal.NewFromInt(499),
		Quantity: 2, Image: "https://img/k.png", SellerID: "s1",
	})
	sut.AddItem(ctx, domain.LineItem{ProductID: "p2", Title: "Tea", Price: decimal.RequireFromString("120.5")})

	reloaded := New(ctx, mem, cartKey)
	assert.Equal(t, sut.Snapshot().TotalQty, reloaded.Snapshot().TotalQty)
	assert.True(t, sut.TotalAmount().Equal(reloaded.TotalAmount()))

	before, after := sut.Items(), reloaded.Items()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ProductID, after[i].ProductID)
		assert.Equal(t, before[i].Title, after[i].Title)
		assert.Equal(t, before[i].Quantity, after[i].Quantity)
		assert.Equal(t, before[i].Image, after[i].Image)
		assert.Equal(t, before[i].SellerID, after[i].SellerID)
		assert.True(t, before[i].Price.Equal(after[i].Price))
	}
}

func TestPersist_PricesAreJSONNumbers(t *testing.T) {
	sut, mem := newTestStore(t)
	ctx := context.Background()

	item := kettle()
	item.Quantity = 2
	sut.AddItem(ctx, item)
	sut.AddItem(ctx, domain.LineItem{ProductID: "p2", Title: "Tea", Price: decimal.RequireFromString("120.5")})

	raw, err := mem.Get(ctx, cartKey)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"productId":"p1","title":"Kettle","price":499,"qty":2},{"productId":"p2","title":"Tea","price":120.5,"qty":1}]`,
		string(raw))
}

func TestLoad_KeepsValidEntries(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	payload := `[
		{"productId":"p1","title":"Kettle","price":499,"qty":2.0},
		{"productId":"p2","title":"Broken","price":"bad","qty":1},
		{"productId":"p3","title":"Tea","price":"120.5","qty":"3"},
		{"productId":42,"title":"Wrong id type","price":1,"qty":1},
		{"productId":"p4","title":"Spice","qty":1.7}
	]`
	require.NoError(t, mem.Set(ctx, cartKey, []byte(payload)))

	items := New(ctx, mem, cartKey).Items()
	require.Len(t, items, 3)

	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(499).Equal(items[0].Price))

	assert.Equal(t, "p3", items[1].ProductID)
	assert.Equal(t, 3, items[1].Quantity)
	assert.True(t, decimal.RequireFromString("120.5").Equal(items[1].Price))

	assert.Equal(t, "p4", items[2].ProductID)
	assert.Equal(t, 1, items[2].Quantity)
	assert.True(t, items[2].Price.IsZero())
}

func TestLoad_MalformedPayloads(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"productId":"p1"}`,
		`"a string"`,
		`null`,
		``,
	}
	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			mem := storage.NewMemoryStore()
			require.NoError(t, mem.Set(context.Background(), cartKey, []byte(p)))

			sut := New(context.Background(), mem, cartKey)
			assert.Empty(t, sut.Items())
			assert.Equal(t, 0, sut.TotalQuantity())
		})
	}
}

func TestLoad_NormalizesStoredItems(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	payload := `[
		{"productId":"p1","title":"Kettle","price":499,"qty":0},
		{"productId":"","title":"ghost","price":1,"qty":1},
		{"productId":"p2","title":"Tea","price":-5,"qty":2},
		{"productId":"p1","title":"Kettle","price":499,"qty":2}
	]`
	require.NoError(t, mem.Set(ctx, cartKey, []byte(payload)))

	items := New(ctx, mem, cartKey).Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "p2", items[1].ProductID)
	assert.True(t, items[1].Price.IsZero())
}

func TestLoad_StorageErrorStartsEmpty(t *testing.T) {
	st := &failingStorage{Store: storage.NewMemoryStore(), getErr: errors.New("disk gone")}
	sut := New(context.Background(), st, cartKey)
	assert.Empty(t, sut.Items())
}

func TestPersistFailure_DoesNotBlockMutation(t *testing.T) {
	st := &failingStorage{Store: storage.NewMemoryStore(), setErr: errors.New("quota exceeded")}
	sut := New(context.Background(), st, cartKey)

	snap := sut.AddItem(context.Background(), kettle())
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, sut.TotalQuantity())
}

func TestConcurrentAdds_Accumulate(t *testing.T) {
	sut, mem := newTestStore(t)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			item := kettle()
			item.Quantity = 2
			sut.AddItem(ctx, item)
		}()
	}
	wg.Wait()

	items := sut.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2*workers, items[0].Quantity)

	// the last persisted state matches memory
	reloaded := New(ctx, mem, cartKey)
	assert.Equal(t, 2*workers, reloaded.TotalQuantity())
}

func TestSubscribe(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()

	var got []int
	cancel := sut.Subscribe(func(s Snapshot) {
		got = append(got, s.TotalQty)
	})

	sut.AddItem(ctx, kettle())
	sut.UpdateQuantity(ctx, "p1", 4)
	cancel()
	sut.Clear(ctx)

	assert.Equal(t, []int{1, 4}, got)
}

func TestSnapshot_IsACopy(t *testing.T) {
	sut, _ := newTestStore(t)
	ctx := context.Background()
	sut.AddItem(ctx, kettle())

	snap := sut.Snapshot()
	snap.Items[0].Quantity = 42

	assert.Equal(t, 1, sut.Items()[0].Quantity)
}
