package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

const (
	testContract   = "0xAAAA000000000000000000000000000000000001"
	testPprAddress = "0xbbbb000000000000000000000000000000000002"
	testOwner      = "0xCCCC000000000000000000000000000000000003"
	testMarket     = "0xdddd000000000000000000000000000000000004"
	testCommunity  = "0xeeee000000000000000000000000000000000005"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func tokenKey(id string) domain.TokenKey {
	return domain.NewTokenKey(id, testContract)
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}

// createTestToken stores a token with only its provenance and owner set
func createTestToken(t *testing.T, store Store, id string, block uint64) domain.TokenKey {
	key := tokenKey(id)
	err := store.UpsertGeoToken(context.Background(), key, patch.New().
		Set("owner", domain.NormalizeAddress(testOwner)).
		Set("created_at_block", block).
		Set("updated_at_block", block))
	require.NoError(t, err)
	return key
}

// =============================================================================
// Test: Checkpoint
// =============================================================================

func testCheckpoint(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing checkpoint is reported as unset", func(t *testing.T) {
		block, ok, err := store.GetCheckpoint(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, uint64(0), block)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, store.SetCheckpoint(ctx, 100))
		require.NoError(t, store.SetCheckpoint(ctx, 90))

		block, ok, err := store.GetCheckpoint(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(90), block)
	})

	t.Run("clear removes the checkpoint", func(t *testing.T) {
		require.NoError(t, store.SetCheckpoint(ctx, 5))
		require.NoError(t, store.ClearCheckpoint(ctx))

		_, ok, err := store.GetCheckpoint(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// =============================================================================
// Test: Upsert semantics
// =============================================================================

func testUpsertMerge(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("absent fields are untouched and nulls are written", func(t *testing.T) {
		key := tokenKey("merge-1")
		require.NoError(t, store.UpsertGeoToken(ctx, key, patch.New().
			Set("type", "land").
			Set("subtype", "beachLot").
			Set("photos_count", 3)))

		require.NoError(t, store.UpsertGeoToken(ctx, key, patch.New().
			Set("purpose", "residential").
			SetNull("subtype")))

		token, err := store.GetGeoToken(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "land", *token.Type)
		assert.Nil(t, token.Subtype)
		assert.Equal(t, "residential", *token.Purpose)
		assert.Equal(t, 3, token.PhotosCount)
	})

	t.Run("created_at_block never changes after the first non-zero write", func(t *testing.T) {
		key := createTestToken(t, store, "provenance-1", 10)

		require.NoError(t, store.UpsertGeoToken(ctx, key, patch.New().
			Set("created_at_block", uint64(50)).
			Set("updated_at_block", uint64(50))))

		token, err := store.GetGeoToken(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), token.CreatedAtBlock)
		assert.Equal(t, uint64(50), token.UpdatedAtBlock)
	})

	t.Run("zero created_at_block is filled later", func(t *testing.T) {
		key := tokenKey("provenance-2")
		require.NoError(t, store.UpsertGeoToken(ctx, key, patch.New().Set("type", "building")))
		require.NoError(t, store.UpsertGeoToken(ctx, key, patch.New().Set("created_at_block", uint64(7))))

		token, err := store.GetGeoToken(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), token.CreatedAtBlock)
	})

	t.Run("replaying the same patch is idempotent", func(t *testing.T) {
		key := tokenKey("idempotent-1")
		p := patch.New().Set("type", "land").Set("area", 120.5).Set("created_at_block", uint64(3))
		for range 3 {
			require.NoError(t, store.UpsertGeoToken(ctx, key, p))
		}

		tokens, total, err := store.FilterGeoTokens(ctx, TokenFilter{TokenIDs: []string{"idempotent-1"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, tokens, 1)
		assert.Equal(t, 120.5, *tokens[0].Area)
	})

	t.Run("addresses in keys are normalized", func(t *testing.T) {
		upper := domain.TokenKey{TokenID: "case-1", ContractAddress: "0xAAAA000000000000000000000000000000000001"}
		require.NoError(t, store.UpsertGeoToken(ctx, upper, patch.New().Set("type", "land")))

		token, err := store.GetGeoToken(ctx, tokenKey("case-1"))
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, domain.NormalizeAddress(testContract), token.ContractAddress)
	})

	t.Run("missing entity returns nil without error", func(t *testing.T) {
		token, err := store.GetGeoToken(ctx, tokenKey("does-not-exist"))
		require.NoError(t, err)
		assert.Nil(t, token)
	})
}

func testUpsertConcurrent(t *testing.T, store Store) {
	ctx := context.Background()
	key := tokenKey("concurrent-1")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.UpsertGeoToken(ctx, key, patch.New().
				Set("photos_count", i).
				Set("created_at_block", uint64(100+i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	_, total, err := store.FilterGeoTokens(ctx, TokenFilter{TokenIDs: []string{"concurrent-1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

// =============================================================================
// Test: Contour index
// =============================================================================

func testContourReplace(t *testing.T, store Store) {
	ctx := context.Background()
	key := tokenKey("contour-1")

	t.Run("stored contour equals input position for position", func(t *testing.T) {
		cells := []string{"w24q8xwf4uq0", "w24q8xwfjuk0", "w24q8xwfvfm0", "w24q8xwfrer0"}
		require.NoError(t, store.UpsertContour(ctx, key, cells, ContourOptions{Level: strPtr("0")}))

		got, err := store.GetContour(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, cells, got)
	})

	t.Run("replace removes dropped cells and reorders survivors", func(t *testing.T) {
		next := []string{"w24q8xwfrer0", "w24q8xwf4uq0", "w24q8xwfnew0"}
		require.NoError(t, store.UpsertContour(ctx, key, next, ContourOptions{Level: strPtr("1")}))

		got, err := store.GetContour(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, next, got)

		results, err := store.FindByExactGeohash(ctx, "w24q8xwfjuk0", ContourFilter{})
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = store.FindByExactGeohash(ctx, "w24q8xwfnew0", ContourFilter{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "1", *results[0].Level)
	})

	t.Run("duplicate cells keep their first position", func(t *testing.T) {
		dupKey := tokenKey("contour-dup")
		require.NoError(t, store.UpsertContour(ctx, dupKey, []string{"u0", "u1", "u0", "u2"}, ContourOptions{}))

		got, err := store.GetContour(ctx, dupKey)
		require.NoError(t, err)
		assert.Equal(t, []string{"u0", "u1", "u2"}, got)
	})

	t.Run("invalid geohash is rejected without side effects", func(t *testing.T) {
		before, err := store.GetContour(ctx, key)
		require.NoError(t, err)

		err = store.UpsertContour(ctx, key, []string{"w24q8xwf4uq0", "w24a"}, ContourOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidGeohash))

		after, err := store.GetContour(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("delete removes every cell", func(t *testing.T) {
		require.NoError(t, store.DeleteContour(ctx, key))
		got, err := store.GetContour(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func testContourLookup(t *testing.T, store Store) {
	ctx := context.Background()

	a := tokenKey("lookup-a")
	b := tokenKey("lookup-b")
	other := domain.NewTokenKey("lookup-c", testPprAddress)
	require.NoError(t, store.UpsertContour(ctx, a, []string{"sv8wrqfm", "sv8wrqft", "sv8wrqfv"}, ContourOptions{Level: strPtr("0")}))
	require.NoError(t, store.UpsertContour(ctx, b, []string{"sv8wrw00", "sv8wrw01"}, ContourOptions{Level: strPtr("2")}))
	require.NoError(t, store.UpsertContour(ctx, other, []string{"sv8wrqfm", "sv9000"}, ContourOptions{}))

	t.Run("prefix match returns each token once with its full contour", func(t *testing.T) {
		results, err := store.FindByParentGeohash(ctx, "sv8wrqf", ContourFilter{})
		require.NoError(t, err)
		require.Len(t, results, 2)

		byKey := map[domain.TokenKey]ContourResult{}
		for _, r := range results {
			byKey[r.Key()] = r
		}
		assert.Equal(t, []string{"sv8wrqfm", "sv8wrqft", "sv8wrqfv"}, byKey[a].Contour)
		assert.Equal(t, []string{"sv8wrqfm", "sv9000"}, byKey[other].Contour)
	})

	t.Run("prefix match is a superset of exact matches", func(t *testing.T) {
		exact, err := store.FindByExactGeohash(ctx, "sv8wrqft", ContourFilter{})
		require.NoError(t, err)
		parent, err := store.FindByParentGeohash(ctx, "sv8wrqft", ContourFilter{})
		require.NoError(t, err)
		for _, r := range exact {
			assert.Contains(t, parent, r)
		}
	})

	t.Run("contract and level filters narrow the result", func(t *testing.T) {
		results, err := store.FindByParentGeohash(ctx, "sv8wr", ContourFilter{ContractAddress: testContract, Level: strPtr("2")})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "lookup-b", results[0].TokenID)
	})

	t.Run("several prefixes are deduplicated", func(t *testing.T) {
		results, err := store.FindByParentGeohashes(ctx, []string{"sv8wrq", "sv8wrqfm", "sv8wrw"}, ContourFilter{})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("prefixes longer than the precision are truncated", func(t *testing.T) {
		results, err := store.FindByParentGeohash(ctx, "sv8wrqfm0000000", ContourFilter{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("invalid prefix is rejected", func(t *testing.T) {
		_, err := store.FindByParentGeohash(ctx, "sv8a", ContourFilter{})
		assert.True(t, errors.Is(err, domain.ErrInvalidGeohash))
	})
}

// =============================================================================
// Test: Tokens
// =============================================================================

func testDeleteGeoTokenCascade(t *testing.T, store Store) {
	ctx := context.Background()
	key := createTestToken(t, store, "delete-1", 1)

	require.NoError(t, store.UpsertContour(ctx, key, []string{"u33d", "u33e"}, ContourOptions{}))
	require.NoError(t, store.SetTokenOwners(ctx, key, []string{testOwner}))
	require.NoError(t, store.SetTokenFeatures(ctx, key, []string{"pool"}))

	order := OrderKey{OrderID: "1", ContractAddress: testMarket}
	require.NoError(t, store.UpsertSaleOrder(ctx, order, patch.New().Set("status_name", "active")))
	_, err := store.SetSaleOrderTokens(ctx, order, []domain.TokenKey{key})
	require.NoError(t, err)

	require.NoError(t, store.DeleteGeoToken(ctx, key))

	token, err := store.GetGeoToken(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, token)

	cells, err := store.GetContour(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, cells)

	owners, err := store.GetTokenOwners(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, owners)

	results, err := store.FindByParentGeohash(ctx, "u33", ContourFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)

	tokens, err := store.GetSaleOrderTokens(ctx, order)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	t.Run("deleting a missing token is a no-op", func(t *testing.T) {
		require.NoError(t, store.DeleteGeoToken(ctx, tokenKey("never-stored")))
	})
}

func testTokenOwnersAndFeatures(t *testing.T, store Store) {
	ctx := context.Background()
	key := createTestToken(t, store, "owners-1", 1)

	t.Run("owners keep their order and are normalized", func(t *testing.T) {
		require.NoError(t, store.SetTokenOwners(ctx, key, []string{"0xBB", "0xaa", "0xbb"}))
		owners, err := store.GetTokenOwners(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xbb", "0xaa"}, owners)
	})

	t.Run("owners of a missing token are rejected", func(t *testing.T) {
		err := store.SetTokenOwners(ctx, tokenKey("owners-missing"), []string{"0xaa"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("features filter requires every feature", func(t *testing.T) {
		other := createTestToken(t, store, "owners-2", 2)
		require.NoError(t, store.SetTokenFeatures(ctx, key, []string{"pool", "garage", "pool"}))
		require.NoError(t, store.SetTokenFeatures(ctx, other, []string{"pool"}))

		features, err := store.GetTokenFeatures(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"garage", "pool"}, features)

		tokens, total, err := store.FilterGeoTokens(ctx, TokenFilter{Features: []string{"pool", "garage"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, tokens, 1)
		assert.Equal(t, "owners-1", tokens[0].TokenID)

		_, total, err = store.FilterGeoTokens(ctx, TokenFilter{Features: []string{"pool"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})
}

func testFilterGeoTokens(t *testing.T, store Store) {
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		key := tokenKey(fmt.Sprintf("filter-%d", i))
		require.NoError(t, store.UpsertGeoToken(ctx, key, patch.New().
			Set("type", "land").
			Set("area", float64(i*100)).
			Set("bedrooms_count", i).
			Set("human_address", fmt.Sprintf("Main street %d", i)).
			Set("created_at_block", uint64(i))))
	}
	require.NoError(t, store.UpsertContour(ctx, tokenKey("filter-2"), []string{"gcpvj0du"}, ContourOptions{}))

	t.Run("range and paging", func(t *testing.T) {
		tokens, total, err := store.FilterGeoTokens(ctx, TokenFilter{
			Query:   Query{Limit: 2, SortBy: "area", SortDir: SortDesc},
			AreaMin: floatPtr(200),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, tokens, 2)
		assert.Equal(t, "filter-5", tokens[0].TokenID)
		assert.Equal(t, "filter-4", tokens[1].TokenID)
	})

	t.Run("unknown sort column falls back to id", func(t *testing.T) {
		tokens, _, err := store.FilterGeoTokens(ctx, TokenFilter{Query: Query{SortBy: "owner; DROP TABLE geo_tokens"}})
		require.NoError(t, err)
		assert.Len(t, tokens, 5)
	})

	t.Run("geohash prefix", func(t *testing.T) {
		tokens, total, err := store.FilterGeoTokens(ctx, TokenFilter{Geohashes: []string{"gcpv"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "filter-2", tokens[0].TokenID)
	})

	t.Run("human address prefix", func(t *testing.T) {
		_, total, err := store.FilterGeoTokens(ctx, TokenFilter{HumanAddress: "Main street 3", BedroomsMax: intPtr(3)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}

// =============================================================================
// Test: Sales
// =============================================================================

func testSaleOrderTokens(t *testing.T, store Store) {
	ctx := context.Background()
	order := OrderKey{OrderID: "7", ContractAddress: testMarket}
	require.NoError(t, store.UpsertSaleOrder(ctx, order, patch.New().Set("status_name", "active").Set("created_at_block", uint64(5))))

	t3 := createTestToken(t, store, "order-3", 1)
	t1 := createTestToken(t, store, "order-1", 1)
	pending := tokenKey("order-pending")

	t.Run("association order is preserved and missing tokens are deferred", func(t *testing.T) {
		missing, err := store.SetSaleOrderTokens(ctx, order, []domain.TokenKey{t3, pending, t1, t3})
		require.NoError(t, err)
		assert.Equal(t, []domain.TokenKey{pending}, missing)

		tokens, err := store.GetSaleOrderTokens(ctx, order)
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, "order-3", tokens[0].TokenID)
		assert.Equal(t, "order-1", tokens[1].TokenID)
	})

	t.Run("replaying the set is idempotent", func(t *testing.T) {
		_, err := store.SetSaleOrderTokens(ctx, order, []domain.TokenKey{t3, pending, t1})
		require.NoError(t, err)
		tokens, err := store.GetSaleOrderTokens(ctx, order)
		require.NoError(t, err)
		assert.Len(t, tokens, 2)
	})

	t.Run("deferred reference is linked once the token arrives", func(t *testing.T) {
		orders, err := store.ResolveDeferredTokenRefs(ctx, pending)
		require.NoError(t, err)
		assert.Empty(t, orders)

		createTestToken(t, store, "order-pending", 9)
		orders, err = store.ResolveDeferredTokenRefs(ctx, pending)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "7", orders[0].OrderID)

		tokens, err := store.GetSaleOrderTokens(ctx, order)
		require.NoError(t, err)
		require.Len(t, tokens, 3)
		assert.Equal(t, []string{"order-3", "order-pending", "order-1"},
			[]string{tokens[0].TokenID, tokens[1].TokenID, tokens[2].TokenID})

		orders, err = store.ResolveDeferredTokenRefs(ctx, pending)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("tokens of a missing order are rejected", func(t *testing.T) {
		_, err := store.SetSaleOrderTokens(ctx, OrderKey{OrderID: "none", ContractAddress: testMarket}, []domain.TokenKey{t1})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func testResolveDeferredConcurrent(t *testing.T, store Store) {
	ctx := context.Background()
	listed := createTestToken(t, store, "race-listed", 1)

	for i := range 20 {
		order := OrderKey{OrderID: fmt.Sprintf("race-%d", i), ContractAddress: testMarket}
		require.NoError(t, store.UpsertSaleOrder(ctx, order, patch.New().Set("status_name", "active").Set("created_at_block", uint64(5))))

		late := tokenKey(fmt.Sprintf("race-late-%d", i))
		missing, err := store.SetSaleOrderTokens(ctx, order, []domain.TokenKey{listed, late})
		require.NoError(t, err)
		require.Equal(t, []domain.TokenKey{late}, missing)
		createTestToken(t, store, late.TokenID, 9)

		// the order drops the late token while the token's arrival is being resolved
		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = store.SetSaleOrderTokens(ctx, order, []domain.TokenKey{listed})
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = store.ResolveDeferredTokenRefs(ctx, late)
		}()
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		tokens, err := store.GetSaleOrderTokens(ctx, order)
		require.NoError(t, err)
		require.Len(t, tokens, 1, "order %s", order)
		assert.Equal(t, "race-listed", tokens[0].TokenID)

		orders, err := store.ResolveDeferredTokenRefs(ctx, late)
		require.NoError(t, err)
		assert.Empty(t, orders)
	}
}

func testSaleOrderFilter(t *testing.T, store Store) {
	ctx := context.Background()

	a := OrderKey{OrderID: "a", ContractAddress: testMarket}
	b := OrderKey{OrderID: "b", ContractAddress: testMarket}
	require.NoError(t, store.UpsertSaleOrder(ctx, a, patch.New().Set("ask", 10.0).Set("currency", "eth").Set("sum_land_area", 500.0)))
	require.NoError(t, store.UpsertSaleOrder(ctx, b, patch.New().Set("ask", 20.0).Set("currency", "erc20").Set("sum_land_area", 50.0)))
	require.NoError(t, store.SetSaleOrderFeatures(ctx, a, []string{"pool", "garden"}, []string{"land", "beachLot"}))
	require.NoError(t, store.SetSaleOrderFeatures(ctx, b, []string{"pool"}, []string{"building"}))

	t.Run("features and types need full membership", func(t *testing.T) {
		orders, total, err := store.FilterSaleOrders(ctx, SaleOrderFilter{Features: []string{"pool", "garden"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "a", orders[0].OrderID)

		_, total, err = store.FilterSaleOrders(ctx, SaleOrderFilter{Features: []string{"pool"}, Types: []string{"building"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = store.FilterSaleOrders(ctx, SaleOrderFilter{Types: []string{"pool"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("scalar filters", func(t *testing.T) {
		orders, total, err := store.FilterSaleOrders(ctx, SaleOrderFilter{Currency: "erc20", AskMin: floatPtr(15)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "b", orders[0].OrderID)

		_, total, err = store.FilterSaleOrders(ctx, SaleOrderFilter{LandAreaMin: floatPtr(100)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("geohash prefix resolves through order tokens", func(t *testing.T) {
		key := createTestToken(t, store, "geo-order", 1)
		require.NoError(t, store.UpsertContour(ctx, key, []string{"dr5ru7"}, ContourOptions{}))
		_, err := store.SetSaleOrderTokens(ctx, b, []domain.TokenKey{key})
		require.NoError(t, err)

		orders, total, err := store.FilterSaleOrders(ctx, SaleOrderFilter{Geohashes: []string{"dr5r"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "b", orders[0].OrderID)
	})
}

func testFirstOffer(t *testing.T, store Store) {
	ctx := context.Background()
	order := OrderKey{OrderID: "42", ContractAddress: testMarket}

	offer := func(buyer string, block uint64) {
		key := OfferKey{OrderID: order.OrderID, Buyer: buyer, ContractAddress: order.ContractAddress}
		require.NoError(t, store.UpsertSaleOffer(ctx, key, patch.New().
			Set("bid", 1.0).
			Set("created_at_block", block)))
	}

	firstOffers := func() []string {
		offers, _, err := store.FilterSaleOffers(ctx, SaleOfferFilter{OrderID: order.OrderID, IsFirstOffer: boolPtr(true)})
		require.NoError(t, err)
		var buyers []string
		for _, o := range offers {
			buyers = append(buyers, o.Buyer)
		}
		return buyers
	}

	offer("0x03", 30)
	offer("0x02", 20)
	offer("0x01", 20)
	require.NoError(t, store.RecomputeFirstOffer(ctx, order))
	assert.Equal(t, []string{"0x01"}, firstOffers())

	t.Run("an earlier offer takes over", func(t *testing.T) {
		offer("0x09", 10)
		require.NoError(t, store.RecomputeFirstOffer(ctx, order))
		assert.Equal(t, []string{"0x09"}, firstOffers())
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		require.NoError(t, store.RecomputeFirstOffer(ctx, order))
		require.NoError(t, store.RecomputeFirstOffer(ctx, order))
		assert.Equal(t, []string{"0x09"}, firstOffers())
	})

	t.Run("an order without offers is fine", func(t *testing.T) {
		require.NoError(t, store.RecomputeFirstOffer(ctx, OrderKey{OrderID: "empty", ContractAddress: testMarket}))
	})
}

// =============================================================================
// Test: Applications
// =============================================================================

func testApplications(t *testing.T, store Store) {
	ctx := context.Background()
	key := ApplicationKey{ApplicationID: "0x01", ContractAddress: testContract}

	require.NoError(t, store.UpsertApplication(ctx, key, patch.New().
		Set("applicant_address", domain.NormalizeAddress(testOwner)).
		Set("status_name", "submitted").
		Set("fee_currency", "eth")))
	require.NoError(t, store.SetApplicationRoles(ctx, key,
		[]string{"PM_SURVEYOR", "PM_LAWYER"},
		[]string{"PM_LAWYER"},
		[]string{"0xORACLE1"}))

	t.Run("roles are stored by kind", func(t *testing.T) {
		roles, err := store.GetApplicationRoles(ctx, key, schema.ApplicationRoleKindRole)
		require.NoError(t, err)
		assert.Equal(t, []string{"PM_LAWYER", "PM_SURVEYOR"}, roles)

		oracles, err := store.GetApplicationRoles(ctx, key, schema.ApplicationRoleKindOracle)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xoracle1"}, oracles)
	})

	t.Run("filter by oracle and available role", func(t *testing.T) {
		_, total, err := store.FilterApplications(ctx, ApplicationFilter{Oracles: []string{"0xOracle1"}, AvailableRoles: []string{"PM_LAWYER"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = store.FilterApplications(ctx, ApplicationFilter{AvailableRoles: []string{"PM_SURVEYOR"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("tokens skip keys that are not stored", func(t *testing.T) {
		stored := createTestToken(t, store, "app-token", 1)
		require.NoError(t, store.SetApplicationTokens(ctx, key, []domain.TokenKey{stored, tokenKey("app-missing")}))

		tokens, err := store.GetApplicationTokens(ctx, key)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.Equal(t, "app-token", tokens[0].TokenID)
	})
}

// =============================================================================
// Test: Private property registries
// =============================================================================

func testRegistries(t *testing.T, store Store) {
	ctx := context.Background()
	controller := "0xC0FFEE0000000000000000000000000000000001"

	require.NoError(t, store.UpsertRegistry(ctx, testPprAddress, patch.New().
		Set("controller", domain.NormalizeAddress(controller)).
		Set("name", "My registry")))

	t.Run("lookup by controller", func(t *testing.T) {
		reg, err := store.FindRegistryByController(ctx, controller)
		require.NoError(t, err)
		require.NotNil(t, reg)
		assert.Equal(t, testPprAddress, reg.Address)
	})

	t.Run("members", func(t *testing.T) {
		require.NoError(t, store.UpsertPprMember(ctx, testPprAddress, "0xB", nil))
		require.NoError(t, store.UpsertPprMember(ctx, testPprAddress, "0xA", nil))
		require.NoError(t, store.UpsertPprMember(ctx, testPprAddress, "0xa", nil))
		require.NoError(t, store.DeletePprMember(ctx, testPprAddress, "0xb"))

		members, err := store.ListPprMembers(ctx, testPprAddress)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "0xa", members[0].Address)
	})

	t.Run("pending proposal counts", func(t *testing.T) {
		for i, p := range []struct {
			burn, tokenOwner bool
			status string
		}{
			{true, false, "pending"},
			{true, true, "pending"},
			{false, false, "pending"},
			{false, false, "executed"},
		} {
			key := PprProposalKey{RegistryAddress: testPprAddress, ContractAddress: controller, ProposalID: fmt.Sprint(i)}
			require.NoError(t, store.UpsertPprProposal(ctx, key, patch.New().
				Set("token_id", "1").
				Set("status", p.status).
				Set("is_burn_proposal", p.burn).
				Set("is_approved_by_token_owner", p.tokenOwner)))
		}

		count, err := store.CountPprProposals(ctx, PprProposalFilter{
			RegistryAddress:      testPprAddress,
			TokenID:              "1",
			Statuses:             []string{"pending"},
			IsBurnProposal:       boolPtr(true),
			ApprovedByTokenOwner: boolPtr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = store.CountPprProposals(ctx, PprProposalFilter{RegistryAddress: testPprAddress, Statuses: []string{"pending"}, IsBurnProposal: boolPtr(false)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("legal agreements", func(t *testing.T) {
		require.NoError(t, store.UpsertLegalAgreement(ctx, testPprAddress, "QmHash", nil))
		require.NoError(t, store.UpsertLegalAgreement(ctx, testPprAddress, "QmHash", nil))
		agreements, err := store.ListLegalAgreements(ctx, testPprAddress)
		require.NoError(t, err)
		assert.Len(t, agreements, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteRegistry(ctx, testPprAddress))
		reg, err := store.GetRegistry(ctx, testPprAddress)
		require.NoError(t, err)
		assert.Nil(t, reg)
	})
}

// =============================================================================
// Test: Communities
// =============================================================================

func testCommunities(t *testing.T, store Store) {
	ctx := context.Background()
	storage := "0x5707a6e000000000000000000000000000000001"
	pm := "0x9000000000000000000000000000000000000001"

	require.NoError(t, store.UpsertCommunity(ctx, testCommunity, patch.New().
		Set("storage_address", storage).
		Set("name", "Community")))
	require.NoError(t, store.UpsertCommunityVoting(ctx, testCommunity, "0xmarker", patch.New().
		Set("proposal_manager", pm)))

	t.Run("find by any community contract", func(t *testing.T) {
		for _, address := range []string{testCommunity, storage, pm} {
			c, err := store.FindCommunityByContract(ctx, address)
			require.NoError(t, err)
			require.NotNil(t, c, address)
			assert.Equal(t, testCommunity, c.Address)
		}

		c, err := store.FindCommunityByContract(ctx, "0x404")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("token sets", func(t *testing.T) {
		t1 := createTestToken(t, store, "community-1", 1)
		t2 := createTestToken(t, store, "community-2", 1)
		require.NoError(t, store.AddCommunityTokens(ctx, testCommunity, []domain.TokenKey{t1, t2, t1}))
		require.NoError(t, store.AddCommunityTokens(ctx, testCommunity, []domain.TokenKey{t1}))

		count, err := store.CountCommunityTokens(ctx, testCommunity)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		require.NoError(t, store.RemoveCommunityTokens(ctx, testCommunity, []domain.TokenKey{t2}))
		count, err = store.CountCommunityTokens(ctx, testCommunity)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		communities, err := store.GetTokenCommunities(ctx, t1)
		require.NoError(t, err)
		require.Len(t, communities, 1)
		assert.Equal(t, testCommunity, communities[0].Address)

		memberTokens, err := store.GetCommunityMemberTokens(ctx, testCommunity, testOwner)
		require.NoError(t, err)
		require.Len(t, memberTokens, 1)
		assert.Equal(t, "community-1", memberTokens[0].TokenID)

		require.NoError(t, store.AddApprovedTokens(ctx, testCommunity, []domain.TokenKey{t2}))
		approved, err := store.GetApprovedTokens(ctx, testCommunity)
		require.NoError(t, err)
		require.Len(t, approved, 1)
		require.NoError(t, store.RemoveApprovedTokens(ctx, testCommunity, []domain.TokenKey{t2}))
		approved, err = store.GetApprovedTokens(ctx, testCommunity)
		require.NoError(t, err)
		assert.Empty(t, approved)
	})

	t.Run("members", func(t *testing.T) {
		require.NoError(t, store.UpsertCommunityMember(ctx, testCommunity, testOwner, patch.New().Set("current_reputation", 10.0)))
		require.NoError(t, store.UpsertCommunityMember(ctx, testCommunity, "0x02", patch.New().Set("current_reputation", 5.0)))

		count, err := store.CountCommunityMembers(ctx, testCommunity)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		communities, total, err := store.FilterCommunities(ctx, CommunityFilter{Member: "0x02"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, testCommunity, communities[0].Address)

		require.NoError(t, store.DeleteCommunityMember(ctx, testCommunity, "0x02"))
		member, err := store.GetCommunityMember(ctx, testCommunity, "0x02")
		require.NoError(t, err)
		assert.Nil(t, member)
	})

	t.Run("proposals come latest timeout first", func(t *testing.T) {
		for i, timeout := range []uint64{100, 300, 200} {
			require.NoError(t, store.UpsertCommunityProposal(ctx, pm, fmt.Sprint(i), patch.New().
				Set("community_address", testCommunity).
				Set("marker", "0xmarker").
				Set("meeting_id", "1").
				Set("status", schema.ProposalStatusActive).
				Set("timeout_at", timeout)))
		}

		proposals, err := store.FindCommunityProposals(ctx, ProposalFilter{CommunityAddress: testCommunity, MeetingID: "1", Limit: 2})
		require.NoError(t, err)
		require.Len(t, proposals, 2)
		assert.Equal(t, "1", proposals[0].ProposalID)
		assert.Equal(t, "2", proposals[1].ProposalID)

		count, err := store.CountCommunityProposals(ctx, ProposalFilter{Marker: "0xmarker", Statuses: []string{schema.ProposalStatusActive}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("rules linked to proposals", func(t *testing.T) {
		rule, err := store.UpsertCommunityRule(ctx, testCommunity, "5", patch.New().
			Set("is_active", true).
			Set("meeting_id", "1"))
		require.NoError(t, err)
		require.NotNil(t, rule)

		require.NoError(t, store.UpsertCommunityProposal(ctx, pm, "0", patch.New().Set("rule_db_id", rule.ID)))
		require.NoError(t, store.MarkRuleProposalsNotActual(ctx, rule.ID))

		proposal, err := store.GetCommunityProposal(ctx, pm, "0")
		require.NoError(t, err)
		assert.False(t, proposal.IsActual)

		untouched, err := store.GetCommunityProposal(ctx, pm, "1")
		require.NoError(t, err)
		assert.True(t, untouched.IsActual)

		count, err := store.CountCommunityRules(ctx, testCommunity, "1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		require.NoError(t, store.DeleteCommunityRule(ctx, testCommunity, "5"))
		count, err = store.CountCommunityRules(ctx, testCommunity, "")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("meetings", func(t *testing.T) {
		meeting, err := store.UpsertCommunityMeeting(ctx, testCommunity, "1", patch.New().
			Set("status", schema.MeetingStatusPlanned).
			Set("rules_count", 2))
		require.NoError(t, err)
		assert.Equal(t, 2, meeting.RulesCount)
		assert.Equal(t, schema.MeetingStatusPlanned, *meeting.Status)
	})
}

// =============================================================================
// Test: Flush
// =============================================================================

func testFlush(t *testing.T, store Store) {
	ctx := context.Background()
	key := createTestToken(t, store, "flush-1", 1)
	require.NoError(t, store.UpsertContour(ctx, key, []string{"9q8y"}, ContourOptions{}))
	require.NoError(t, store.SetCheckpoint(ctx, 77))
	require.NoError(t, store.UpsertCommunity(ctx, testCommunity, nil))

	require.NoError(t, store.Flush(ctx))

	token, err := store.GetGeoToken(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, token)

	results, err := store.FindByParentGeohash(ctx, "9q8y", ContourFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)

	_, ok, err := store.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	community, err := store.GetCommunity(ctx, testCommunity)
	require.NoError(t, err)
	assert.Nil(t, community)
}

// RunStoreTests runs every store test against the implementation built by initDB
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Checkpoint", testCheckpoint},
		{"UpsertMerge", testUpsertMerge},
		{"UpsertConcurrent", testUpsertConcurrent},
		{"ContourReplace", testContourReplace},
		{"ContourLookup", testContourLookup},
		{"DeleteGeoTokenCascade", testDeleteGeoTokenCascade},
		{"TokenOwnersAndFeatures", testTokenOwnersAndFeatures},
		{"FilterGeoTokens", testFilterGeoTokens},
		{"SaleOrderTokens", testSaleOrderTokens},
		{"ResolveDeferredConcurrent", testResolveDeferredConcurrent},
		{"SaleOrderFilter", testSaleOrderFilter},
		{"FirstOffer", testFirstOffer},
		{"Applications", testApplications},
		{"Registries", testRegistries},
		{"Communities", testCommunities},
		{"Flush", testFlush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
