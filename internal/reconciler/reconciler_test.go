package reconciler_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/mocks"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/reconciler"
	"github.com/galtspace/geo-explorer/internal/store"
)

const (
	spaceGeoData   = "0x1111111111111111111111111111111111111111"
	propertyMarket = "0x2222222222222222222222222222222222222222"
	pprFundFactory = "0x3333333333333333333333333333333333333333"
	owner          = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	buyerA         = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	buyerB         = "0xcccccccccccccccccccccccccccccccccccccccc"
	zeroAddress    = "0x0000000000000000000000000000000000000000"

	communityAddress = "0x4444444444444444444444444444444444444444"
	storageAddress   = "0x5555555555555555555555555555555555555555"
	ruleRegistry     = "0x6666666666666666666666666666666666666666"
	pmAddress        = "0x7777777777777777777777777777777777777777"
	registryAddress  = "0x8888888888888888888888888888888888888888"
	controller       = "0x9999999999999999999999999999999999999999"

	firstOfferDelay = 500 * time.Millisecond
)

var (
	sqliteSeq atomic.Int64
	contour   = []string{"u33dbfcyegcf", "u33dbfcyegcg", "u33dbfcyegcu"}
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testReconcilerMocks struct {
	ctrl       *gomock.Controller
	chain      *mocks.MockChainReader
	content    *mocks.MockContentStore
	clock      *mocks.MockClock
	store      store.Store
	reconciler reconciler.Reconciler
}

func setupTest(t *testing.T) *testReconcilerMocks {
	ctrl := gomock.NewController(t)

	dsn := fmt.Sprintf("file:reconciler_test_%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	db, err := store.Open(store.DBConfig{Driver: store.DriverSqlite, DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tm := &testReconcilerMocks{
		ctrl:    ctrl,
		chain:   mocks.NewMockChainReader(ctrl),
		content: mocks.NewMockContentStore(ctrl),
		clock:   mocks.NewMockClock(ctrl),
		store:   store.NewStore(db),
	}
	tm.reconciler = reconciler.NewReconciler(reconciler.Config{
		SpaceGeoData:    spaceGeoData,
		PropertyMarket:  propertyMarket,
		PprFundFactory:  pprFundFactory,
		FirstOfferDelay: firstOfferDelay,
		MaxCascadeDepth: reconciler.DefaultMaxDepth,
	}, tm.store, tm.chain, tm.content, tm.clock)
	return tm
}

func tearDownTest(tm *testReconcilerMocks) {
	tm.reconciler.Close()
	tm.ctrl.Finish()
}

func tokenEvent(id string, block uint64) domain.Event {
	return domain.Event{
		Type:            domain.EventSetSpaceTokenContour,
		ContractAddress: spaceGeoData,
		BlockNumber:     block,
		TxHash:          fmt.Sprintf("0xtx%d", block),
		Values:          map[string]any{"spaceTokenId": id},
	}
}

// expectToken makes the chain report a land token owned by owner
func (tm *testReconcilerMocks) expectToken(id string, area float64) {
	key := domain.NewTokenKey(id, spaceGeoData)
	tm.chain.EXPECT().SpaceTokenData(gomock.Any(), key).
		Return(&chain.SpaceTokenData{TokenType: "land", Contour: contour, Area: area, HumanAddress: "Main st 1"}, nil)
	tm.chain.EXPECT().SpaceTokenOwner(gomock.Any(), key).Return(owner, nil)
	tm.chain.EXPECT().LockerInfo(gomock.Any(), owner).Return(nil, nil)
}

func TestHandle_UnknownEventType(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	err := tm.reconciler.Handle(context.Background(), domain.Event{Type: "Nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownEventType)
}

func TestHandle_TokenChanged_SavesOnce(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	tm.expectToken("1", 120)

	require.NoError(t, tm.reconciler.Handle(ctx, tokenEvent("1", 10)))
	// replaying the same block does not read the chain again
	require.NoError(t, tm.reconciler.Handle(ctx, tokenEvent("1", 10)))

	key := domain.NewTokenKey("1", spaceGeoData)
	token, err := tm.store.GetGeoToken(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, owner, *token.Owner)
	assert.Equal(t, 120.0, *token.Area)
	assert.Equal(t, "land", *token.TokenType)
	assert.Equal(t, 3, token.GeohashesCount)
	assert.False(t, token.IsPpr)
	assert.NotNil(t, token.LatCenter)
	assert.Equal(t, uint64(10), token.CreatedAtBlock)

	cells, err := tm.store.GetContour(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, contour, cells)

	owners, err := tm.store.GetTokenOwners(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{owner}, owners)
}

func TestHandle_TokenChanged_DeletesBurnedToken(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()
	key := domain.NewTokenKey("1", spaceGeoData)

	tm.expectToken("1", 120)
	require.NoError(t, tm.reconciler.Handle(ctx, tokenEvent("1", 10)))

	tm.chain.EXPECT().SpaceTokenData(gomock.Any(), key).
		Return(&chain.SpaceTokenData{TokenType: "land", Contour: contour}, nil)
	tm.chain.EXPECT().SpaceTokenOwner(gomock.Any(), key).Return(zeroAddress, nil)
	require.NoError(t, tm.reconciler.Handle(ctx, tokenEvent("1", 11)))

	token, err := tm.store.GetGeoToken(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, token)

	cells, err := tm.store.GetContour(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestHandle_SaleOrder_ResolvesDeferredTokens(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	tm.expectToken("1", 100)
	require.NoError(t, tm.reconciler.Handle(ctx, tokenEvent("1", 5)))

	tm.chain.EXPECT().SaleOrder(gomock.Any(), propertyMarket, "7").Return(&chain.SaleOrder{
		OrderID:       "7",
		Seller:        owner,
		Ask:           10,
		Status:        "active",
		Currency:      chain.CurrencyETH,
		TokenContract: spaceGeoData,
		TokenIDs:      []string{"1", "2"},
	}, nil)
	err := tm.reconciler.Handle(ctx, domain.Event{
		Type:            domain.EventSaleOrderStatusChanged,
		ContractAddress: propertyMarket,
		BlockNumber:     20,
		Values:          map[string]any{"orderId": "7"},
	})
	require.NoError(t, err)

	orderKey := store.OrderKey{OrderID: "7", ContractAddress: propertyMarket}
	order, err := tm.store.GetSaleOrder(ctx, orderKey)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.False(t, order.IsPpr)
	assert.Equal(t, "ETH", *order.CurrencyName)
	assert.Equal(t, 100.0, *order.SumLandArea)

	tokens, err := tm.store.GetSaleOrderTokens(ctx, orderKey)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	// the missing token shows up later and joins the order
	tm.expectToken("2", 50)
	require.NoError(t, tm.reconciler.Handle(ctx, tokenEvent("2", 21)))

	tokens, err = tm.store.GetSaleOrderTokens(ctx, orderKey)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "1", tokens[0].TokenID)
	assert.Equal(t, "2", tokens[1].TokenID)

	order, err = tm.store.GetSaleOrder(ctx, orderKey)
	require.NoError(t, err)
	assert.Equal(t, 150.0, *order.SumLandArea)
	assert.Equal(t, 50.0, *order.MinLandArea)
	assert.Equal(t, 100.0, *order.MaxLandArea)
	assert.Nil(t, order.SumBuildingArea)
}

func TestHandle_SaleOffer_DebouncesFirstOffer(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	var fire func()
	tm.clock.EXPECT().AfterFunc(firstOfferDelay, gomock.Any()).
		DoAndReturn(func(_ time.Duration, f func()) adapter.Timer {
			fire = f
			return mocks.NewMockTimer(tm.ctrl)
		}).
		Times(1)
	tm.chain.EXPECT().SaleOffer(gomock.Any(), propertyMarket, "7", gomock.Any()).
		Return(&chain.SaleOffer{OrderID: "7", Status: "active", Bid: 5}, nil).
		Times(2)

	for i, buyer := range []string{buyerB, buyerA} {
		err := tm.reconciler.Handle(ctx, domain.Event{
			Type:            domain.EventSaleOfferBidChanged,
			ContractAddress: propertyMarket,
			BlockNumber:     uint64(30 + i),
			Values:          map[string]any{"orderId": "7", "buyer": buyer},
		})
		require.NoError(t, err)
	}

	first := store.OfferKey{OrderID: "7", Buyer: buyerB, ContractAddress: propertyMarket}
	offer, err := tm.store.GetSaleOffer(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, offer)
	assert.False(t, offer.IsFirstOffer, "recompute waits for the timer")

	require.NotNil(t, fire)
	fire()

	offer, err = tm.store.GetSaleOffer(ctx, first)
	require.NoError(t, err)
	assert.True(t, offer.IsFirstOffer)

	second, err := tm.store.GetSaleOffer(ctx, store.OfferKey{OrderID: "7", Buyer: buyerA, ContractAddress: propertyMarket})
	require.NoError(t, err)
	assert.False(t, second.IsFirstOffer)
}

func TestHandle_Registry_DeletedWithoutOwner(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	require.NoError(t, tm.store.UpsertRegistry(ctx, registryAddress, patch.New().Set("name", "Homes")))
	tm.chain.EXPECT().Registry(gomock.Any(), registryAddress).Return(&chain.Registry{Owner: zeroAddress}, nil)

	err := tm.reconciler.Handle(ctx, domain.Event{
		Type:            domain.EventPrivatePropertyRegistryUpdated,
		ContractAddress: registryAddress,
		BlockNumber:     40,
	})
	require.NoError(t, err)

	reg, err := tm.store.GetRegistry(ctx, registryAddress)
	require.NoError(t, err)
	assert.Nil(t, reg)
}

func TestHandle_PprProposal_CountsPendingProposals(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	require.NoError(t, tm.store.UpsertRegistry(ctx, registryAddress, patch.New().Set("controller", controller)))
	tokenKey := domain.NewTokenKey("3", registryAddress)
	require.NoError(t, tm.store.UpsertGeoToken(ctx, tokenKey, patch.New().
		Set("owner", owner).Set("is_ppr", true).Set("area", 42.0).
		Set("created_at_block", uint64(1)).Set("updated_at_block", uint64(1))))

	tm.chain.EXPECT().PprProposal(gomock.Any(), controller, "1").Return(&chain.PprProposal{
		ProposalID:     "1",
		TokenID:        "3",
		Creator:        owner,
		Status:         chain.PprProposalPending,
		Data:           "0x42966c68",
		Signature:      "0x42966c68",
		IsBurnProposal: true,
	}, nil)

	err := tm.reconciler.Handle(ctx, domain.Event{
		Type:            domain.EventPprProposalNew,
		ContractAddress: controller,
		BlockNumber:     41,
		Values:          map[string]any{"proposalId": "1", "tokenId": "3"},
	})
	require.NoError(t, err)

	token, err := tm.store.GetGeoToken(ctx, tokenKey)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, 1, token.ProposalsToBurnForTokenOwnerCount)
	assert.Equal(t, 1, token.ProposalsToBurnForRegistryOwnerCount)
	assert.Equal(t, 0, token.ProposalsToEditForTokenOwnerCount)
	assert.Equal(t, 42.0, *token.Area, "counters do not touch the token data")

	proposal, err := tm.store.GetPprProposal(ctx, store.PprProposalKey{
		RegistryAddress: registryAddress, ContractAddress: controller, ProposalID: "1",
	})
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.True(t, proposal.IsBurnProposal)
	assert.Equal(t, token.ID, *proposal.GeoTokenID)
}

func TestHandle_CommunityProposal_ExecutedAddRuleCascade(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	require.NoError(t, tm.store.UpsertCommunity(ctx, communityAddress, patch.New().
		Set("storage_address", storageAddress).
		Set("rule_registry_address", ruleRegistry).
		Set("pm_address", pmAddress)))

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	start, end := now.Add(-48*time.Hour), now.Add(-24*time.Hour)
	tm.clock.EXPECT().Now().Return(now).AnyTimes()

	tm.chain.EXPECT().Proposal(gomock.Any(), gomock.Any(), pmAddress, "4").Return(&chain.Proposal{
		ProposalID:      "4",
		Marker:          "0xmarker",
		Creator:         owner,
		Status:          chain.ProposalExecuted,
		AcceptedShare:   0.7,
		AcceptedCount:   3,
		RequiredSupport: 0.5,
		MinAcceptQuorum: 0.5,
		CurrentSupport:  0.7,
		CurrentQuorum:   0.6,
		TimeoutAt:       uint64(end.Unix()),
		Action:          chain.ActionAddRule,
		MeetingID:       "2",
	}, nil)
	tm.chain.EXPECT().BlockTimestamp(gomock.Any(), uint64(50)).Return(now, nil)
	tm.chain.EXPECT().AddedRuleID(gomock.Any(), gomock.Any(), "0xexec").Return("9", nil)
	tm.chain.EXPECT().Rule(gomock.Any(), gomock.Any(), "9").
		Return(&chain.Rule{IsActive: true, TypeID: "1", Manager: pmAddress, MeetingID: "2"}, nil)
	tm.chain.EXPECT().Meeting(gomock.Any(), gomock.Any(), "2").
		Return(&chain.Meeting{Creator: owner, IsActive: true, StartOn: &start, EndOn: &end}, nil)
	tm.chain.EXPECT().Voting(gomock.Any(), gomock.Any(), "0xmarker").
		Return(&chain.Voting{ProposalManager: pmAddress, Name: "addRuleType", Support: 0.5}, nil)
	tm.chain.EXPECT().Community(gomock.Any(), gomock.Any()).
		Return(&chain.Community{StorageAddress: storageAddress, RuleRegistryAddress: ruleRegistry, Name: "Fund"}, nil).
		AnyTimes()

	err := tm.reconciler.Handle(ctx, domain.Event{
		Type:            domain.EventCommunityUpdateProposal,
		ContractAddress: pmAddress,
		BlockNumber:     50,
		TxHash:          "0xexec",
		Values:          map[string]any{"proposalId": "4", "marker": "0xmarker"},
	})
	require.NoError(t, err)

	rule, err := tm.store.GetCommunityRule(ctx, communityAddress, "9")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.IsActive)
	assert.False(t, rule.IsAbstract)
	assert.Equal(t, "2", *rule.MeetingID)

	abstract, err := tm.store.GetCommunityRule(ctx, communityAddress, pmAddress+"-4")
	require.NoError(t, err)
	assert.Nil(t, abstract)

	proposal, err := tm.store.GetCommunityProposal(ctx, pmAddress, "4")
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.Equal(t, "executed", *proposal.Status)
	assert.Equal(t, "0xexec", *proposal.ExecuteTxID)
	assert.True(t, proposal.AcceptedEnoughToExecute)
	require.NotNil(t, proposal.RuleDbID)
	assert.Equal(t, rule.ID, *proposal.RuleDbID)
	assert.True(t, proposal.IsActual)

	meeting, err := tm.store.GetCommunityMeeting(ctx, communityAddress, "2")
	require.NoError(t, err)
	require.NotNil(t, meeting)
	assert.Equal(t, "done", *meeting.Status)
	assert.Equal(t, 1, meeting.RulesCount)
	assert.Equal(t, 1, meeting.ExecutedProposalsCount)

	voting, err := tm.store.GetCommunityVoting(ctx, communityAddress, "0xmarker")
	require.NoError(t, err)
	require.NotNil(t, voting)
	assert.Equal(t, 1, voting.TotalProposalsCount)

	community, err := tm.store.GetCommunity(ctx, communityAddress)
	require.NoError(t, err)
	assert.Equal(t, "Fund", *community.Name)
}

func TestHandle_CommunityProposal_UnknownBeforeCreation(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)
	ctx := context.Background()

	require.NoError(t, tm.store.UpsertCommunity(ctx, communityAddress, patch.New().Set("pm_address", pmAddress)))

	// no marker in the event and no stored proposal: nothing is read or written
	err := tm.reconciler.Handle(ctx, domain.Event{
		Type:            domain.EventCommunityUpdateProposal,
		ContractAddress: pmAddress,
		BlockNumber:     51,
		Values:          map[string]any{"proposalId": "5"},
	})
	require.NoError(t, err)

	proposal, err := tm.store.GetCommunityProposal(ctx, pmAddress, "5")
	require.NoError(t, err)
	assert.Nil(t, proposal)
}
