package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/mocks"
)

const (
	testMarket  = "0x1111111111111111111111111111111111111111"
	testGeoData = "0x2222222222222222222222222222222222222222"
	testBuyer   = "0x3333333333333333333333333333333333333333"
)

const marketABI = `[
  {"type":"event","name":"SaleOrderStatusChanged","anonymous":false,"inputs":[
    {"name":"orderId","type":"uint256","indexed":true},
    {"name":"status","type":"uint8","indexed":true}]},
  {"type":"function","name":"saleOffers","stateMutability":"view","inputs":[
    {"name":"_orderId","type":"uint256"},{"name":"_buyer","type":"address"}],"outputs":[
    {"name":"status","type":"uint8"},{"name":"ask","type":"uint256"},{"name":"bid","type":"uint256"},
    {"name":"lastAskAt","type":"uint256"},{"name":"lastBidAt","type":"uint256"},{"name":"createdAt","type":"uint256"}]}
]`

const pprControllerABI = `[
  {"type":"function","name":"proposals","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
    {"name":"creator","type":"address"},{"name":"status","type":"uint8"},
    {"name":"tokenOwnerApproved","type":"bool"},{"name":"geoDataManagerApproved","type":"bool"},
    {"name":"data","type":"bytes"},{"name":"dataLink","type":"string"}]}
]`

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testContracts(t *testing.T) *Contracts {
	t.Helper()
	c, err := NewContracts(ContractsFile{
		BlockNumber: 100,
		Contracts: map[string]ContractConfig{
			ContractPropertyMarket: {Address: testMarket, ABI: json.RawMessage(marketABI)},
			ContractSpaceGeoData:   {Address: testGeoData},
			ContractPprController:  {ABI: json.RawMessage(pprControllerABI)},
		},
	})
	require.NoError(t, err)
	return c
}

func orderLog(c *Contracts, block uint64, index uint, orderID, status int64) types.Log {
	ev, _ := c.event(domain.EventSaleOrderStatusChanged)
	return types.Log{
		Address:     common.HexToAddress(testMarket),
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*10 + int64(index))),
		Topics: []common.Hash{
			ev.event.ID,
			common.BigToHash(big.NewInt(orderID)),
			common.BigToHash(big.NewInt(status)),
		},
	}
}

func TestContracts_EventTypes(t *testing.T) {
	c := testContracts(t)

	assert.Equal(t, uint64(100), c.DeploymentBlock())
	assert.Contains(t, c.EventTypes(), domain.EventSaleOrderStatusChanged)
	// geo data has no ABI, so its events cannot be watched
	assert.NotContains(t, c.EventTypes(), domain.EventSetSpaceTokenContour)
	assert.True(t, c.IsAddress(ContractPropertyMarket, "0x1111111111111111111111111111111111111111"))
	assert.False(t, c.IsAddress(ContractPropertyMarket, testGeoData))

	_, err := c.event(domain.EventNewCommunity)
	assert.ErrorIs(t, err, domain.ErrUnknownEventType)
}

func TestGetEventsFromBlock_DecodesAndSorts(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	contracts := testContracts(t)
	client := NewClient(eth, contracts)

	removed := orderLog(contracts, 12, 0, 9, 1)
	removed.Removed = true

	eth.EXPECT().
		FilterLogs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			assert.Equal(t, uint64(10), q.FromBlock.Uint64())
			assert.Equal(t, uint64(20), q.ToBlock.Uint64())
			assert.Equal(t, []common.Address{common.HexToAddress(testMarket)}, q.Addresses)
			return []types.Log{
				orderLog(contracts, 15, 2, 7, 2),
				removed,
				orderLog(contracts, 15, 1, 6, 1),
				orderLog(contracts, 11, 4, 5, 1),
			}, nil
		})

	events, err := client.GetEventsFromBlock(context.Background(), domain.EventSaleOrderStatusChanged, 10, &chain.Filter{ToBlock: 20})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "5", events[0].String("orderId"))
	assert.Equal(t, "6", events[1].String("orderId"))
	assert.Equal(t, "7", events[2].String("orderId"))
	assert.Equal(t, "2", events[2].String("status"))
	assert.Equal(t, testMarket, events[0].ContractAddress)
	assert.Equal(t, uint64(11), events[0].BlockNumber)
	assert.Equal(t, uint(4), events[0].LogIndex)
}

func TestGetEventsFromBlock_HalvesRangeOnTooManyResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	contracts := testContracts(t)
	client := NewClient(eth, contracts).(*ethereumClient)

	var ranges [][2]uint64
	eth.EXPECT().
		FilterLogs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
			ranges = append(ranges, [2]uint64{from, to})
			if to-from+1 > 2 {
				return nil, errors.New("query returned more than 10000 results")
			}
			return []types.Log{orderLog(contracts, from, 0, int64(from), 1)}, nil
		}).
		AnyTimes()

	logs, err := client.getLogsWithRetry(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(1),
		ToBlock:   big.NewInt(4),
	}, 8)
	require.NoError(t, err)

	assert.Len(t, logs, 2)
	assert.Equal(t, [][2]uint64{{1, 4}, {1, 4}, {1, 2}, {3, 4}}, ranges)
}

func TestGetEventsFromBlock_FailsOnOtherErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	client := NewClient(eth, testContracts(t))

	eth.EXPECT().FilterLogs(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := client.GetEventsFromBlock(context.Background(), domain.EventSaleOrderStatusChanged, 1, &chain.Filter{ToBlock: 5})
	assert.ErrorContains(t, err, "connection reset")
}

func TestSaleOffer(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	contracts := testContracts(t)
	client := NewClient(eth, contracts)

	parsed, _ := contracts.ABI(ContractPropertyMarket)
	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	out, err := parsed.Methods["saleOffers"].Outputs.Pack(
		uint8(1),
		new(big.Int).Mul(big.NewInt(3), ether),
		new(big.Int).Div(ether, big.NewInt(2)),
		big.NewInt(1_600_000_000),
		big.NewInt(0),
		big.NewInt(1_500_000_000),
	)
	require.NoError(t, err)

	eth.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		DoAndReturn(func(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			assert.Equal(t, common.HexToAddress(testMarket), *msg.To)
			assert.Equal(t, parsed.Methods["saleOffers"].ID, msg.Data[:4])
			return out, nil
		})

	offer, err := client.SaleOffer(context.Background(), testMarket, "7", testBuyer)
	require.NoError(t, err)
	require.NotNil(t, offer)

	assert.Equal(t, "active", offer.Status)
	assert.Equal(t, 3.0, offer.Ask)
	assert.Equal(t, 0.5, offer.Bid)
	assert.Equal(t, testBuyer, offer.Buyer)
	require.NotNil(t, offer.LastOfferAskAt)
	assert.Equal(t, int64(1_600_000_000), offer.LastOfferAskAt.Unix())
	assert.Nil(t, offer.LastOfferBidAt)
	require.NotNil(t, offer.CreatedAt)
	assert.Equal(t, int64(1_500_000_000), offer.CreatedAt.Unix())
}

func TestSaleOffer_Reverted(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	client := NewClient(eth, testContracts(t))

	eth.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil, errors.New("execution reverted"))

	offer, err := client.SaleOffer(context.Background(), testMarket, "7", testBuyer)
	require.NoError(t, err)
	assert.Nil(t, offer)
}

func TestPprProposal_DecodesCallData(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	contracts := testContracts(t)
	client := NewClient(eth, contracts)

	parsed, _ := contracts.ABI(ContractPprController)
	// burn(42)
	data := append(common.FromHex(burnSelector), common.BigToHash(big.NewInt(42)).Bytes()...)
	out, err := parsed.Methods["proposals"].Outputs.Pack(
		common.HexToAddress(testBuyer), uint8(2), true, false, data, "ipfs://link",
	)
	require.NoError(t, err)
	eth.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).Return(out, nil)

	p, err := client.PprProposal(context.Background(), testMarket, "1")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, chain.PprProposalApproved, p.Status)
	assert.Equal(t, "42", p.TokenID)
	assert.True(t, p.IsBurnProposal)
	assert.Equal(t, burnSelector, p.Signature)
	assert.True(t, p.ApprovedByTokenOwner)
	assert.False(t, p.ApprovedByRegistryOwner)
	assert.False(t, p.IsExecuted)
	assert.Equal(t, testBuyer, p.Creator)
}

func TestBlockTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	eth := mocks.NewMockEthClient(ctrl)
	client := NewClient(eth, testContracts(t))

	eth.EXPECT().
		HeaderByNumber(gomock.Any(), big.NewInt(5)).
		Return(&types.Header{Number: big.NewInt(5), Time: 1_700_000_000}, nil)

	ts, err := client.BlockTimestamp(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), ts.Unix())
}

func TestGeohash5ToString(t *testing.T) {
	// "sezu0" packed five bits per symbol
	var n int64
	for _, ch := range "sezu0" {
		for i, a := range "0123456789bcdefghjkmnpqrstuvwxyz" {
			if a == ch {
				n = n<<5 | int64(i)
			}
		}
	}
	// a leading "0" symbol is not representable, so pick a hash without one
	assert.Equal(t, "sezu0", geohash5ToString(big.NewInt(n)))
	assert.Equal(t, "", geohash5ToString(big.NewInt(0)))
	assert.Equal(t, "", geohash5ToString(new(big.Int).Lsh(big.NewInt(1), 60)))
}

func TestHumanAddressField(t *testing.T) {
	assert.Equal(t, "3", humanAddressField("country=RU|floor=3|street=Main", "floor"))
	assert.Equal(t, "2", humanAddressField("floor = 2\nflat=5", "floor"))
	assert.Equal(t, "", humanAddressField("country=RU", "floor"))
}
