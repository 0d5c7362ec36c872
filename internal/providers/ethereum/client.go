package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
)

const (
	// defaultStepSize is the widest block range asked in one eth_getLogs call
	defaultStepSize = uint64(1_000_000)

	// chunkTimeout bounds a single eth_getLogs call
	chunkTimeout = time.Minute
)

// Client is the go-ethereum implementation of the chain collaborators
type Client interface {
	chain.Client
	chain.Reader
}

type ethereumClient struct {
	client    adapter.EthClient
	contracts *Contracts
}

// NewClient creates a chain client over an ethereum connection
func NewClient(client adapter.EthClient, contracts *Contracts) Client {
	logger.Info("Ethereum client ready",
		zap.Strings("contracts", contracts.names()),
		zap.Int("eventTypes", len(contracts.EventTypes())))
	return &ethereumClient{client: client, contracts: contracts}
}

func (c *ethereumClient) query(ev boundEvent, from uint64, filter *chain.Filter) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: ev.addresses,
		Topics:    [][]common.Hash{{ev.event.ID}},
	}
	if filter != nil {
		if len(filter.Addresses) > 0 {
			q.Addresses = make([]common.Address, 0, len(filter.Addresses))
			for _, a := range filter.Addresses {
				q.Addresses = append(q.Addresses, common.HexToAddress(a))
			}
		}
		if filter.ToBlock > 0 {
			q.ToBlock = new(big.Int).SetUint64(filter.ToBlock)
		}
	}
	return q
}

// GetEventsFromBlock returns every event of t emitted at or after from, in ledger order
func (c *ethereumClient) GetEventsFromBlock(ctx context.Context, t domain.EventType, from uint64, filter *chain.Filter) ([]domain.Event, error) {
	ev, err := c.contracts.event(t)
	if err != nil {
		return nil, err
	}

	logs, err := c.filterLogsWithPagination(ctx, c.query(ev, from, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to filter %s logs: %w", t, err)
	}

	events := make([]domain.Event, 0, len(logs))
	for _, vLog := range logs {
		event, ok := c.decode(ctx, t, ev, vLog)
		if ok {
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Before(events[j])
	})

	logger.DebugCtx(ctx, "Fetched events",
		zap.String("eventType", string(t)),
		zap.Uint64("fromBlock", from),
		zap.Int("count", len(events)))

	return events, nil
}

// decode turns a log into an event. Logs that do not fit the ABI event (another contract
// emitting the same topic with different indexing) are skipped.
func (c *ethereumClient) decode(ctx context.Context, t domain.EventType, ev boundEvent, vLog types.Log) (domain.Event, bool) {
	if vLog.Removed {
		logger.WarnCtx(ctx, "Skipping log removed by reorg",
			zap.String("eventType", string(t)),
			zap.Uint64("blockNumber", vLog.BlockNumber),
			zap.String("txHash", vLog.TxHash.Hex()))
		return domain.Event{}, false
	}

	args, err := decodeLog(ev, vLog)
	if err != nil {
		logger.WarnCtx(ctx, "Skipping undecodable log",
			zap.String("eventType", string(t)),
			zap.String("contract", vLog.Address.Hex()),
			zap.Uint64("blockNumber", vLog.BlockNumber),
			zap.Error(err))
		return domain.Event{}, false
	}

	return domain.Event{
		Type:            t,
		ContractAddress: strings.ToLower(vLog.Address.Hex()),
		BlockNumber:     vLog.BlockNumber,
		TxHash:          vLog.TxHash.Hex(),
		LogIndex:        vLog.Index,
		Values:          args,
	}, true
}

func decodeLog(ev boundEvent, vLog types.Log) (map[string]any, error) {
	if len(vLog.Topics) == 0 || vLog.Topics[0] != ev.event.ID {
		return nil, fmt.Errorf("log is not a %s event", ev.event.Name)
	}

	raw := make(map[string]any)
	var indexed abi.Arguments
	for _, arg := range ev.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(vLog.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(vLog.Topics)-1)
	}
	if len(indexed) < len(ev.event.Inputs) {
		if err := ev.abi.UnpackIntoMap(raw, ev.event.Name, vLog.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack data: %w", err)
		}
	}
	if err := abi.ParseTopicsIntoMap(raw, indexed, vLog.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse topics: %w", err)
	}

	args := make(map[string]any, len(raw))
	for k, v := range raw {
		args[argName(k)] = normalizeValue(v)
	}
	return args, nil
}

// filterLogsWithPagination splits the query into ranges to stay under provider log limits
func (c *ethereumClient) filterLogsWithPagination(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	fromBlock := big.NewInt(0)
	if query.FromBlock != nil {
		fromBlock = query.FromBlock
	}

	toBlock := query.ToBlock
	if toBlock == nil {
		latest, err := c.GetCurrentBlock(ctx)
		if err != nil {
			return nil, err
		}
		toBlock = new(big.Int).SetUint64(latest)
	}

	if fromBlock.Cmp(toBlock) > 0 {
		return nil, nil
	}

	rangeQuery := query
	rangeQuery.FromBlock = new(big.Int).Set(fromBlock)
	rangeQuery.ToBlock = new(big.Int).Set(toBlock)

	return c.getLogsWithRetry(ctx, rangeQuery, defaultStepSize)
}

// getLogsWithRetry processes the whole range from query.FromBlock to query.ToBlock in chunks,
// halving the chunk whenever the provider refuses it for returning too many results
func (c *ethereumClient) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, stepSize uint64) ([]types.Log, error) {
	currentStepSize := stepSize

	var allLogs []types.Log
	currentFrom := new(big.Int).Set(query.FromBlock)

	for currentFrom.Cmp(query.ToBlock) <= 0 {
		currentTo := new(big.Int).Add(currentFrom, new(big.Int).SetUint64(currentStepSize-1))
		if currentTo.Cmp(query.ToBlock) > 0 {
			currentTo.Set(query.ToBlock)
		}

		queryCopy := query
		queryCopy.FromBlock = new(big.Int).Set(currentFrom)
		queryCopy.ToBlock = new(big.Int).Set(currentTo)

		chunkCtx, cancel := context.WithTimeout(ctx, chunkTimeout)
		logs, err := c.client.FilterLogs(chunkCtx, queryCopy)
		cancel()
		if err == nil {
			allLogs = append(allLogs, logs...)
			currentFrom.SetUint64(currentTo.Uint64() + 1)
			continue
		}

		if !isTooManyResultsError(err) {
			return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", currentFrom.Uint64(), currentTo.Uint64(), err)
		}
		if currentStepSize == 1 {
			return nil, fmt.Errorf("too many logs in block %d: %w", currentFrom.Uint64(), err)
		}

		currentStepSize = currentStepSize / 2

		logger.Warn("Too many results, reducing step size",
			zap.Uint64("oldStepSize", currentStepSize*2),
			zap.Uint64("newStepSize", currentStepSize),
			zap.Uint64("fromBlock", currentFrom.Uint64()),
			zap.Uint64("toBlock", currentTo.Uint64()))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum") ||
		strings.Contains(errStr, "block range is too wide")
}

// GetCurrentBlock returns the head block number
func (c *ethereumClient) GetCurrentBlock(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// Close closes the connection
func (c *ethereumClient) Close() {
	if c.client == nil {
		return
	}

	c.client.Close()
	logger.Info("Ethereum connection closed")
}
