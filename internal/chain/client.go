package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"marketlens/internal/model"
)

// Client wraps go-ethereum RPC and provides helper methods. One instance is
// built from configuration at process start and injected into every
// component; calls are stateless and safe for concurrent use.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[string]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[string]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestampByNumber returns the timestamp of the block at the given
// height.
func (c *Client) BlockTimestampByNumber(ctx context.Context, number uint64) (uint64, error) {
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

// BlockTimestamp returns the timestamp of the block with the given hash,
// using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, blockHash string) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[blockHash]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByHash(ctx, common.HexToHash(blockHash))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[blockHash] = ts
	c.mu.Unlock()

	return ts, nil
}

// BalanceAt returns the native-token balance of an address at the latest
// block.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address: %s", address)
	}
	return c.ethClient.BalanceAt(ctx, common.HexToAddress(address), nil)
}

type rpcLog struct {
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	BlockHash   string         `json:"blockHash"`
	TxHash      string         `json:"transactionHash"`
	TxIndex     hexutil.Uint64 `json:"transactionIndex"`
	LogIndex    hexutil.Uint64 `json:"logIndex"`
	Address     string         `json:"address"`
	Topics      []string       `json:"topics"`
	Data        string         `json:"data"`
	Removed     bool           `json:"removed"`
}

type logFilter struct {
	FromBlock string     `json:"fromBlock,omitempty"`
	ToBlock   string     `json:"toBlock,omitempty"`
	Address   string     `json:"address,omitempty"`
	Topics    [][]string `json:"topics,omitempty"`
}

// Logs runs a log search. Block range ends are passed through verbatim, so
// the "0x0"/"latest" sentinels work without translation.
func (c *Client) Logs(ctx context.Context, query model.LogQuery) ([]model.RawLog, error) {
	filter := logFilter{
		FromBlock: query.FromBlock,
		ToBlock:   query.ToBlock,
		Address:   query.Address,
		Topics:    query.Topics,
	}

	var raw []rpcLog
	if err := c.rpcClient.CallContext(ctx, &raw, "eth_getLogs", filter); err != nil {
		return nil, fmt.Errorf("eth_getLogs: %w", err)
	}

	logs := make([]model.RawLog, 0, len(raw))
	for _, l := range raw {
		logs = append(logs, model.RawLog{
			BlockNumber: uint64(l.BlockNumber),
			BlockHash:   l.BlockHash,
			TxHash:      l.TxHash,
			TxIndex:     uint64(l.TxIndex),
			LogIndex:    uint64(l.LogIndex),
			Address:     l.Address,
			Topics:      l.Topics,
			Data:        l.Data,
			Removed:     l.Removed,
		})
	}
	return logs, nil
}

type rpcTransaction struct {
	Hash        string          `json:"hash"`
	BlockHash   string          `json:"blockHash"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
	Value       *hexutil.Big    `json:"value"`
}

// Transaction returns the subset of a transaction the pipeline reads.
func (c *Client) Transaction(ctx context.Context, hash string) (model.Transaction, error) {
	var raw *rpcTransaction
	if err := c.rpcClient.CallContext(ctx, &raw, "eth_getTransactionByHash", common.HexToHash(hash)); err != nil {
		return model.Transaction{}, fmt.Errorf("eth_getTransactionByHash: %w", err)
	}
	if raw == nil {
		return model.Transaction{}, fmt.Errorf("transaction not found: %s", hash)
	}

	tx := model.Transaction{
		Hash:      raw.Hash,
		BlockHash: raw.BlockHash,
		Value:     new(big.Int),
	}
	if raw.BlockNumber != nil {
		tx.BlockNumber = uint64(*raw.BlockNumber)
	}
	if raw.Value != nil {
		tx.Value = raw.Value.ToInt()
	}
	return tx, nil
}

// AssetTransfers runs an asset-transfer search through the indexing
// provider's alchemy_getAssetTransfers method.
func (c *Client) AssetTransfers(ctx context.Context, req model.AssetTransfersRequest) (model.AssetTransfersResponse, error) {
	var resp model.AssetTransfersResponse
	if err := c.rpcClient.CallContext(ctx, &resp, "alchemy_getAssetTransfers", req); err != nil {
		return model.AssetTransfersResponse{}, fmt.Errorf("alchemy_getAssetTransfers: %w", err)
	}
	return resp, nil
}
