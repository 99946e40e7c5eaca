package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/web3"
)

// Config describes how to reach an EVM compatible node.
type Config struct {
	Network string
	RPCURL  string
}

// caller is the subset of *rpc.Client the reader depends on.
type caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	BatchCallContext(ctx context.Context, b []gethrpc.BatchElem) error
	Close()
}

// Client implements web3.Reader over raw JSON-RPC. Blocks are requested
// without transaction bodies and transactions are decoded field by field, so
// chain specific transaction types never break decoding.
type Client struct {
	network string
	chainID *big.Int
	rpc     caller
	mu      sync.Mutex
}

var _ web3.Reader = (*Client)(nil)

// Dial connects to the node and probes eth_chainId so an unreachable endpoint
// is reported at startup instead of on the first request.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 RPC 地址")
	}
	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接节点失败: %w", err)
	}
	client := newClient(rpcClient, cfg.Network)
	if _, err := client.ChainID(ctx); err != nil {
		rpcClient.Close()
		return nil, err
	}
	return client, nil
}

func newClient(rpc caller, network string) *Client {
	return &Client{network: network, rpc: rpc}
}

// Network returns the configured network label.
func (c *Client) Network() string { return c.network }

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return new(big.Int).Set(c.chainID), nil
	}
	var id hexutil.Big
	if err := c.rpc.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, upstream(err, "获取链 ID 失败")
	}
	c.chainID = (*big.Int)(&id)
	return new(big.Int).Set(c.chainID), nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
	}
}

type rpcBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	GasUsed      hexutil.Uint64 `json:"gasUsed"`
	Miner        common.Address `json:"miner"`
	Transactions []common.Hash  `json:"transactions"`
}

func (b *rpcBlock) toBlock() web3.Block {
	hashes := make([]string, 0, len(b.Transactions))
	for _, h := range b.Transactions {
		hashes = append(hashes, h.Hex())
	}
	return web3.Block{
		Number:           uint64(b.Number),
		Hash:             b.Hash.Hex(),
		Timestamp:        uint64(b.Timestamp),
		TransactionCount: len(b.Transactions),
		GasUsed:          fmt.Sprintf("%d", uint64(b.GasUsed)),
		Miner:            b.Miner.Hex(),
		TxHashes:         hashes,
	}
}

type rpcTransaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
}

func (t *rpcTransaction) toTransaction() web3.Transaction {
	tx := web3.Transaction{
		Hash:     t.Hash.Hex(),
		From:     t.From.Hex(),
		Value:    bigString(t.Value),
		GasPrice: bigString(t.GasPrice),
	}
	if t.To != nil {
		to := t.To.Hex()
		tx.To = &to
	}
	if t.BlockNumber != nil {
		tx.BlockNumber = (*big.Int)(t.BlockNumber).Uint64()
	}
	return tx
}

type rpcReceipt struct {
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	Status  *hexutil.Uint64 `json:"status"`
}

// LatestBlock implements web3.Reader.
func (c *Client) LatestBlock(ctx context.Context) (web3.Block, error) {
	var block *rpcBlock
	if err := c.rpc.CallContext(ctx, &block, "eth_getBlockByNumber", "latest", false); err != nil {
		return web3.Block{}, upstream(err, "获取最新区块失败")
	}
	if block == nil {
		return web3.Block{}, xerrors.New(xerrors.CodeNotFound, "最新区块不存在")
	}
	return block.toBlock(), nil
}

// Blocks implements web3.Reader with a single batch request.
func (c *Client) Blocks(ctx context.Context, numbers []uint64) ([]web3.Block, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	results := make([]*rpcBlock, len(numbers))
	elems := make([]gethrpc.BatchElem, len(numbers))
	for i, n := range numbers {
		elems[i] = gethrpc.BatchElem{
			Method: "eth_getBlockByNumber",
			Args:   []any{hexutil.EncodeUint64(n), false},
			Result: &results[i],
		}
	}
	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return nil, upstream(err, "批量获取区块失败")
	}
	blocks := make([]web3.Block, 0, len(numbers))
	for i := range elems {
		if elems[i].Error != nil || results[i] == nil {
			continue
		}
		blocks = append(blocks, results[i].toBlock())
	}
	return blocks, nil
}

// Transaction implements web3.Reader. The receipt is optional: a pending
// transaction is returned without gas used and status.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (web3.Transaction, error) {
	var (
		tx      *rpcTransaction
		receipt *rpcReceipt
	)
	elems := []gethrpc.BatchElem{
		{Method: "eth_getTransactionByHash", Args: []any{hash}, Result: &tx},
		{Method: "eth_getTransactionReceipt", Args: []any{hash}, Result: &receipt},
	}
	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return web3.Transaction{}, upstream(err, "获取交易失败")
	}
	if err := elems[0].Error; err != nil && !errors.Is(err, gethrpc.ErrNoResult) {
		return web3.Transaction{}, upstream(err, "获取交易失败")
	}
	if tx == nil {
		return web3.Transaction{}, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("交易 %s 不存在", hash.Hex()))
	}

	out := tx.toTransaction()
	if elems[1].Error == nil && receipt != nil {
		gasUsed := fmt.Sprintf("%d", uint64(receipt.GasUsed))
		out.GasUsed = &gasUsed
		if receipt.Status != nil {
			status := uint64(*receipt.Status)
			out.Status = &status
		}
	}
	return out, nil
}

// Transactions implements web3.Reader.
func (c *Client) Transactions(ctx context.Context, hashes []common.Hash) ([]web3.Transaction, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	results := make([]*rpcTransaction, len(hashes))
	elems := make([]gethrpc.BatchElem, len(hashes))
	for i, h := range hashes {
		elems[i] = gethrpc.BatchElem{Method: "eth_getTransactionByHash", Args: []any{h}, Result: &results[i]}
	}
	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return nil, upstream(err, "批量获取交易失败")
	}
	txs := make([]web3.Transaction, 0, len(hashes))
	for i := range elems {
		if elems[i].Error != nil || results[i] == nil {
			continue
		}
		txs = append(txs, results[i].toTransaction())
	}
	return txs, nil
}

// BalanceAt implements web3.Reader.
func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	var balance hexutil.Big
	if err := c.rpc.CallContext(ctx, &balance, "eth_getBalance", address, "latest"); err != nil {
		return nil, upstream(err, "查询余额失败")
	}
	return (*big.Int)(&balance), nil
}

func upstream(err error, message string) error {
	return xerrors.Wrap(xerrors.CodeUpstreamUnavailable, err, message)
}

func bigString(n *hexutil.Big) string {
	if n == nil {
		return "0"
	}
	return (*big.Int)(n).String()
}
