package web3

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Source 标记数据来自真实节点还是本地模拟。
type Source string

const (
	SourceLive Source = "celo-rpc"
	SourceMock Source = "mock"
)

// NetworkMock 是没有可用节点时报告的网络名称。
const NetworkMock = "mock"

// Block 是区块头的摘要。
type Block struct {
	Number           uint64   `json:"number"`
	Hash             string   `json:"hash"`
	Timestamp        uint64   `json:"timestamp"`
	TransactionCount int      `json:"transaction_count"`
	GasUsed          string   `json:"gas_used"`
	Miner            string   `json:"miner"`
	TxHashes         []string `json:"-"`
}

// Transaction 是单笔交易的摘要，收据字段在未上链时为空。
type Transaction struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Value       string  `json:"value"`
	GasPrice    string  `json:"gas_price"`
	GasUsed     *string `json:"gas_used"`
	BlockNumber uint64  `json:"block_number"`
	Status      *uint64 `json:"status"`
}

// Balance 同时给出 wei 与 CELO 两种单位。
type Balance struct {
	Address string `json:"address"`
	Wei     string `json:"wei"`
	CELO    string `json:"celo"`
}

// Reader 是对单个 EVM 节点的只读访问。
type Reader interface {
	LatestBlock(ctx context.Context) (Block, error)
	// Blocks 批量读取区块，不存在或读取失败的高度被跳过。
	Blocks(ctx context.Context, numbers []uint64) ([]Block, error)
	Transaction(ctx context.Context, hash common.Hash) (Transaction, error)
	// Transactions 批量读取交易主体，不含收据。
	Transactions(ctx context.Context, hashes []common.Hash) ([]Transaction, error)
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	Close()
}
