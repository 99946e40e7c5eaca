package web3

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	mockListBase         = 1000000
	maxTransactionScan   = 10
	mockBlockTotal       = 1000000
	mockTransactionTotal = 5000000
)

// BlockData 是区块列表接口对外的行格式。
type BlockData struct {
	BlockNumber      uint64 `json:"block_number"`
	BlockHash        string `json:"block_hash"`
	Timestamp        uint64 `json:"timestamp"`
	TransactionCount uint32 `json:"transaction_count"`
	GasUsed          uint64 `json:"gas_used"`
}

// TransactionData 是交易列表接口对外的行格式。
type TransactionData struct {
	TxHash      string  `json:"tx_hash"`
	FromAddress string  `json:"from_address"`
	ToAddress   *string `json:"to_address"`
	Value       string  `json:"value"`
	GasPrice    string  `json:"gas_price"`
	BlockNumber uint64  `json:"block_number"`
	Timestamp   uint64  `json:"timestamp"`
}

// BlockPage 是一次区块列表查询的结果。
type BlockPage struct {
	Blocks []BlockData
	Source Source
	// Total 仅在模拟数据中有意义。
	Total uint64
}

// TransactionPage 是一次交易列表查询的结果。
type TransactionPage struct {
	Transactions []TransactionData
	Source       Source
	Total        uint64
}

// ToBlockData 转换为列表行格式。
func (b Block) ToBlockData() BlockData {
	gas, _ := strconv.ParseUint(b.GasUsed, 10, 64)
	return BlockData{
		BlockNumber:      b.Number,
		BlockHash:        b.Hash,
		Timestamp:        b.Timestamp,
		TransactionCount: uint32(b.TransactionCount),
		GasUsed:          gas,
	}
}

// RecentBlocks 从最新区块开始向前返回 limit 个区块。
// 节点不可用时返回以 offset 为起点的模拟区块。
func (s *Service) RecentBlocks(ctx context.Context, limit int, offset uint64) BlockPage {
	if s.reader != nil {
		if page, ok := s.liveBlocks(ctx, limit); ok {
			return page
		}
	}

	now := uint64(s.now().Unix())
	blocks := make([]BlockData, 0, limit)
	for i := 0; i < limit; i++ {
		blocks = append(blocks, BlockData{
			BlockNumber:      mockListBase + offset + uint64(i),
			BlockHash:        fmt.Sprintf("0x%064x", i),
			Timestamp:        now - uint64(i)*5,
			TransactionCount: uint32(10 + i%50),
			GasUsed:          8000000 + uint64(i)*1000,
		})
	}
	return BlockPage{Blocks: blocks, Source: SourceMock, Total: mockBlockTotal}
}

func (s *Service) liveBlocks(ctx context.Context, limit int) (BlockPage, bool) {
	latest, err := s.reader.LatestBlock(ctx)
	if err != nil {
		s.log.Warn("读取最新区块失败，返回模拟数据", "error", err)
		return BlockPage{}, false
	}
	blocks := []BlockData{latest.ToBlockData()}
	var numbers []uint64
	for i := 1; i < limit && uint64(i) <= latest.Number; i++ {
		numbers = append(numbers, latest.Number-uint64(i))
	}
	if len(numbers) > 0 {
		older, err := s.reader.Blocks(ctx, numbers)
		if err != nil {
			s.log.Warn("批量读取区块失败", "error", err)
		}
		for _, b := range older {
			blocks = append(blocks, b.ToBlockData())
		}
	}
	return BlockPage{Blocks: blocks, Source: SourceLive}, true
}

// BlockDetail 返回单个区块的列表行格式，节点失败时降级为模拟数据。
func (s *Service) BlockDetail(ctx context.Context, number uint64) (BlockData, Source) {
	if s.reader != nil {
		block, err := s.BlockByNumber(ctx, number)
		if err == nil {
			return block.ToBlockData(), SourceLive
		}
		s.log.Warn("读取区块失败，返回模拟数据", "number", number, "error", err)
	}
	return BlockData{
		BlockNumber:      number,
		BlockHash:        fmt.Sprintf("0x%064x", number),
		Timestamp:        uint64(s.now().Unix()),
		TransactionCount: 25,
		GasUsed:          8500000,
	}, SourceMock
}

// RecentTransactions 收集最近若干区块中的交易，至多扫描 10 个区块。
func (s *Service) RecentTransactions(ctx context.Context, limit int) TransactionPage {
	if s.reader != nil {
		if txs := s.liveTransactions(ctx, limit); len(txs) > 0 {
			return TransactionPage{Transactions: txs, Source: SourceLive}
		}
	}

	now := uint64(s.now().Unix())
	txs := make([]TransactionData, 0, limit)
	for i := 0; i < limit; i++ {
		to := fmt.Sprintf("0x%040x", i+1)
		txs = append(txs, TransactionData{
			TxHash:      fmt.Sprintf("0x%064x", i),
			FromAddress: fmt.Sprintf("0x%040x", i),
			ToAddress:   &to,
			Value:       decimal.New(int64(i+1), 18).String(),
			GasPrice:    "20000000000",
			BlockNumber: mockListBase + uint64(i),
			Timestamp:   now - uint64(i)*5,
		})
	}
	return TransactionPage{Transactions: txs, Source: SourceMock, Total: mockTransactionTotal}
}

func (s *Service) liveTransactions(ctx context.Context, limit int) []TransactionData {
	latest, err := s.reader.LatestBlock(ctx)
	if err != nil {
		s.log.Warn("读取最新区块失败，返回模拟数据", "error", err)
		return nil
	}

	var numbers []uint64
	for i := 1; i < maxTransactionScan && uint64(i) <= latest.Number; i++ {
		numbers = append(numbers, latest.Number-uint64(i))
	}

	timestamps := map[common.Hash]uint64{}
	var hashes []common.Hash
	collect := func(b Block) {
		for _, h := range b.TxHashes {
			if len(hashes) >= limit {
				return
			}
			hash := common.HexToHash(h)
			timestamps[hash] = b.Timestamp
			hashes = append(hashes, hash)
		}
	}
	collect(latest)
	if len(hashes) < limit && len(numbers) > 0 {
		older, err := s.reader.Blocks(ctx, numbers)
		if err != nil {
			s.log.Warn("批量读取区块失败", "error", err)
		}
		for _, b := range older {
			collect(b)
		}
	}
	if len(hashes) == 0 {
		return nil
	}

	txs, err := s.reader.Transactions(ctx, hashes)
	if err != nil {
		s.log.Warn("批量读取交易失败", "error", err)
		return nil
	}
	out := make([]TransactionData, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionData{
			TxHash:      tx.Hash,
			FromAddress: tx.From,
			ToAddress:   tx.To,
			Value:       tx.Value,
			GasPrice:    tx.GasPrice,
			BlockNumber: tx.BlockNumber,
			Timestamp:   timestamps[common.HexToHash(tx.Hash)],
		})
	}
	return out
}
