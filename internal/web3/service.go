package web3

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/pkg/logger"
)

const (
	mockBlockNumber = 20000000
	mockBlockHash   = "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	mockMiner       = "0xabcdef1234567890abcdef1234567890abcdef12"
	mockSender      = "0x1234567890abcdef1234567890abcdef12345678"
	oneCELOWei      = "1000000000000000000"
)

// Service 是业务层访问链上数据的唯一入口。
// 没有可用节点时所有读取都返回模拟数据，并以 SourceMock 标记。
type Service struct {
	reader  Reader
	network string
	now     func() time.Time
	log     *slog.Logger
}

// ServiceOption 定义 Service 的可选配置。
type ServiceOption func(*Service)

// WithServiceClock 替换时间来源。
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService 包装一个节点读取器。reader 为 nil 时进入模拟模式。
func NewService(reader Reader, network string, opts ...ServiceOption) *Service {
	if reader == nil || strings.TrimSpace(network) == "" {
		network = NetworkMock
	}
	s := &Service{reader: reader, network: network, now: time.Now, log: logger.Named("web3")}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connected 报告是否持有真实节点连接。
func (s *Service) Connected() bool { return s.reader != nil }

// Network 返回当前网络名称。
func (s *Service) Network() string { return s.network }

// Close 释放节点连接。
func (s *Service) Close() {
	if s.reader != nil {
		s.reader.Close()
	}
}

// LatestBlock 返回最新区块。已连接时节点错误原样返回，由调用方决定是否降级。
func (s *Service) LatestBlock(ctx context.Context) (Block, error) {
	if s.reader == nil {
		return s.mockBlock(mockBlockNumber), nil
	}
	return s.reader.LatestBlock(ctx)
}

// BlockByNumber 返回指定高度的区块。
func (s *Service) BlockByNumber(ctx context.Context, number uint64) (Block, error) {
	if s.reader == nil {
		return s.mockBlock(number), nil
	}
	blocks, err := s.reader.Blocks(ctx, []uint64{number})
	if err != nil {
		return Block{}, err
	}
	if len(blocks) == 0 {
		return Block{}, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("区块 %d 不存在", number))
	}
	return blocks[0], nil
}

// Transaction 查询单笔交易。格式错误的哈希总是被拒绝；
// 交易不存在返回 NOT_FOUND；节点故障时降级为模拟数据。
func (s *Service) Transaction(ctx context.Context, hash string) (Transaction, Source, error) {
	parsed, err := ParseHash(hash)
	if err != nil {
		return Transaction{}, "", err
	}
	if s.reader == nil {
		return mockTransaction(parsed.Hex()), SourceMock, nil
	}
	tx, err := s.reader.Transaction(ctx, parsed)
	switch {
	case err == nil:
		return tx, SourceLive, nil
	case xerrors.IsCode(err, xerrors.CodeNotFound):
		return Transaction{}, "", err
	default:
		s.log.Warn("查询交易失败，返回模拟数据", "hash", parsed.Hex(), "error", err)
		return mockTransaction(parsed.Hex()), SourceMock, nil
	}
}

// Balance 查询地址余额，规则与 Transaction 相同。
func (s *Service) Balance(ctx context.Context, address string) (Balance, Source, error) {
	if !common.IsHexAddress(strings.TrimSpace(address)) {
		return Balance{}, "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("无效的地址: %q", address))
	}
	addr := common.HexToAddress(strings.TrimSpace(address))
	if s.reader == nil {
		return newBalance(addr, mustBig(oneCELOWei)), SourceMock, nil
	}
	wei, err := s.reader.BalanceAt(ctx, addr)
	if err != nil {
		s.log.Warn("查询余额失败，返回模拟数据", "address", addr.Hex(), "error", err)
		return newBalance(addr, mustBig(oneCELOWei)), SourceMock, nil
	}
	return newBalance(addr, wei), SourceLive, nil
}

// Summary 生成注入到推理提示词中的链上上下文。最新区块不可用时只保留网络信息。
func (s *Service) Summary(ctx context.Context) string {
	var b strings.Builder
	if block, err := s.LatestBlock(ctx); err == nil {
		fmt.Fprintf(&b, "Latest Celo Block: #%d\nTimestamp: %d\nTransactions: %d\nGas Used: %s\n",
			block.Number, block.Timestamp, block.TransactionCount, block.GasUsed)
	} else {
		s.log.Warn("读取最新区块失败", "error", err)
	}
	fmt.Fprintf(&b, "Network: %s\n", s.network)
	b.WriteString("Blockchain: Celo (EVM-compatible L2)\n")
	return b.String()
}

// ParseHash 校验 0x 前缀的 32 字节十六进制哈希。
func ParseHash(raw string) (common.Hash, error) {
	decoded, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil || len(decoded) != common.HashLength {
		return common.Hash{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("无效的交易哈希: %q", raw))
	}
	return common.BytesToHash(decoded), nil
}

func (s *Service) mockBlock(number uint64) Block {
	return Block{
		Number:           number,
		Hash:             mockBlockHash,
		Timestamp:        uint64(s.now().Unix()),
		TransactionCount: 42,
		GasUsed:          "8500000",
		Miner:            mockMiner,
	}
}

func mockTransaction(hash string) Transaction {
	to := mockMiner
	gasUsed := "21000"
	status := uint64(1)
	return Transaction{
		Hash:        hash,
		From:        mockSender,
		To:          &to,
		Value:       oneCELOWei,
		GasPrice:    "20000000000",
		GasUsed:     &gasUsed,
		BlockNumber: mockBlockNumber,
		Status:      &status,
	}
}

func newBalance(addr common.Address, wei *big.Int) Balance {
	if wei == nil {
		wei = new(big.Int)
	}
	return Balance{
		Address: addr.Hex(),
		Wei:     wei.String(),
		CELO:    decimal.NewFromBigInt(wei, -18).String(),
	}
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid integer literal " + s)
	}
	return n
}
