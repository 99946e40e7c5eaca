package provider

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"Sentinel-X/internal/config"
	"Sentinel-X/internal/web3"
	"Sentinel-X/internal/web3/ethereum"
)

type nopReader struct{}

func (nopReader) LatestBlock(context.Context) (web3.Block, error) { return web3.Block{}, nil }
func (nopReader) Blocks(context.Context, []uint64) ([]web3.Block, error) {
	return nil, nil
}
func (nopReader) Transaction(context.Context, common.Hash) (web3.Transaction, error) {
	return web3.Transaction{}, nil
}
func (nopReader) Transactions(context.Context, []common.Hash) ([]web3.Transaction, error) {
	return nil, nil
}
func (nopReader) BalanceAt(context.Context, common.Address) (*big.Int, error) { return big.NewInt(0), nil }
func (nopReader) Close() {}

func TestConnectFallsBackToForno(t *testing.T) {
	var tried []string
	dial := func(_ context.Context, cfg ethereum.Config) (web3.Reader, error) {
		tried = append(tried, cfg.Network)
		if cfg.Network == web3.NetworkPrimary {
			return nil, errors.New("unauthorized")
		}
		return nopReader{}, nil
	}

	svc, err := connect(context.Background(), config.Web3Config{
		RPCURL:         "https://celo-mainnet.example/v2/key",
		FallbackRPCURL: "https://forno.celo.org",
	}, dial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.Connected() || svc.Network() != web3.NetworkFallback {
		t.Fatalf("expected forno connection, got network %s", svc.Network())
	}
	if len(tried) != 2 {
		t.Fatalf("expected two dial attempts, got %v", tried)
	}
}

func TestConnectUsesMockWhenNothingAnswers(t *testing.T) {
	dial := func(context.Context, ethereum.Config) (web3.Reader, error) {
		return nil, errors.New("no route to host")
	}
	svc, err := connect(context.Background(), config.Web3Config{FallbackRPCURL: "https://forno.celo.org"}, dial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Connected() || svc.Network() != web3.NetworkMock {
		t.Fatalf("expected mock service, got %s", svc.Network())
	}
}

func TestConnectOffline(t *testing.T) {
	dial := func(context.Context, ethereum.Config) (web3.Reader, error) {
		t.Fatalf("offline mode must not dial")
		return nil, nil
	}
	svc, err := connect(context.Background(), config.Web3Config{Offline: true, RPCURL: "http://x"}, dial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Connected() {
		t.Fatalf("expected offline service to use mock data")
	}
}

func TestConnectUsesChainDefinition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	content := "chains:\n  celo-alfajores:\n    type: evm\n    rpc_url: https://alfajores-forno.celo-testnet.org\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var urls []string
	dial := func(_ context.Context, cfg ethereum.Config) (web3.Reader, error) {
		urls = append(urls, cfg.RPCURL)
		return nopReader{}, nil
	}
	svc, err := connect(context.Background(), config.Web3Config{ChainConfig: path, DefaultChain: "celo-alfajores"}, dial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Network() != "celo-alfajores" || urls[0] != "https://alfajores-forno.celo-testnet.org" {
		t.Fatalf("unexpected selection %s %v", svc.Network(), urls)
	}
}

func TestConnectRejectsUnknownDefaultChain(t *testing.T) {
	dial := func(context.Context, ethereum.Config) (web3.Reader, error) { return nopReader{}, nil }
	if _, err := connect(context.Background(), config.Web3Config{DefaultChain: "missing"}, dial); err == nil {
		t.Fatalf("expected error for unknown default chain")
	}
}
