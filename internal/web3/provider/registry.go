package provider

import (
	"context"
	"time"

	"Sentinel-X/internal/config"
	"Sentinel-X/internal/web3"
	"Sentinel-X/internal/web3/ethereum"
	"Sentinel-X/pkg/logger"
)

const defaultDialTimeout = 10 * time.Second

// dialFunc 用于在测试中替换真实拨号。
type dialFunc func(ctx context.Context, cfg ethereum.Config) (web3.Reader, error)

func dialEthereum(ctx context.Context, cfg ethereum.Config) (web3.Reader, error) {
	return ethereum.Dial(ctx, cfg)
}

// Connect 按顺序尝试候选节点，返回第一个可用节点对应的服务。
// 全部不可用或配置为离线时返回模拟模式的服务；只有链定义文件本身有误才返回错误。
func Connect(ctx context.Context, cfg config.Web3Config) (*web3.Service, error) {
	return connect(ctx, cfg, dialEthereum)
}

func connect(ctx context.Context, cfg config.Web3Config, dial dialFunc) (*web3.Service, error) {
	log := logger.Named("web3")
	if cfg.Offline {
		log.Info("链访问处于离线模式，使用模拟数据")
		return web3.NewService(nil, ""), nil
	}

	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}
	endpoints, err := defs.Endpoints(cfg.RPCURL, cfg.DefaultChain, cfg.FallbackRPCURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.DialTimeout.Std()
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	for _, ep := range endpoints {
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		reader, err := dial(dialCtx, ethereum.Config{Network: ep.Network, RPCURL: ep.RPCURL})
		cancel()
		if err != nil {
			log.Warn("节点不可用，尝试下一个", "network", ep.Network, "error", err)
			continue
		}
		log.Info("已连接链节点", "network", ep.Network)
		return web3.NewService(reader, ep.Network), nil
	}

	log.Warn("没有可用的链节点，使用模拟数据")
	return web3.NewService(nil, ""), nil
}
