package web3

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 没有链定义文件时沿用的网络名称。
const (
	NetworkPrimary  = "mainnet-alchemy"
	NetworkFallback = "mainnet-forno"
)

// ChainDefinitions models the structure of configs/chains.yaml.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition describes a single chain endpoint definition.
type ChainDefinition struct {
	Type        string `yaml:"type"`
	RPCURL      string `yaml:"rpc_url"`
	Description string `yaml:"description"`
}

// Endpoint 是一个候选 RPC 地址及其网络名称。
type Endpoint struct {
	Network string
	RPCURL  string
}

// LoadChainDefinitions parses the YAML file containing chain metadata.
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return ChainDefinitions{Chains: map[string]ChainDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}

	var defs ChainDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}
	for name, chain := range defs.Chains {
		if t := strings.ToLower(strings.TrimSpace(chain.Type)); t != "" && t != "evm" {
			return ChainDefinitions{}, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
		}
	}
	return defs, nil
}

// Endpoints 按尝试顺序列出候选节点：显式配置的 RPC、默认链定义、备用节点。
// 重复的地址只保留第一次出现。
func (d ChainDefinitions) Endpoints(rpcURL, defaultChain, fallbackURL string) ([]Endpoint, error) {
	var out []Endpoint
	seen := map[string]bool{}
	add := func(network, url string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, Endpoint{Network: network, RPCURL: url})
	}

	add(NetworkPrimary, rpcURL)
	if name := strings.TrimSpace(defaultChain); name != "" {
		chain, ok := d.Chains[name]
		if !ok {
			return nil, fmt.Errorf("默认链 %s 未在配置中找到", name)
		}
		add(name, chain.RPCURL)
	}
	add(NetworkFallback, fallbackURL)
	return out, nil
}
