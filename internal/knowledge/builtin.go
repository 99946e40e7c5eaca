package knowledge

var builtin = []Snippet{
	{
		Title:    "Celo network",
		Content:  "Celo is an EVM-compatible Ethereum L2 with a native CELO token, fee abstraction and sub-cent transaction fees.",
		Keywords: []string{"celo", "network", "l2", "layer 2"},
	},
	{
		Title:    "Mento stablecoins",
		Content:  "cUSD, cEUR and cREAL are Mento stable assets on Celo; gas can be paid in them through fee currency adapters.",
		Keywords: []string{"cusd", "ceur", "creal", "stablecoin", "mento"},
	},
	{
		Title:    "Fee abstraction",
		Content:  "Celo transactions may set a feeCurrency field (CIP-64) so users pay gas in an allow-listed ERC-20 token.",
		Keywords: []string{"gas", "fee", "feecurrency"},
	},
	{
		Title:    "Reentrancy",
		Content:  "Apply checks-effects-interactions and reentrancy guards on functions that transfer value or call external contracts.",
		Keywords: []string{"reentrancy", "withdraw", "call{value"},
		Tasks:    []string{"SecurityAudit"},
	},
	{
		Title:    "Access control",
		Content:  "Privileged functions should be restricted with Ownable or role-based access control and emit events on change.",
		Keywords: []string{"onlyowner", "owner", "admin", "role"},
		Tasks:    []string{"ContractAnalysis"},
	},
	{
		Title:    "Price oracles",
		Content:  "SortedOracles reports Mento exchange rates on-chain; off-chain aggregators such as CoinGecko give market cap and volume.",
		Keywords: []string{"oracle", "price", "predict"},
		Tasks:    []string{"PricePredict"},
	},
}
