// Package market fetches USD quotes for Celo assets from CoinGecko.
package market
