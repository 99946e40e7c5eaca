// Package web3 gives the service read access to the Celo chain: blocks,
// transactions and balances from a live EVM node when one is reachable, and
// clearly labelled mock data when none is.
package web3
