// Package web3 holds the chain catalogue (supported networks, their
// keywords and native symbols) and the read-only client contract used to
// query balances and gas prices. Concrete EVM clients live in
// web3/ethereum and are grouped per chain id by web3/provider.
package web3
