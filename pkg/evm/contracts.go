package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Bridge contract surface used by the engine. requestLiquidity is called on
// the chain that needs reserve, naming the counterparty chain that sends it;
// fulfillRequest is called on that counterparty.
const bridgeABIJSON = `[
	{
		"type": "function",
		"name": "requestLiquidity",
		"inputs": [
			{"name": "tokenId", "type": "string"},
			{"name": "counterpartyChain", "type": "string"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "fulfillRequest",
		"inputs": [
			{"name": "requestId", "type": "bytes32"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"type": "event",
		"name": "LiquidityRequested",
		"inputs": [
			{"name": "requestId", "type": "bytes32", "indexed": true},
			{"name": "tokenId", "type": "string", "indexed": false},
			{"name": "counterpartyChain", "type": "string", "indexed": false},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "LiquidityFulfilled",
		"inputs": [
			{"name": "requestId", "type": "bytes32", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	}
]`

// Pool factory surface used for graduation.
const poolFactoryABIJSON = `[
	{
		"type": "function",
		"name": "createPool",
		"inputs": [
			{"name": "token", "type": "address"},
			{"name": "reserveAmount", "type": "uint256"},
			{"name": "tokenAmount", "type": "uint256"}
		],
		"outputs": [
			{"name": "pool", "type": "address"}
		]
	},
	{
		"type": "event",
		"name": "PoolCreated",
		"inputs": [
			{"name": "token", "type": "address", "indexed": true},
			{"name": "pool", "type": "address", "indexed": false}
		]
	}
]`

var (
	bridgeABI      = mustParseABI(bridgeABIJSON)
	poolFactoryABI = mustParseABI(poolFactoryABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
