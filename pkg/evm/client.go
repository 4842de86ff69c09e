// Package evm talks to the per-chain bridge and pool factory contracts.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/config"
)

// Client represents a single chain's RPC connection
type Client struct {
	cfg        *config.ChainConfig
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger

	bridgeAddress  common.Address
	bridge         *bind.BoundContract
	factoryAddress common.Address
	factory        *bind.BoundContract
}

// NewClient connects to a chain RPC and binds its contracts
func NewClient(cfg *config.ChainConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", cfg.Name, err)
	}

	c := &Client{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("chain", cfg.Name)),
	}

	if cfg.SignerKey != "" {
		privateKey, err := crypto.HexToECDSA(cfg.SignerKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load signer key for %s: %w", cfg.Name, err)
		}
		c.privateKey = privateKey
		c.address = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	if cfg.BridgeContract != "" {
		c.bridgeAddress = common.HexToAddress(cfg.BridgeContract)
		c.bridge = bind.NewBoundContract(c.bridgeAddress, bridgeABI, client, client, client)
	}
	if cfg.PoolFactory != "" {
		c.factoryAddress = common.HexToAddress(cfg.PoolFactory)
		c.factory = bind.NewBoundContract(c.factoryAddress, poolFactoryABI, client, client, client)
	}

	c.logger.Info("Connected to chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("bridge_contract", cfg.BridgeContract),
		zap.String("signer_address", c.address.Hex()))

	return c, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Name returns the configured chain name
func (c *Client) Name() string {
	return c.cfg.Name
}

// CanBridge reports whether this chain can submit bridge transactions
func (c *Client) CanBridge() bool {
	return c.bridge != nil && c.privateKey != nil
}

// CanGraduate reports whether this chain can create DEX pools
func (c *Client) CanGraduate() bool {
	return c.factory != nil && c.privateKey != nil
}

// GetTransactor returns a transaction signer
func (c *Client) GetTransactor(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("no signer key configured for chain %s", c.cfg.Name)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, big.NewInt(c.cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	auth.Nonce = big.NewInt(int64(nonce))
	auth.GasLimit = c.cfg.GasLimit
	auth.Context = ctx

	// Cap gas price if configured
	if c.cfg.MaxGasPrice != "" {
		maxGasPrice := new(big.Int)
		maxGasPrice.SetString(c.cfg.MaxGasPrice, 10)

		gasPrice, err := c.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}

		if gasPrice.Cmp(maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", maxGasPrice.String()))
			auth.GasPrice = maxGasPrice
		} else {
			auth.GasPrice = gasPrice
		}
	}

	return auth, nil
}

// GetLatestBlockNumber gets the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(callCtx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// ReserveBalance reads the native balance held by an address
func (c *Client) ReserveBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	balance, err := c.client.BalanceAt(callCtx, common.HexToAddress(account), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance on %s: %w", c.cfg.Name, err)
	}
	return FromWei(balance), nil
}

// RequestLiquidity submits a liquidity request on this chain's bridge,
// naming the counterparty chain the reserve should come from, and returns
// the request id emitted by the contract together with the tx hash. If the
// LiquidityRequested log cannot be found in the receipt, the tx hash
// doubles as the request id.
func (c *Client) RequestLiquidity(ctx context.Context, tokenID, counterparty string, amount decimal.Decimal) (string, string, error) {
	if c.bridge == nil {
		return "", "", fmt.Errorf("no bridge contract configured for chain %s", c.cfg.Name)
	}

	auth, err := c.GetTransactor(ctx)
	if err != nil {
		return "", "", err
	}

	tx, err := c.bridge.Transact(auth, "requestLiquidity", tokenID, counterparty, ToWei(amount))
	if err != nil {
		return "", "", fmt.Errorf("failed to submit liquidity request: %w", err)
	}

	c.logger.Info("Liquidity request submitted",
		zap.String("token_id", tokenID),
		zap.String("counterparty", counterparty),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", tx.Hash().Hex()))

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return "", "", err
	}

	requestID := tx.Hash().Hex()
	requestedID := bridgeABI.Events["LiquidityRequested"].ID
	for _, log := range receipt.Logs {
		if log.Address == c.bridgeAddress && len(log.Topics) > 1 && log.Topics[0] == requestedID {
			requestID = log.Topics[1].Hex()
			break
		}
	}

	return requestID, tx.Hash().Hex(), nil
}

// FulfillRequest releases reserve on this chain against a request raised
// elsewhere
func (c *Client) FulfillRequest(ctx context.Context, requestID string, amount decimal.Decimal) (string, error) {
	if c.bridge == nil {
		return "", fmt.Errorf("no bridge contract configured for chain %s", c.cfg.Name)
	}

	auth, err := c.GetTransactor(ctx)
	if err != nil {
		return "", err
	}

	tx, err := c.bridge.Transact(auth, "fulfillRequest", common.HexToHash(requestID), ToWei(amount))
	if err != nil {
		return "", fmt.Errorf("failed to submit fulfillment: %w", err)
	}

	c.logger.Info("Fulfillment transaction submitted",
		zap.String("request_id", requestID),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", tx.Hash().Hex()))

	if _, err := c.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// RequestFulfilled checks whether a LiquidityFulfilled log for the request
// id has been emitted by this chain's bridge. On a match it also returns the
// hash of the transaction that emitted the log.
func (c *Client) RequestFulfilled(ctx context.Context, requestID string) (bool, string, error) {
	if c.bridge == nil {
		return false, "", fmt.Errorf("no bridge contract configured for chain %s", c.cfg.Name)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	logs, err := c.client.FilterLogs(callCtx, ethereum.FilterQuery{
		Addresses: []common.Address{c.bridgeAddress},
		Topics: [][]common.Hash{
			{bridgeABI.Events["LiquidityFulfilled"].ID},
			{common.HexToHash(requestID)},
		},
	})
	if err != nil {
		return false, "", fmt.Errorf("failed to filter fulfillment logs: %w", err)
	}
	if len(logs) == 0 {
		return false, "", nil
	}
	return true, logs[0].TxHash.Hex(), nil
}

// CreatePool calls the pool factory with both legs of the pool seed and
// returns the created pool address and the tx hash
func (c *Client) CreatePool(ctx context.Context, tokenAddress string, reserveAmount, tokenAmount decimal.Decimal) (string, string, error) {
	if c.factory == nil {
		return "", "", fmt.Errorf("no pool factory configured for chain %s", c.cfg.Name)
	}

	auth, err := c.GetTransactor(ctx)
	if err != nil {
		return "", "", err
	}

	tx, err := c.factory.Transact(auth, "createPool", common.HexToAddress(tokenAddress), ToWei(reserveAmount), ToWei(tokenAmount))
	if err != nil {
		return "", "", fmt.Errorf("failed to submit pool creation: %w", err)
	}

	c.logger.Info("Pool creation submitted",
		zap.String("token_address", tokenAddress),
		zap.String("reserve_amount", reserveAmount.String()),
		zap.String("token_amount", tokenAmount.String()),
		zap.String("tx_hash", tx.Hash().Hex()))

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return "", "", err
	}

	createdID := poolFactoryABI.Events["PoolCreated"].ID
	for _, log := range receipt.Logs {
		if log.Address != c.factoryAddress || len(log.Topics) == 0 || log.Topics[0] != createdID {
			continue
		}
		vals, err := poolFactoryABI.Unpack("PoolCreated", log.Data)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode PoolCreated log: %w", err)
		}
		pool, ok := vals[0].(common.Address)
		if !ok {
			return "", "", fmt.Errorf("unexpected PoolCreated payload")
		}
		return pool.Hex(), tx.Hash().Hex(), nil
	}

	return "", "", fmt.Errorf("no PoolCreated log in receipt %s", tx.Hash().Hex())
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for receipt of %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

// ToWei converts a decimal token amount to its 18-decimal integer form
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(18).BigInt()
}

// FromWei converts an 18-decimal integer amount back to a decimal
func FromWei(amount *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -18)
}
