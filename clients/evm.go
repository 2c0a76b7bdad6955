package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	distypes "github.com/storyatlas/disburse/types"
	"github.com/storyatlas/disburse/utils"
)

const nativeTransferGas = 21000

// fallbackGasPriceWei is the conservative last resort when the network
// reports no usable fee data at all. EVM sidechains frequently misreport or
// omit fee-market fields.
var fallbackGasPriceWei = big.NewInt(30_000_000_000) // 30 gwei

var _ LedgerClient = (*EVMClient)(nil)

// EVMClient submits native-asset transfers on an EVM-compatible chain from
// a custodial account and waits for receipt-based finality.
type EVMClient struct {
	chain   distypes.Chain
	rpcURL  string
	eth     *ethclient.Client
	chainID *big.Int
	signer  *ecdsa.PrivateKey
	policy  distypes.ChainPolicy

	// submitMu serializes nonce acquisition and broadcast for the shared
	// custodial account; concurrent claims would otherwise collide on the
	// account nonce.
	submitMu sync.Mutex
}

// NewEVMClient dials the RPC endpoint and prepares the custodial signer.
// The chain ID is taken from configuration, never from the node, so a
// transaction intended for another network cannot be signed here.
func NewEVMClient(cfg distypes.ClientConfig) (*EVMClient, error) {
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, distypes.NewError(distypes.ErrConfiguration, "evm chain id must be configured explicitly")
	}
	if cfg.SignerSecret == "" {
		return nil, distypes.NewError(distypes.ErrConfiguration, "evm signer secret is required")
	}

	signer, err := crypto.HexToECDSA(cfg.SignerSecret)
	if err != nil {
		return nil, distypes.NewError(distypes.ErrConfiguration, "invalid evm signer key: %v", err)
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum rpc dial: %w", err)
	}

	return &EVMClient{
		chain:   distypes.ChainEVM,
		rpcURL:  cfg.RPCURL,
		eth:     eth,
		chainID: new(big.Int).Set(cfg.ChainID),
		signer:  signer,
		policy:  cfg.Policy,
	}, nil
}

func (c *EVMClient) Chain() distypes.Chain        { return c.chain }
func (c *EVMClient) Policy() distypes.ChainPolicy { return c.policy }
func (c *EVMClient) Close()                       { c.eth.Close() }

// SignerAddress is the custodial account the client disburses from.
func (c *EVMClient) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(c.signer.PublicKey)
}

// ValidateRecipient checks the EVM address grammar without touching the
// network.
func (c *EVMClient) ValidateRecipient(address string) error {
	return utils.ValidateAddressForChain(address, c.chain.String())
}

// Balance reports the custodial account's spendable wei.
func (c *EVMClient) Balance(ctx context.Context) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, c.SignerAddress(), nil)
	if err != nil {
		return nil, fmt.Errorf("evm balance query: %w", err)
	}
	return balance, nil
}

// SubmitPayment sends a native transfer and blocks until a receipt is
// obtained. Success is decided strictly by the receipt status flag: a mined
// but reverted transaction is a failure that still carries its hash, since
// the caller needs the reference to reconcile before any resubmission.
func (c *EVMClient) SubmitPayment(ctx context.Context, to string, amount *big.Int, memo string) (*distypes.SettlementResult, error) {
	if c.eth == nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: ErrBackendUnavailable}, nil
	}

	toAddr := common.HexToAddress(to)
	var data []byte
	if memo != "" {
		data = []byte(memo)
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	nonce, err := c.eth.PendingNonceAt(ctx, c.SignerAddress())
	if err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", ErrNonceFetchFailed, err)}, nil
	}

	gasLimit := uint64(nativeTransferGas)
	if len(data) > 0 {
		estimated, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  c.SignerAddress(),
			To:    &toAddr,
			Value: amount,
			Data:  data,
		})
		if err == nil {
			gasLimit = estimated
		} else {
			gasLimit = nativeTransferGas + 68*uint64(len(data))
		}
	}

	tx := c.buildTransfer(ctx, nonce, toAddr, amount, gasLimit, data)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.signer)
	if err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", ErrSignFailed, err)}, nil
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", ErrSubmitFailed, err)}, nil
	}

	txHash := signed.Hash().Hex()

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		// The transfer may still confirm on-chain; surface the hash so the
		// caller reconciles instead of resubmitting blindly.
		return &distypes.SettlementResult{
			Ok:            false,
			TxReference:   txHash,
			FailureReason: fmt.Sprintf("%s: %v", ErrFinalityTimeout, err),
		}, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return &distypes.SettlementResult{
			Ok:            false,
			TxReference:   txHash,
			FailureReason: fmt.Sprintf("Tx failed: %s", txHash),
		}, nil
	}

	return &distypes.SettlementResult{
		Ok:           true,
		TxReference:  txHash,
		SettledUnits: new(big.Int).Set(amount),
	}, nil
}

// buildTransfer picks the fee model. Dynamic fees are used when the network
// carries a base fee and reports a tip; otherwise a legacy gas price with a
// 3x bump guards against being under-priced and stuck pending, and when the
// node answers neither query a hardcoded conservative price is used.
func (c *EVMClient) buildTransfer(ctx context.Context, nonce uint64, to common.Address, amount *big.Int, gasLimit uint64, data []byte) *types.Transaction {
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err == nil && head.BaseFee != nil {
		tip, tipErr := c.eth.SuggestGasTipCap(ctx)
		if tipErr == nil {
			feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
			return types.NewTx(&types.DynamicFeeTx{
				ChainID:   c.chainID,
				Nonce:     nonce,
				GasTipCap: tip,
				GasFeeCap: feeCap,
				Gas:       gasLimit,
				To:        &to,
				Value:     amount,
				Data:      data,
			})
		}
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err == nil && gasPrice.Sign() > 0 {
		gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(3))
	} else {
		gasPrice = new(big.Int).Set(fallbackGasPriceWei)
	}

	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    amount,
		Data:     data,
	})
}
