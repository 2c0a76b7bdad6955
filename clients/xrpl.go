package clients

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Peersyst/xrpl-go/xrpl/transaction"
	txtypes "github.com/Peersyst/xrpl-go/xrpl/transaction/types"
	"github.com/Peersyst/xrpl-go/xrpl/wallet"

	distypes "github.com/storyatlas/disburse/types"
	"github.com/storyatlas/disburse/utils"
)

var _ LedgerClient = (*XRPLClient)(nil)

// submitOutcome is the validated result of a blocking submit on the native
// ledger.
type submitOutcome struct {
	Hash       string
	ResultCode string
	Validated  bool
}

// ledgerSession is the slice of the XRPL connection the client uses per
// payment attempt. A session is acquired, used, and released inside a single
// call; leaked sessions must never accumulate across claims.
type ledgerSession interface {
	Connect() error
	Disconnect() error
	Autofill(tx *transaction.FlatTransaction) error
	SubmitAndWait(txBlob string) (submitOutcome, error)
	BalanceDrops(address string) (*big.Int, error)
}

// XRPLClient submits single native-asset payments from a custodial wallet
// and waits for the deterministic ledger outcome.
type XRPLClient struct {
	chain  distypes.Chain
	wsURL  string
	wallet wallet.Wallet
	policy distypes.ChainPolicy

	// dial opens a fresh session; swapped out in tests.
	dial func() (ledgerSession, error)

	// sign produces the submittable blob and the transaction hash for a
	// completed transaction. The hash is known before submission so a
	// failed wait can still report the reference.
	sign func(tx transaction.FlatTransaction) (blob string, hash string, err error)

	// submitMu serializes submissions from the shared custodial account so
	// concurrent claims cannot collide on the account sequence number.
	submitMu sync.Mutex
}

// NewXRPLClient derives the custodial wallet from its family seed. No
// connection is opened until a payment or balance call needs one.
func NewXRPLClient(cfg distypes.ClientConfig) (*XRPLClient, error) {
	if cfg.SignerSecret == "" {
		return nil, distypes.NewError(distypes.ErrConfiguration, "xrpl signer seed is required")
	}

	w, err := wallet.FromSeed(cfg.SignerSecret, "")
	if err != nil {
		return nil, distypes.NewError(distypes.ErrConfiguration, "invalid xrpl seed: %v", err)
	}

	c := &XRPLClient{
		chain:  distypes.ChainXRPL,
		wsURL:  cfg.RPCURL,
		wallet: w,
		policy: cfg.Policy,
	}
	c.dial = func() (ledgerSession, error) {
		return newWebsocketSession(c.wsURL), nil
	}
	c.sign = func(tx transaction.FlatTransaction) (string, string, error) {
		return c.wallet.Sign(tx)
	}
	return c, nil
}

func (c *XRPLClient) Chain() distypes.Chain        { return c.chain }
func (c *XRPLClient) Policy() distypes.ChainPolicy { return c.policy }

// Close is a no-op: sessions are scoped to individual calls.
func (c *XRPLClient) Close() {}

// SignerAddress is the custodial account the client disburses from.
func (c *XRPLClient) SignerAddress() string {
	return string(c.wallet.ClassicAddress)
}

// ValidateRecipient checks the classic address grammar without touching the
// network.
func (c *XRPLClient) ValidateRecipient(address string) error {
	return utils.ValidateAddressForChain(address, c.chain.String())
}

// Balance reports the custodial account's drops.
func (c *XRPLClient) Balance(ctx context.Context) (*big.Int, error) {
	session, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("xrpl session: %w", err)
	}
	defer session.Disconnect()

	if err := session.Connect(); err != nil {
		return nil, fmt.Errorf("xrpl connect: %w", err)
	}

	return session.BalanceDrops(c.SignerAddress())
}

// SubmitPayment sends amount drops to the recipient and blocks until the
// ledger reports the transaction validated and its engine result known.
// Sequence number, fee, and the last-valid-ledger window are auto-completed
// by the network's autofill facility; signing happens locally.
func (c *XRPLClient) SubmitPayment(ctx context.Context, to string, amount *big.Int, memo string) (*distypes.SettlementResult, error) {
	if !amount.IsUint64() {
		return &distypes.SettlementResult{Ok: false, FailureReason: "amount exceeds drop range"}, nil
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	session, err := c.dial()
	if err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", ErrBackendUnavailable, err)}, nil
	}
	// Release the session on every exit path.
	defer session.Disconnect()

	if err := session.Connect(); err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", ErrBackendUnavailable, err)}, nil
	}

	payment := &transaction.Payment{
		BaseTx: transaction.BaseTx{
			Account: txtypes.Address(c.SignerAddress()),
		},
		Destination: txtypes.Address(to),
		Amount:      txtypes.XRPCurrencyAmount(amount.Uint64()),
	}
	if memo != "" {
		payment.Memos = []txtypes.MemoWrapper{encodeMemo(memo)}
	}

	flatTx := payment.Flatten()
	if err := session.Autofill(&flatTx); err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("autofill failed: %v", err)}, nil
	}

	txBlob, txHash, err := c.sign(flatTx)
	if err != nil {
		return &distypes.SettlementResult{Ok: false, FailureReason: fmt.Sprintf("%s: %v", ErrSignFailed, err)}, nil
	}

	outcome, err := session.SubmitAndWait(txBlob)
	if err != nil {
		// The transaction may have been broadcast before the wait broke
		// off; the locally computed hash lets the caller reconcile.
		ref := outcome.Hash
		if ref == "" {
			ref = txHash
		}
		return &distypes.SettlementResult{
			Ok:            false,
			TxReference:   ref,
			FailureReason: fmt.Sprintf("%s: %v", ErrSubmitFailed, err),
		}, nil
	}

	if outcome.ResultCode != XRPLSuccessCode {
		return &distypes.SettlementResult{
			Ok:            false,
			TxReference:   outcome.Hash,
			FailureReason: outcome.ResultCode,
		}, nil
	}

	return &distypes.SettlementResult{
		Ok:           true,
		TxReference:  outcome.Hash,
		SettledUnits: new(big.Int).Set(amount),
	}, nil
}

// encodeMemo hex-encodes a textual memo the way the ledger requires.
func encodeMemo(memo string) txtypes.MemoWrapper {
	return txtypes.MemoWrapper{
		Memo: txtypes.Memo{
			MemoData: strings.ToUpper(hex.EncodeToString([]byte(memo))),
		},
	}
}
