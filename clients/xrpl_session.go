package clients

import (
	"fmt"
	"math/big"

	"github.com/Peersyst/xrpl-go/xrpl/currency"
	"github.com/Peersyst/xrpl-go/xrpl/transaction"
	txtypes "github.com/Peersyst/xrpl-go/xrpl/transaction/types"
	"github.com/Peersyst/xrpl-go/xrpl/websocket"
)

var _ ledgerSession = (*websocketSession)(nil)

// websocketSession adapts the XRPL websocket client to the narrow session
// surface the payment flow needs.
type websocketSession struct {
	client *websocket.Client
}

func newWebsocketSession(host string) *websocketSession {
	return &websocketSession{
		client: websocket.NewClient(websocket.NewClientConfig().WithHost(host)),
	}
}

func (s *websocketSession) Connect() error {
	return s.client.Connect()
}

func (s *websocketSession) Disconnect() error {
	return s.client.Disconnect()
}

func (s *websocketSession) Autofill(tx *transaction.FlatTransaction) error {
	return s.client.Autofill(tx)
}

func (s *websocketSession) SubmitAndWait(txBlob string) (submitOutcome, error) {
	res, err := s.client.SubmitTxBlobAndWait(txBlob, false)
	if err != nil {
		return submitOutcome{}, err
	}
	return submitOutcome{
		Hash:       res.Hash.String(),
		ResultCode: res.Meta.TransactionResult,
		Validated:  res.Validated,
	}, nil
}

func (s *websocketSession) BalanceDrops(address string) (*big.Int, error) {
	xrp, err := s.client.GetXrpBalance(txtypes.Address(address))
	if err != nil {
		return nil, fmt.Errorf("xrpl balance query: %w", err)
	}
	drops, err := currency.XrpToDrops(xrp)
	if err != nil {
		return nil, fmt.Errorf("convert xrp balance: %w", err)
	}
	value, ok := new(big.Int).SetString(drops, 10)
	if !ok {
		return nil, fmt.Errorf("invalid drops amount %q", drops)
	}
	return value, nil
}
