package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface the bot depends on.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns (nil, nil) when the transaction is not yet available.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBalance retrieves an account's lamport balance.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenSupply retrieves a mint's total supply in UI units.
	GetTokenSupply(ctx context.Context, mint string) (float64, error)

	// SendTransaction submits a signed transaction (base64) and returns
	// its signature. Preflight checks are skipped and the node performs
	// no retries; propagation is left to the network.
	SendTransaction(ctx context.Context, signedTxBase64 string) (string, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PostTokenBalances []TokenBalance
	PostBalances      []uint64
}

// InstructionError reports whether the transaction failed with an
// instruction-level error.
func (m *TransactionMeta) InstructionError() bool {
	if m == nil || m.Err == nil {
		return false
	}
	errMap, ok := m.Err.(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = errMap["InstructionError"]
	return ok
}

// TokenBalance is one entry of meta.postTokenBalances.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw amount in base units
	UIAmount     float64
	Decimals     int
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
