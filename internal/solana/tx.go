package solana

import (
	"encoding/base64"
	"fmt"
)

// VersionedTransaction is a minimal wire codec for Solana transactions:
// a shortvec-prefixed array of 64-byte signatures followed by the message
// bytes. The message itself is kept opaque; it is exactly the byte span
// that gets signed, so nothing in it needs interpreting to re-sign.
type VersionedTransaction struct {
	Signatures [][64]byte
	message    []byte
}

// ParseTransaction decodes the wire form produced by a swap-build response.
func ParseTransaction(raw []byte) (*VersionedTransaction, error) {
	numSigs, n, err := decodeShortvecLen(raw)
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}

	need := n + numSigs*64
	if len(raw) < need+1 {
		return nil, fmt.Errorf("transaction too short: %d bytes, need more than %d", len(raw), need)
	}

	tx := &VersionedTransaction{
		Signatures: make([][64]byte, numSigs),
	}
	off := n
	for i := 0; i < numSigs; i++ {
		copy(tx.Signatures[i][:], raw[off:off+64])
		off += 64
	}

	tx.message = make([]byte, len(raw)-off)
	copy(tx.message, raw[off:])

	return tx, nil
}

// ParseTransactionBase64 decodes a base64-encoded transaction.
func ParseTransactionBase64(encoded string) (*VersionedTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return ParseTransaction(raw)
}

// Message returns the signable message bytes.
func (t *VersionedTransaction) Message() []byte {
	return t.message
}

// Sign signs the message with kp and installs the signature in slot 0,
// the fee payer's slot.
func (t *VersionedTransaction) Sign(kp *Keypair) {
	sig := kp.Sign(t.message)
	if len(t.Signatures) == 0 {
		t.Signatures = [][64]byte{sig}
		return
	}
	t.Signatures[0] = sig
}

// Serialize re-encodes the transaction to its wire form.
func (t *VersionedTransaction) Serialize() []byte {
	out := encodeShortvecLen(len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig[:]...)
	}
	return append(out, t.message...)
}

// SerializeBase64 re-encodes the transaction as base64 for submission.
func (t *VersionedTransaction) SerializeBase64() string {
	return base64.StdEncoding.EncodeToString(t.Serialize())
}

// decodeShortvecLen decodes Solana's compact-u16 length prefix.
// Returns the value and the number of bytes consumed.
func decodeShortvecLen(raw []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(raw) {
			return 0, 0, fmt.Errorf("truncated shortvec length")
		}
		b := raw[i]
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if value > 0xffff {
				return 0, 0, fmt.Errorf("shortvec length %d exceeds u16", value)
			}
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("shortvec length longer than 3 bytes")
}

// encodeShortvecLen encodes a compact-u16 length prefix.
func encodeShortvecLen(value int) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
