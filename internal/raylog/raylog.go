// Package raylog decodes the bincode-serialized event records that the
// Raydium AMM program emits in its "ray_log:" program log lines.
package raylog

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
)

// Record type discriminants (first byte of every record).
const (
	TypeInit        byte = 0
	TypeDeposit     byte = 1
	TypeWithdraw    byte = 2
	TypeSwapBaseIn  byte = 3
	TypeSwapBaseOut byte = 4
)

// Exact record sizes including the discriminant byte.
const (
	initLogSize     = 1 + 8 + 1 + 1 + 8 + 8 + 8 + 8 + 32 // 75
	depositLogSize  = 1 + 6*8 + 16 + 16 + 3*8            // 105
	withdrawLogSize = 1 + 5*8 + 16 + 16 + 2*8            // 89
	swapLogSize     = 1 + 7*8                            // 57
)

var (
	// ErrUnknownRecordType is returned when the discriminant byte does not
	// match any known record variant.
	ErrUnknownRecordType = errors.New("raylog: unknown record type")

	// ErrMalformedRecord is returned when the payload length does not match
	// the fixed width of the discriminated variant.
	ErrMalformedRecord = errors.New("raylog: malformed record")
)

// rayLogMarker prefixes the base64 payload inside a program log line.
const rayLogMarker = "ray_log: "

// Uint128 is a little-endian 128-bit unsigned integer split into two
// 64-bit halves. The represented value is Lo + Hi*2^64.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// Big returns the value as a big.Int.
func (u Uint128) Big() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(u.Lo))
}

// String renders the full 128-bit value in decimal.
func (u Uint128) String() string {
	return u.Big().String()
}

// Record is one decoded AMM log record.
type Record interface {
	// Type returns the record's discriminant byte.
	Type() byte
}

// InitLog is emitted when a pool is initialized.
type InitLog struct {
	Time         uint64
	PCDecimals   uint8
	CoinDecimals uint8
	PCLotSize    uint64
	CoinLotSize  uint64
	PCAmount     uint64
	CoinAmount   uint64
	// Market is the pool's market pubkey, base58-encoded.
	Market string
}

// DepositLog is emitted when liquidity is added to a pool.
type DepositLog struct {
	MaxCoin    uint64
	MaxPC      uint64
	Base       uint64
	PoolCoin   uint64
	PoolPC     uint64
	PoolLP     uint64
	CalcPnlX   Uint128
	CalcPnlY   Uint128
	DeductCoin uint64
	DeductPC   uint64
	MintLP     uint64
}

// WithdrawLog is emitted when liquidity is removed from a pool.
type WithdrawLog struct {
	WithdrawLP uint64
	UserLP     uint64
	PoolCoin   uint64
	PoolPC     uint64
	PoolLP     uint64
	CalcPnlX   Uint128
	CalcPnlY   Uint128
	OutCoin    uint64
	OutPC      uint64
}

// SwapBaseInLog is emitted for a swap quoted on the input amount.
type SwapBaseInLog struct {
	AmountIn   uint64
	MinimumOut uint64
	Direction  uint64
	UserSource uint64
	PoolCoin   uint64
	PoolPC     uint64
	OutAmount  uint64
}

// SwapBaseOutLog is emitted for a swap quoted on the output amount.
type SwapBaseOutLog struct {
	MaxIn      uint64
	AmountOut  uint64
	Direction  uint64
	UserSource uint64
	PoolCoin   uint64
	PoolPC     uint64
	DeductIn   uint64
}

func (*InitLog) Type() byte        { return TypeInit }
func (*DepositLog) Type() byte     { return TypeDeposit }
func (*WithdrawLog) Type() byte    { return TypeWithdraw }
func (*SwapBaseInLog) Type() byte  { return TypeSwapBaseIn }
func (*SwapBaseOutLog) Type() byte { return TypeSwapBaseOut }

// Decode parses a raw record. The first byte selects the variant; the
// remaining bytes must match that variant's fixed width exactly.
func Decode(raw []byte) (Record, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedRecord
	}

	switch raw[0] {
	case TypeInit:
		return decodeInit(raw)
	case TypeDeposit:
		return decodeDeposit(raw)
	case TypeWithdraw:
		return decodeWithdraw(raw)
	case TypeSwapBaseIn:
		return decodeSwapBaseIn(raw)
	case TypeSwapBaseOut:
		return decodeSwapBaseOut(raw)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownRecordType, raw[0])
	}
}

// DecodeBase64 decodes a base64 payload as it appears in program logs.
func DecodeBase64(payload string) (Record, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return Decode(raw)
}

// ExtractRayLog returns the base64 payload embedded in a program log line,
// or false if the line carries no ray_log marker.
func ExtractRayLog(logLine string) (string, bool) {
	idx := strings.Index(logLine, rayLogMarker)
	if idx < 0 {
		return "", false
	}
	payload := logLine[idx+len(rayLogMarker):]
	if payload == "" {
		return "", false
	}
	return payload, true
}

// reader walks a fixed-layout record. Length is validated up front, so the
// read methods never run past the end.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) u128() Uint128 {
	lo := r.u64()
	hi := r.u64()
	return Uint128{Lo: lo, Hi: hi}
}

func (r *reader) pubkey() string {
	s := base58.Encode(r.buf[r.off : r.off+32])
	r.off += 32
	return s
}

func decodeInit(raw []byte) (*InitLog, error) {
	if len(raw) != initLogSize {
		return nil, fmt.Errorf("%w: init log has %d bytes, want %d", ErrMalformedRecord, len(raw), initLogSize)
	}
	r := &reader{buf: raw, off: 1}
	return &InitLog{
		Time:         r.u64(),
		PCDecimals:   r.u8(),
		CoinDecimals: r.u8(),
		PCLotSize:    r.u64(),
		CoinLotSize:  r.u64(),
		PCAmount:     r.u64(),
		CoinAmount:   r.u64(),
		Market:       r.pubkey(),
	}, nil
}

func decodeDeposit(raw []byte) (*DepositLog, error) {
	if len(raw) != depositLogSize {
		return nil, fmt.Errorf("%w: deposit log has %d bytes, want %d", ErrMalformedRecord, len(raw), depositLogSize)
	}
	r := &reader{buf: raw, off: 1}
	return &DepositLog{
		MaxCoin:    r.u64(),
		MaxPC:      r.u64(),
		Base:       r.u64(),
		PoolCoin:   r.u64(),
		PoolPC:     r.u64(),
		PoolLP:     r.u64(),
		CalcPnlX:   r.u128(),
		CalcPnlY:   r.u128(),
		DeductCoin: r.u64(),
		DeductPC:   r.u64(),
		MintLP:     r.u64(),
	}, nil
}

func decodeWithdraw(raw []byte) (*WithdrawLog, error) {
	if len(raw) != withdrawLogSize {
		return nil, fmt.Errorf("%w: withdraw log has %d bytes, want %d", ErrMalformedRecord, len(raw), withdrawLogSize)
	}
	r := &reader{buf: raw, off: 1}
	return &WithdrawLog{
		WithdrawLP: r.u64(),
		UserLP:     r.u64(),
		PoolCoin:   r.u64(),
		PoolPC:     r.u64(),
		PoolLP:     r.u64(),
		CalcPnlX:   r.u128(),
		CalcPnlY:   r.u128(),
		OutCoin:    r.u64(),
		OutPC:      r.u64(),
	}, nil
}

func decodeSwapBaseIn(raw []byte) (*SwapBaseInLog, error) {
	if len(raw) != swapLogSize {
		return nil, fmt.Errorf("%w: swap log has %d bytes, want %d", ErrMalformedRecord, len(raw), swapLogSize)
	}
	r := &reader{buf: raw, off: 1}
	return &SwapBaseInLog{
		AmountIn:   r.u64(),
		MinimumOut: r.u64(),
		Direction:  r.u64(),
		UserSource: r.u64(),
		PoolCoin:   r.u64(),
		PoolPC:     r.u64(),
		OutAmount:  r.u64(),
	}, nil
}

func decodeSwapBaseOut(raw []byte) (*SwapBaseOutLog, error) {
	if len(raw) != swapLogSize {
		return nil, fmt.Errorf("%w: swap log has %d bytes, want %d", ErrMalformedRecord, len(raw), swapLogSize)
	}
	r := &reader{buf: raw, off: 1}
	return &SwapBaseOutLog{
		MaxIn:      r.u64(),
		AmountOut:  r.u64(),
		Direction:  r.u64(),
		UserSource: r.u64(),
		PoolCoin:   r.u64(),
		PoolPC:     r.u64(),
		DeductIn:   r.u64(),
	}, nil
}
