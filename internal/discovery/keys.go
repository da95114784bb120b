package discovery

import (
	"fmt"
	"slices"
)

// Well-known program and mint addresses.
const (
	// RaydiumProgram is the Raydium AMM v4 program ID whose logs the
	// watcher subscribes to.
	RaydiumProgram = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// pumpMigrationProgram shows up in the key list when a pump.fun token
	// graduates into a Raydium pool. Those transactions carry a different
	// account layout than a plain pool initialization.
	pumpMigrationProgram = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"

	wsolMint            = "So11111111111111111111111111111111111111112"
	associatedTokenAcct = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	token2022Mint       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// Source labels for where a pool came from.
const (
	SourceRaydium  = "RAY"
	SourcePump     = "PUMP"
	SourceMoonshot = "MOONSHOT"
	SourceUnknown  = "UNKNOWN"
)

// PoolKeys holds the addresses extracted from a pool initialization
// transaction's account key list.
type PoolKeys struct {
	Pool     string
	ReserveA string
	ReserveB string
	Mint     string
	Creator  string
	Source   string
}

// keyLayout is one row of the positional layout table. Initialization
// transactions carry no discriminated account metadata, so the indices
// are keyed by the shape of the key list itself.
type keyLayout struct {
	pool, reserveA, reserveB, mint, creator int
	source                                  string
}

var layoutByLen = map[int]keyLayout{
	25: {pool: 2, reserveA: 6, reserveB: 5, mint: 19, creator: 0, source: SourceRaydium},
	24: {pool: 2, reserveA: 6, reserveB: 5, mint: 20, creator: 0, source: SourceRaydium},
	23: {pool: 2, reserveA: 6, reserveB: 5, mint: 19, creator: 0, source: SourceRaydium},
	22: {pool: 2, reserveA: 6, reserveB: 5, mint: 18, creator: 0, source: SourceRaydium},
	21: {pool: 2, reserveA: 5, reserveB: 6, mint: 18, creator: 0, source: SourceRaydium},
	20: {pool: 2, reserveA: 5, reserveB: 6, mint: 17, creator: 0, source: SourceRaydium},
	19: {pool: 2, reserveA: 6, reserveB: 5, mint: 16, creator: 0, source: SourceMoonshot},
	18: {pool: 2, reserveA: 6, reserveB: 5, mint: 17, creator: 0, source: SourceRaydium},
}

var pumpLayout = keyLayout{pool: 2, reserveA: 5, reserveB: 6, mint: 18, creator: 0, source: SourcePump}

var fallbackLayout = keyLayout{pool: 2, reserveA: 6, reserveB: 5, mint: 17, creator: 0, source: SourceUnknown}

// ExtractPoolKeys maps a transaction's account key list to the pool
// addresses using the positional layout table. An index outside the key
// list is an error, never a panic.
func ExtractPoolKeys(accountKeys []string) (PoolKeys, error) {
	layout := fallbackLayout
	if slices.Contains(accountKeys, pumpMigrationProgram) {
		layout = pumpLayout
	} else if l, ok := layoutByLen[len(accountKeys)]; ok {
		layout = l
	}

	at := func(i int) (string, error) {
		if i < 0 || i >= len(accountKeys) {
			return "", fmt.Errorf("account index %d out of range for %d keys", i, len(accountKeys))
		}
		return accountKeys[i], nil
	}

	var keys PoolKeys
	var err error
	if keys.Pool, err = at(layout.pool); err != nil {
		return PoolKeys{}, err
	}
	if keys.ReserveA, err = at(layout.reserveA); err != nil {
		return PoolKeys{}, err
	}
	if keys.ReserveB, err = at(layout.reserveB); err != nil {
		return PoolKeys{}, err
	}
	if keys.Creator, err = at(layout.creator); err != nil {
		return PoolKeys{}, err
	}

	mintIdx := layout.mint
	if layout.source != SourcePump {
		mintIdx = adjustMintIndex(accountKeys, layout)
	}
	if keys.Mint, err = at(mintIdx); err != nil {
		return PoolKeys{}, err
	}
	keys.Source = layout.source
	return keys, nil
}

// adjustMintIndex handles the Raydium key-list shapes where a program
// account lands on the nominal mint slot and the real mint sits
// elsewhere. Pump migrations keep their fixed mint slot and never go
// through this.
func adjustMintIndex(accountKeys []string, layout keyLayout) int {
	idx := layout.mint
	if idx >= len(accountKeys) {
		return idx
	}
	switch len(accountKeys) {
	case 25:
		if accountKeys[idx] == associatedTokenAcct {
			return 21
		}
	case 22:
		if accountKeys[idx] == wsolMint || accountKeys[idx] == associatedTokenAcct {
			return 16
		}
	}
	return idx
}

// Tradable reports whether mint is an actual pool token rather than one
// of the infrastructure mints that appear in initialization key lists.
func Tradable(mint string) bool {
	switch mint {
	case wsolMint, associatedTokenAcct, token2022Mint:
		return false
	}
	return true
}
