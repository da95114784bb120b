package discovery

import (
	"fmt"
	"testing"
)

// nKeys builds a synthetic key list of length n with recognizable values.
func nKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key%02d", i)
	}
	return keys
}

func TestExtractPoolKeys_Layouts(t *testing.T) {
	tests := []struct {
		name                        string
		keys                        []string
		pool, resA, resB, mint, src string
	}{
		{"len25", nKeys(25), "key02", "key06", "key05", "key19", SourceRaydium},
		{"len24", nKeys(24), "key02", "key06", "key05", "key20", SourceRaydium},
		{"len23", nKeys(23), "key02", "key06", "key05", "key19", SourceRaydium},
		{"len22", nKeys(22), "key02", "key06", "key05", "key18", SourceRaydium},
		{"len21", nKeys(21), "key02", "key05", "key06", "key18", SourceRaydium},
		{"len20", nKeys(20), "key02", "key05", "key06", "key17", SourceRaydium},
		{"len19", nKeys(19), "key02", "key06", "key05", "key16", SourceMoonshot},
		{"len18", nKeys(18), "key02", "key06", "key05", "key17", SourceRaydium},
		{"fallback len30", nKeys(30), "key02", "key06", "key05", "key17", SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPoolKeys(tt.keys)
			if err != nil {
				t.Fatalf("ExtractPoolKeys: %v", err)
			}
			if got.Pool != tt.pool {
				t.Errorf("pool = %s, want %s", got.Pool, tt.pool)
			}
			if got.ReserveA != tt.resA {
				t.Errorf("reserveA = %s, want %s", got.ReserveA, tt.resA)
			}
			if got.ReserveB != tt.resB {
				t.Errorf("reserveB = %s, want %s", got.ReserveB, tt.resB)
			}
			if got.Mint != tt.mint {
				t.Errorf("mint = %s, want %s", got.Mint, tt.mint)
			}
			if got.Creator != "key00" {
				t.Errorf("creator = %s, want key00", got.Creator)
			}
			if got.Source != tt.src {
				t.Errorf("source = %s, want %s", got.Source, tt.src)
			}
		})
	}
}

func TestExtractPoolKeys_PumpMigration(t *testing.T) {
	keys := nKeys(39)
	keys[30] = pumpMigrationProgram

	got, err := ExtractPoolKeys(keys)
	if err != nil {
		t.Fatalf("ExtractPoolKeys: %v", err)
	}
	if got.Source != SourcePump {
		t.Errorf("source = %s, want %s", got.Source, SourcePump)
	}
	if got.Pool != "key02" || got.ReserveA != "key05" || got.ReserveB != "key06" || got.Mint != "key18" {
		t.Errorf("unexpected keys: %+v", got)
	}
}

// Pump migrations keep their fixed mint slot even when an
// infrastructure mint sits on it. The watcher rejects those pools via
// Tradable instead of reading a shifted slot.
func TestExtractPoolKeys_PumpMigrationSkipsSubstitution(t *testing.T) {
	t.Run("len25 associated token account on mint slot", func(t *testing.T) {
		keys := nKeys(25)
		keys[10] = pumpMigrationProgram
		keys[18] = associatedTokenAcct
		got, err := ExtractPoolKeys(keys)
		if err != nil {
			t.Fatalf("ExtractPoolKeys: %v", err)
		}
		if got.Source != SourcePump {
			t.Fatalf("source = %s, want %s", got.Source, SourcePump)
		}
		if got.Mint != associatedTokenAcct {
			t.Errorf("mint = %s, want %s", got.Mint, associatedTokenAcct)
		}
	})

	t.Run("len22 wrapped sol on mint slot", func(t *testing.T) {
		keys := nKeys(22)
		keys[10] = pumpMigrationProgram
		keys[18] = wsolMint
		got, err := ExtractPoolKeys(keys)
		if err != nil {
			t.Fatalf("ExtractPoolKeys: %v", err)
		}
		if got.Mint != wsolMint {
			t.Errorf("mint = %s, want %s", got.Mint, wsolMint)
		}
	})
}

func TestExtractPoolKeys_MintSubstitution(t *testing.T) {
	t.Run("len25 associated token account on slot 19", func(t *testing.T) {
		keys := nKeys(25)
		keys[19] = associatedTokenAcct
		got, err := ExtractPoolKeys(keys)
		if err != nil {
			t.Fatalf("ExtractPoolKeys: %v", err)
		}
		if got.Mint != "key21" {
			t.Errorf("mint = %s, want key21", got.Mint)
		}
	})

	t.Run("len22 wrapped sol on slot 18", func(t *testing.T) {
		keys := nKeys(22)
		keys[18] = wsolMint
		got, err := ExtractPoolKeys(keys)
		if err != nil {
			t.Fatalf("ExtractPoolKeys: %v", err)
		}
		if got.Mint != "key16" {
			t.Errorf("mint = %s, want key16", got.Mint)
		}
	})

	t.Run("len22 associated token account on slot 18", func(t *testing.T) {
		keys := nKeys(22)
		keys[18] = associatedTokenAcct
		got, err := ExtractPoolKeys(keys)
		if err != nil {
			t.Fatalf("ExtractPoolKeys: %v", err)
		}
		if got.Mint != "key16" {
			t.Errorf("mint = %s, want key16", got.Mint)
		}
	})
}

func TestExtractPoolKeys_OutOfRange(t *testing.T) {
	// The fallback layout needs index 17; 10 keys cannot satisfy it.
	if _, err := ExtractPoolKeys(nKeys(10)); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, err := ExtractPoolKeys(nil); err == nil {
		t.Error("expected out-of-range error for empty list")
	}

	// Pump layout needs index 18 even when the list is short.
	keys := nKeys(12)
	keys[3] = pumpMigrationProgram
	if _, err := ExtractPoolKeys(keys); err == nil {
		t.Error("expected out-of-range error for short pump list")
	}
}

func TestTradable(t *testing.T) {
	for _, mint := range []string{wsolMint, associatedTokenAcct, token2022Mint} {
		if Tradable(mint) {
			t.Errorf("%s should not be tradable", mint)
		}
	}
	if !Tradable("SomeRandomMint11111111111111111111111111111") {
		t.Error("regular mint should be tradable")
	}
}
