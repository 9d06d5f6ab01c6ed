package vending

import (
	"fmt"
	"strings"
)

// MaxPurchaseCount is the number of purchases that fills a loyalty cycle and
// unlocks the reward mint.
const MaxPurchaseCount = 10

// MachineConfig is the singleton configuration of a deployed vending machine.
// The owner identity is fixed at initialisation and never changes.
type MachineConfig struct {
	Owner      [20]byte
	Token      string
	Price      uint64
	TotalSales uint64
}

// Clone returns a copy of the config so callers can mutate it freely without
// touching the stored instance.
func (m *MachineConfig) Clone() *MachineConfig {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Voucher is a one-time redemption token minted by the backend after an
// off-chain payment confirmed. It is never deleted and doubles as the audit
// record of the purchase.
type Voucher struct {
	User     [20]byte
	HashOTP  [32]byte
	ExpiryTS int64
	Redeemed bool
	IsFree   bool
	Nonce    uint64
}

func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// UserProgress tracks purchases toward the loyalty reward. RewardMinted is the
// explicit presence flag for RewardMint; a zero mint with the flag set is
// still treated as minted.
type UserProgress struct {
	User          [20]byte
	PurchaseCount uint8
	RewardMint    [32]byte
	RewardMinted  bool
	OptIn         bool
	TotalEarnings uint64
}

func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// NormalizeToken canonicalises a token symbol and rejects empty values.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("vending: empty token symbol")
	}
	return trimmed, nil
}
