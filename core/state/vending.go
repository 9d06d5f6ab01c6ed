package state

import (
	"math/big"

	"github.com/sadiqsaidu/solvend/native/vending"
)

type storedMachine struct {
	Owner      [20]byte
	Token      string
	Price      uint64
	TotalSales uint64
}

// MachineGet loads the singleton machine configuration.
func (m *Manager) MachineGet() (*vending.MachineConfig, bool) {
	stored := new(storedMachine)
	ok, err := m.get(machineKey(), stored)
	if err != nil || !ok {
		return nil, false
	}
	return &vending.MachineConfig{
		Owner:      stored.Owner,
		Token:      stored.Token,
		Price:      stored.Price,
		TotalSales: stored.TotalSales,
	}, true
}

// MachinePut persists the singleton machine configuration.
func (m *Manager) MachinePut(cfg *vending.MachineConfig) error {
	return m.put(machineKey(), &storedMachine{
		Owner:      cfg.Owner,
		Token:      cfg.Token,
		Price:      cfg.Price,
		TotalSales: cfg.TotalSales,
	})
}

// RLP has no signed integers, so the expiry travels as *big.Int like the
// other timestamped records.
type storedVoucher struct {
	User     [20]byte
	HashOTP  [32]byte
	ExpiryTS *big.Int
	Redeemed bool
	IsFree   bool
	Nonce    uint64
}

// VoucherGet loads the voucher derived from (user, nonce).
func (m *Manager) VoucherGet(user [20]byte, nonce uint64) (*vending.Voucher, bool) {
	stored := new(storedVoucher)
	ok, err := m.get(voucherKey(user, nonce), stored)
	if err != nil || !ok {
		return nil, false
	}
	voucher := &vending.Voucher{
		User:     stored.User,
		HashOTP:  stored.HashOTP,
		Redeemed: stored.Redeemed,
		IsFree:   stored.IsFree,
		Nonce:    stored.Nonce,
	}
	if stored.ExpiryTS != nil {
		voucher.ExpiryTS = stored.ExpiryTS.Int64()
	}
	return voucher, true
}

// VoucherPut persists a voucher at its derived (user, nonce) address.
func (m *Manager) VoucherPut(v *vending.Voucher) error {
	return m.put(voucherKey(v.User, v.Nonce), &storedVoucher{
		User:     v.User,
		HashOTP:  v.HashOTP,
		ExpiryTS: big.NewInt(v.ExpiryTS),
		Redeemed: v.Redeemed,
		IsFree:   v.IsFree,
		Nonce:    v.Nonce,
	})
}

type storedProgress struct {
	User          [20]byte
	PurchaseCount uint8
	RewardMint    [32]byte
	RewardMinted  bool
	OptIn         bool
	TotalEarnings uint64
}

// ProgressGet loads the progress record derived from the user identity.
func (m *Manager) ProgressGet(user [20]byte) (*vending.UserProgress, bool) {
	stored := new(storedProgress)
	ok, err := m.get(progressKey(user), stored)
	if err != nil || !ok {
		return nil, false
	}
	return &vending.UserProgress{
		User:          stored.User,
		PurchaseCount: stored.PurchaseCount,
		RewardMint:    stored.RewardMint,
		RewardMinted:  stored.RewardMinted,
		OptIn:         stored.OptIn,
		TotalEarnings: stored.TotalEarnings,
	}, true
}

// ProgressPut persists a progress record at its derived address.
func (m *Manager) ProgressPut(p *vending.UserProgress) error {
	return m.put(progressKey(p.User), &storedProgress{
		User:          p.User,
		PurchaseCount: p.PurchaseCount,
		RewardMint:    p.RewardMint,
		RewardMinted:  p.RewardMinted,
		OptIn:         p.OptIn,
		TotalEarnings: p.TotalEarnings,
	})
}
