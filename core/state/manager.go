package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/sadiqsaidu/solvend/core/types"
	"github.com/sadiqsaidu/solvend/storage"
)

// ErrInsufficientBalance is surfaced by Transfer when the payer cannot cover
// the requested amount. The external token primitive propagates it unchanged.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

// Entity derivation salts. Every record address is the keccak256 of its salt
// plus the identifying fields in a fixed order, so existence of an entity is
// a plain storage lookup at an externally computable key.
var (
	machineSalt  = []byte("machine")
	voucherSalt  = []byte("voucher")
	progressSalt = []byte("user")
	treasurySalt = []byte("treasury")
	reportSalt   = []byte("report")
	claimSalt    = []byte("claim")
	accountSalt  = []byte("account:")
)

func machineKey() []byte {
	return ethcrypto.Keccak256(machineSalt)
}

func voucherKey(user [20]byte, nonce uint64) []byte {
	buf := make([]byte, len(voucherSalt)+len(user)+8)
	copy(buf, voucherSalt)
	copy(buf[len(voucherSalt):], user[:])
	binary.LittleEndian.PutUint64(buf[len(voucherSalt)+len(user):], nonce)
	return ethcrypto.Keccak256(buf)
}

func progressKey(user [20]byte) []byte {
	buf := make([]byte, len(progressSalt)+len(user))
	copy(buf, progressSalt)
	copy(buf[len(progressSalt):], user[:])
	return ethcrypto.Keccak256(buf)
}

func treasuryKey() []byte {
	return ethcrypto.Keccak256(treasurySalt)
}

func reportKey(id uint64) []byte {
	buf := make([]byte, len(reportSalt)+8)
	copy(buf, reportSalt)
	binary.LittleEndian.PutUint64(buf[len(reportSalt):], id)
	return ethcrypto.Keccak256(buf)
}

func claimKey(claimant [20]byte, reportID uint64) []byte {
	buf := make([]byte, len(claimSalt)+len(claimant)+8)
	copy(buf, claimSalt)
	copy(buf[len(claimSalt):], claimant[:])
	binary.LittleEndian.PutUint64(buf[len(claimSalt)+len(claimant):], reportID)
	return ethcrypto.Keccak256(buf)
}

func accountKey(addr [20]byte) []byte {
	buf := make([]byte, len(accountSalt)+len(addr))
	copy(buf, accountSalt)
	copy(buf[len(accountSalt):], addr[:])
	return ethcrypto.Keccak256(buf)
}

// Manager provides typed access to all program entities over a flat
// key-value store. It satisfies the state interfaces declared by the vending
// and reportmarket engines.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided store.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// GetAccount loads the account for addr, returning a zero-balance account
// when none has been stored yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	stored := new(storedAccount)
	ok, err := m.get(accountKey(addr), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ensureAccount(nil), nil
	}
	return ensureAccount(&types.Account{Nonce: stored.Nonce, Balance: stored.Balance}), nil
}

// PutAccount persists the account for addr.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	acc = ensureAccount(acc)
	return m.put(accountKey(addr), &storedAccount{Nonce: acc.Nonce, Balance: acc.Balance})
}

// Transfer is the external token primitive: it moves amount between two
// accounts or fails without touching either. A failed write of the payee is
// rolled back by restoring the payer.
func (m *Manager) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromAcc, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toAcc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	originalFrom := &types.Account{Nonce: fromAcc.Nonce, Balance: new(big.Int).Set(fromAcc.Balance)}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := m.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := m.PutAccount(to, toAcc); err != nil {
		if restoreErr := m.PutAccount(from, originalFrom); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("state: rollback payer: %w", restoreErr))
		}
		return err
	}
	return nil
}
