package vending

import (
	"time"

	"github.com/sadiqsaidu/solvend/core/events"
)

type engineState interface {
	MachineGet() (*MachineConfig, bool)
	MachinePut(*MachineConfig) error
	VoucherGet(user [20]byte, nonce uint64) (*Voucher, bool)
	VoucherPut(*Voucher) error
	ProgressGet(user [20]byte) (*UserProgress, bool)
	ProgressPut(*UserProgress) error
}

// Engine wires the vending business logic with external state and event
// emitters. Each exported method is one atomic operation: any failed
// precondition returns before anything is written.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a vending engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) machine() (*MachineConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	machine, ok := e.state.MachineGet()
	if !ok {
		return nil, ErrMachineNotFound
	}
	return machine, nil
}

func (e *Engine) requireOwner(caller [20]byte) (*MachineConfig, error) {
	machine, err := e.machine()
	if err != nil {
		return nil, err
	}
	if machine.Owner != caller {
		return nil, ErrUnauthorized
	}
	return machine, nil
}

// InitializeMachine creates the singleton machine configuration. A second
// initialisation fails because the derived machine address is occupied.
func (e *Engine) InitializeMachine(owner [20]byte, token string, price uint64) (*MachineConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if _, ok := e.state.MachineGet(); ok {
		return nil, ErrMachineExists
	}
	machine := &MachineConfig{
		Owner:      owner,
		Token:      normalized,
		Price:      price,
		TotalSales: 0,
	}
	if err := e.state.MachinePut(machine); err != nil {
		return nil, err
	}
	return machine.Clone(), nil
}

// CreateVoucher mints a redemption token for a confirmed off-chain payment.
// Only the machine owner authority may create vouchers; the expiry must be
// strictly in the future.
func (e *Engine) CreateVoucher(authority, user [20]byte, hashOTP [32]byte, expiryTS int64, isFree bool, nonce uint64) (*Voucher, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if _, err := e.requireOwner(authority); err != nil {
		return nil, err
	}
	if expiryTS <= e.now() {
		return nil, ErrInvalidExpiry
	}
	if _, ok := e.state.VoucherGet(user, nonce); ok {
		return nil, ErrVoucherExists
	}
	voucher := &Voucher{
		User:     user,
		HashOTP:  hashOTP,
		ExpiryTS: expiryTS,
		Redeemed: false,
		IsFree:   isFree,
		Nonce:    nonce,
	}
	if err := e.state.VoucherPut(voucher); err != nil {
		return nil, err
	}
	e.emit(events.VoucherCreated{User: user, Nonce: nonce, Expiry: expiryTS, IsFree: isFree})
	return voucher.Clone(), nil
}

// RedeemVoucher marks a voucher as spent at dispense time. A second call for
// the same voucher always fails; one-time use is the point, so there is no
// idempotent success path here.
func (e *Engine) RedeemVoucher(user [20]byte, nonce uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	voucher, ok := e.state.VoucherGet(user, nonce)
	if !ok {
		return ErrVoucherNotFound
	}
	if voucher.Redeemed {
		return ErrAlreadyRedeemed
	}
	now := e.now()
	if now > voucher.ExpiryTS {
		return ErrVoucherExpired
	}
	voucher.Redeemed = true
	if err := e.state.VoucherPut(voucher); err != nil {
		return err
	}
	e.emit(events.VoucherRedeemed{User: voucher.User, Timestamp: now, IsFree: voucher.IsFree})
	return nil
}

// IncrementProgress advances a user's loyalty counter and the machine's global
// sales counter within the same transition. The record is created lazily on
// the first purchase. At the cap the call hard-fails with ErrProgressFull
// rather than silently saturating, so a buggy client hears about it.
func (e *Engine) IncrementProgress(authority, user [20]byte, optIn bool) (*UserProgress, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	machine, err := e.requireOwner(authority)
	if err != nil {
		return nil, err
	}
	progress, ok := e.state.ProgressGet(user)
	if !ok {
		progress = &UserProgress{
			User:          user,
			OptIn:         optIn,
			TotalEarnings: 0,
		}
	}
	if progress.PurchaseCount >= MaxPurchaseCount {
		return nil, ErrProgressFull
	}
	progress.PurchaseCount++
	machine.TotalSales++
	if err := e.state.ProgressPut(progress); err != nil {
		return nil, err
	}
	if err := e.state.MachinePut(machine); err != nil {
		return nil, err
	}
	e.emit(events.ProgressIncremented{User: user, NewCount: progress.PurchaseCount})
	return progress.Clone(), nil
}

// SetRewardMint records the identity of the loyalty reward minted for a full
// cycle. The assignment is one-shot.
func (e *Engine) SetRewardMint(authority, user [20]byte, mint [32]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if _, err := e.requireOwner(authority); err != nil {
		return err
	}
	progress, ok := e.state.ProgressGet(user)
	if !ok {
		return ErrProgressNotFound
	}
	if progress.PurchaseCount < MaxPurchaseCount {
		return ErrInsufficientPurchases
	}
	if progress.RewardMinted {
		return ErrNftAlreadyMinted
	}
	progress.RewardMint = mint
	progress.RewardMinted = true
	if err := e.state.ProgressPut(progress); err != nil {
		return err
	}
	e.emit(events.RewardMintRecorded{User: user, Mint: mint})
	return nil
}

// ResetProgress clears the counter and reward identity after the reward has
// been redeemed, opening a fresh cycle for the user.
func (e *Engine) ResetProgress(authority, user [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if _, err := e.requireOwner(authority); err != nil {
		return err
	}
	progress, ok := e.state.ProgressGet(user)
	if !ok {
		return ErrProgressNotFound
	}
	if !progress.RewardMinted {
		return ErrNoNftToRedeem
	}
	progress.PurchaseCount = 0
	progress.RewardMint = [32]byte{}
	progress.RewardMinted = false
	if err := e.state.ProgressPut(progress); err != nil {
		return err
	}
	e.emit(events.ProgressReset{User: user})
	return nil
}
