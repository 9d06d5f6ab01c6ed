package reportmarket

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/sadiqsaidu/solvend/core/events"
	"github.com/sadiqsaidu/solvend/native/vending"
)

type engineState interface {
	MachineGet() (*vending.MachineConfig, bool)
	TreasuryGet() (*Treasury, bool)
	TreasuryPut(*Treasury) error
	ReportGet(id uint64) (*Report, bool)
	ReportPut(*Report) error
	ClaimGet(claimant [20]byte, reportID uint64) (*ClaimRecord, bool)
	ClaimPut(*ClaimRecord) error
	ProgressGet(user [20]byte) (*vending.UserProgress, bool)
	ProgressPut(*vending.UserProgress) error
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine runs the report marketplace and the proof-gated earnings
// distribution. It reads the machine registry for authority and forwards the
// owner cut of every purchase, escrowing the remainder in the treasury vault.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a report market engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used by the engine.
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

func (e *Engine) machine() (*vending.MachineConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	machine, ok := e.state.MachineGet()
	if !ok {
		return nil, ErrMachineNotFound
	}
	return machine, nil
}

func (e *Engine) treasury() (*Treasury, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	treasury, ok := e.state.TreasuryGet()
	if !ok {
		return nil, ErrTreasuryNotFound
	}
	return treasury, nil
}

func (e *Engine) report(id uint64) (*Report, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	report, ok := e.state.ReportGet(id)
	if !ok {
		return nil, ErrReportNotFound
	}
	return report, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrCalculationOverflow
	}
	return a * b, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, ErrCalculationOverflow
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrCalculationOverflow
	}
	return a - b, nil
}

// unwind runs the undo steps for writes that succeeded before writeErr and
// returns writeErr, joined with any undo failure. Steps run in the order
// given, so callers list them newest first.
func (e *Engine) unwind(writeErr error, undo ...func() error) error {
	for _, step := range undo {
		if err := step(); err != nil {
			return errors.Join(writeErr, err)
		}
	}
	return writeErr
}

// InitializeTreasury creates the singleton treasury bound to one token vault.
// A second initialisation fails because the derived address is occupied.
func (e *Engine) InitializeTreasury(vault [20]byte) (*Treasury, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if _, ok := e.state.TreasuryGet(); ok {
		return nil, ErrTreasuryExists
	}
	treasury := &Treasury{
		Vault:          vault,
		TotalCollected: 0,
		ReportCount:    0,
	}
	if err := e.state.TreasuryPut(treasury); err != nil {
		return nil, err
	}
	return treasury.Clone(), nil
}

// BuyReport collects the full kind price from the buyer, forwards the owner
// cut out of the vault and opens a Pending report escrowing the remainder.
// The treasury report counter is the id sequence: the pre-increment value
// becomes the id, which keeps ids unique and append-only regardless of the
// configured price.
func (e *Engine) BuyReport(buyer [20]byte, kind ReportKind, timeframeDays uint32) (*Report, error) {
	machine, err := e.machine()
	if err != nil {
		return nil, err
	}
	treasury, err := e.treasury()
	if err != nil {
		return nil, err
	}
	price, err := kind.Price()
	if err != nil {
		return nil, err
	}
	ownerShare, err := checkedMul(price, OwnerSharePercent)
	if err != nil {
		return nil, err
	}
	ownerShare /= 100
	remaining, err := checkedSub(price, ownerShare)
	if err != nil {
		return nil, err
	}
	collected, err := checkedAdd(treasury.TotalCollected, price)
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(buyer, treasury.Vault, new(big.Int).SetUint64(price)); err != nil {
		return nil, err
	}
	refundBuyer := func() error {
		if err := e.state.Transfer(treasury.Vault, buyer, new(big.Int).SetUint64(price)); err != nil {
			return fmt.Errorf("reportmarket: refund buyer: %w", err)
		}
		return nil
	}
	// Treasury-authorized forward of the owner cut.
	if err := e.state.Transfer(treasury.Vault, machine.Owner, new(big.Int).SetUint64(ownerShare)); err != nil {
		return nil, e.unwind(err, refundBuyer)
	}
	clawBackShare := func() error {
		if err := e.state.Transfer(machine.Owner, treasury.Vault, new(big.Int).SetUint64(ownerShare)); err != nil {
			return fmt.Errorf("reportmarket: claw back owner share: %w", err)
		}
		return nil
	}
	report := &Report{
		ID:                       treasury.ReportCount,
		Buyer:                    buyer,
		Kind:                     kind,
		TimeframeDays:            timeframeDays,
		AmountPaid:               price,
		Status:                   ReportPending,
		CreatedAt:                e.now(),
		RemainingForDistribution: remaining,
	}
	prevTreasury := treasury.Clone()
	treasury.ReportCount++
	treasury.TotalCollected = collected
	if err := e.state.TreasuryPut(treasury); err != nil {
		return nil, e.unwind(err, clawBackShare, refundBuyer)
	}
	if err := e.state.ReportPut(report); err != nil {
		restoreTreasury := func() error {
			if putErr := e.state.TreasuryPut(prevTreasury); putErr != nil {
				return fmt.Errorf("reportmarket: restore treasury: %w", putErr)
			}
			return nil
		}
		return nil, e.unwind(err, restoreTreasury, clawBackShare, refundBuyer)
	}
	e.emit(events.ReportPurchased{ID: report.ID, Buyer: buyer, Kind: kind.String(), Amount: price})
	return report.Clone(), nil
}

// AttachReportData stores the content locator computed by the backend and
// moves the report to Ready. Owner authority only; one-shot by status gate.
func (e *Engine) AttachReportData(authority [20]byte, id uint64, cid string) error {
	machine, err := e.machine()
	if err != nil {
		return err
	}
	if machine.Owner != authority {
		return ErrUnauthorized
	}
	report, err := e.report(id)
	if err != nil {
		return err
	}
	if report.Status != ReportPending {
		return ErrReportNotPending
	}
	if len(cid) > MaxCIDLength {
		return ErrCidTooLong
	}
	report.CID = cid
	report.Status = ReportReady
	if err := e.state.ReportPut(report); err != nil {
		return err
	}
	e.emit(events.ReportReady{ID: id, CID: cid})
	return nil
}

// SubmitDistributionRoot records the Merkle root of the (claimant, amount)
// tree and unlocks claims. The root is settable exactly once.
func (e *Engine) SubmitDistributionRoot(authority [20]byte, id uint64, root [32]byte) error {
	machine, err := e.machine()
	if err != nil {
		return err
	}
	if machine.Owner != authority {
		return ErrUnauthorized
	}
	report, err := e.report(id)
	if err != nil {
		return err
	}
	if report.Status != ReportReady {
		return ErrReportNotReady
	}
	if report.RootSet {
		return ErrRootAlreadySet
	}
	report.MerkleRoot = root
	report.RootSet = true
	report.Status = ReportDistributionReady
	if err := e.state.ReportPut(report); err != nil {
		return err
	}
	e.emit(events.DistributionOpen{ID: id, Root: root})
	return nil
}

// ClaimEarnings pays out one claimant's share of a report's escrowed revenue
// after verifying membership in the distribution tree. Double claims are
// prevented structurally: the claim record address derived from (claimant,
// report) may only be created once.
func (e *Engine) ClaimEarnings(claimant [20]byte, reportID uint64, amount uint64, proof [][32]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	treasury, err := e.treasury()
	if err != nil {
		return err
	}
	report, err := e.report(reportID)
	if err != nil {
		return err
	}
	// The occupied claim address wins over every other gate so a repeat
	// claimant hears ErrAlreadyClaimed even after the report settled.
	if _, ok := e.state.ClaimGet(claimant, reportID); ok {
		return ErrAlreadyClaimed
	}
	if report.Status != ReportDistributionReady || !report.RootSet {
		return ErrDistributionNotReady
	}
	if !VerifyProof(LeafHash(claimant, amount), proof, report.MerkleRoot) {
		return ErrInvalidMerkleProof
	}
	if amount > report.RemainingForDistribution {
		return ErrInsufficientFundsForClaim
	}
	// Every fallible check runs before the payout so a failure here cannot
	// leave a partially applied claim.
	remaining, err := checkedSub(report.RemainingForDistribution, amount)
	if err != nil {
		return err
	}
	progress, ok := e.state.ProgressGet(claimant)
	if !ok {
		progress = &vending.UserProgress{User: claimant}
	}
	earned, err := checkedAdd(progress.TotalEarnings, amount)
	if err != nil {
		return err
	}
	if err := e.state.Transfer(treasury.Vault, claimant, new(big.Int).SetUint64(amount)); err != nil {
		return err
	}
	revertPayout := func() error {
		if revertErr := e.state.Transfer(claimant, treasury.Vault, new(big.Int).SetUint64(amount)); revertErr != nil {
			return fmt.Errorf("reportmarket: revert claim payout: %w", revertErr)
		}
		return nil
	}
	prevReport := report.Clone()
	report.RemainingForDistribution = remaining
	if remaining == 0 {
		report.Status = ReportDistributed
	}
	if err := e.state.ReportPut(report); err != nil {
		return e.unwind(err, revertPayout)
	}
	restoreReport := func() error {
		if putErr := e.state.ReportPut(prevReport); putErr != nil {
			return fmt.Errorf("reportmarket: restore report: %w", putErr)
		}
		return nil
	}
	prevEarnings := progress.TotalEarnings
	progress.TotalEarnings = earned
	if err := e.state.ProgressPut(progress); err != nil {
		return e.unwind(err, restoreReport, revertPayout)
	}
	record := &ClaimRecord{
		Claimant:  claimant,
		ReportID:  reportID,
		Amount:    amount,
		ClaimedAt: e.now(),
	}
	if err := e.state.ClaimPut(record); err != nil {
		restoreProgress := func() error {
			progress.TotalEarnings = prevEarnings
			if putErr := e.state.ProgressPut(progress); putErr != nil {
				return fmt.Errorf("reportmarket: restore progress: %w", putErr)
			}
			return nil
		}
		return e.unwind(err, restoreProgress, restoreReport, revertPayout)
	}
	e.emit(events.EarningsClaimed{ReportID: reportID, Claimant: claimant, Amount: amount})
	return nil
}
