package reportmarket_test

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sadiqsaidu/solvend/core/events"
	"github.com/sadiqsaidu/solvend/merkletree"
	"github.com/sadiqsaidu/solvend/native/reportmarket"
	"github.com/sadiqsaidu/solvend/native/vending"
)

var errInsufficientBalance = errors.New("mock: insufficient balance")

type mockState struct {
	machine  *vending.MachineConfig
	treasury *reportmarket.Treasury
	reports  map[uint64]*reportmarket.Report
	claims   map[string]*reportmarket.ClaimRecord
	progress map[[20]byte]*vending.UserProgress
	balances map[[20]byte]*big.Int

	failReportPut error
	failClaimPut  error
}

func newMockState() *mockState {
	return &mockState{
		reports:  make(map[uint64]*reportmarket.Report),
		claims:   make(map[string]*reportmarket.ClaimRecord),
		progress: make(map[[20]byte]*vending.UserProgress),
		balances: make(map[[20]byte]*big.Int),
	}
}

func claimMapKey(claimant [20]byte, reportID uint64) string {
	return fmt.Sprintf("%x:%d", claimant, reportID)
}

func (m *mockState) MachineGet() (*vending.MachineConfig, bool) {
	if m.machine == nil {
		return nil, false
	}
	return m.machine.Clone(), true
}

func (m *mockState) TreasuryGet() (*reportmarket.Treasury, bool) {
	if m.treasury == nil {
		return nil, false
	}
	return m.treasury.Clone(), true
}

func (m *mockState) TreasuryPut(t *reportmarket.Treasury) error {
	m.treasury = t.Clone()
	return nil
}

func (m *mockState) ReportGet(id uint64) (*reportmarket.Report, bool) {
	r, ok := m.reports[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

func (m *mockState) ReportPut(r *reportmarket.Report) error {
	if m.failReportPut != nil {
		return m.failReportPut
	}
	m.reports[r.ID] = r.Clone()
	return nil
}

func (m *mockState) ClaimGet(claimant [20]byte, reportID uint64) (*reportmarket.ClaimRecord, bool) {
	c, ok := m.claims[claimMapKey(claimant, reportID)]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (m *mockState) ClaimPut(c *reportmarket.ClaimRecord) error {
	if m.failClaimPut != nil {
		return m.failClaimPut
	}
	m.claims[claimMapKey(c.Claimant, c.ReportID)] = c.Clone()
	return nil
}

func (m *mockState) ProgressGet(user [20]byte) (*vending.UserProgress, bool) {
	p, ok := m.progress[user]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (m *mockState) ProgressPut(p *vending.UserProgress) error {
	m.progress[p.User] = p.Clone()
	return nil
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	if b, ok := m.balances[addr]; ok {
		return b
	}
	b := big.NewInt(0)
	m.balances[addr] = b
	return b
}

func (m *mockState) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBal := m.balance(from)
	if fromBal.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	fromBal.Sub(fromBal, amount)
	m.balance(to).Add(m.balance(to), amount)
	return nil
}

func (m *mockState) fund(addr [20]byte, amount uint64) {
	m.balance(addr).Add(m.balance(addr), new(big.Int).SetUint64(amount))
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

var (
	owner = addr(1)
	vault = addr(2)
	buyer = addr(3)
)

func newTestEngine(t *testing.T) (*reportmarket.Engine, *mockState, *recordingEmitter) {
	t.Helper()
	state := newMockState()
	state.machine = &vending.MachineConfig{Owner: owner, Token: "USDT", Price: 1_000_000}
	emitter := &recordingEmitter{}
	engine := reportmarket.NewEngine()
	engine.SetState(state)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1_000 })
	if _, err := engine.InitializeTreasury(vault); err != nil {
		t.Fatalf("initialize treasury: %v", err)
	}
	return engine, state, emitter
}

func TestInitializeTreasuryOnce(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.InitializeTreasury(addr(9)); !errors.Is(err, reportmarket.ErrTreasuryExists) {
		t.Fatalf("expected ErrTreasuryExists, got %v", err)
	}
}

func TestBuyReportSplitsPayment(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	state.fund(buyer, 1_000_000)

	report, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1)
	if err != nil {
		t.Fatalf("buy report: %v", err)
	}
	if report.ID != 0 {
		t.Fatalf("first report id should be 0, got %d", report.ID)
	}
	if report.AmountPaid != 1_000_000 || report.RemainingForDistribution != 900_000 {
		t.Fatalf("unexpected amounts: %+v", report)
	}
	if report.Status != reportmarket.ReportPending {
		t.Fatalf("new report must be pending, got %v", report.Status)
	}
	if got := state.balance(buyer).Uint64(); got != 0 {
		t.Fatalf("buyer balance after purchase: %d", got)
	}
	if got := state.balance(owner).Uint64(); got != 100_000 {
		t.Fatalf("owner share: %d", got)
	}
	if got := state.balance(vault).Uint64(); got != 900_000 {
		t.Fatalf("escrowed remainder: %d", got)
	}
	if state.treasury.ReportCount != 1 || state.treasury.TotalCollected != 1_000_000 {
		t.Fatalf("treasury counters: %+v", state.treasury)
	}
	found := false
	for _, evt := range emitter.events {
		if e, ok := evt.(events.ReportPurchased); ok && e.Kind == "daily" && e.Amount == 1_000_000 {
			found = true
		}
	}
	if !found {
		t.Fatalf("purchase event not emitted")
	}
}

func TestBuyReportSequentialIDs(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.fund(buyer, 30_000_000)
	first, err := engine.BuyReport(buyer, reportmarket.ReportWeekly, 7)
	if err != nil {
		t.Fatalf("buy weekly: %v", err)
	}
	second, err := engine.BuyReport(buyer, reportmarket.ReportMonthly, 30)
	if err != nil {
		t.Fatalf("buy monthly: %v", err)
	}
	if first.ID != 0 || second.ID != 1 {
		t.Fatalf("ids not sequential: %d then %d", first.ID, second.ID)
	}
}

func TestBuyReportInsufficientBalance(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.fund(buyer, 999_999)
	if _, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1); !errors.Is(err, errInsufficientBalance) {
		t.Fatalf("transfer failure must propagate, got %v", err)
	}
	if state.treasury.ReportCount != 0 {
		t.Fatalf("counter moved on failed purchase")
	}
}

func TestBuyReportInvalidKind(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.BuyReport(buyer, reportmarket.ReportKind(7), 1); !errors.Is(err, reportmarket.ErrInvalidReportKind) {
		t.Fatalf("expected ErrInvalidReportKind, got %v", err)
	}
}

func TestAttachReportData(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.fund(buyer, 1_000_000)
	report, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1)
	if err != nil {
		t.Fatalf("buy report: %v", err)
	}
	if err := engine.AttachReportData(buyer, report.ID, "cidABC"); !errors.Is(err, reportmarket.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	longCID := make([]byte, reportmarket.MaxCIDLength+1)
	for i := range longCID {
		longCID[i] = 'a'
	}
	if err := engine.AttachReportData(owner, report.ID, string(longCID)); !errors.Is(err, reportmarket.ErrCidTooLong) {
		t.Fatalf("expected ErrCidTooLong, got %v", err)
	}
	if err := engine.AttachReportData(owner, report.ID, "cidABC"); err != nil {
		t.Fatalf("attach report data: %v", err)
	}
	stored := state.reports[report.ID]
	if stored.CID != "cidABC" || stored.Status != reportmarket.ReportReady {
		t.Fatalf("unexpected stored report: %+v", stored)
	}
	if err := engine.AttachReportData(owner, report.ID, "cidDEF"); !errors.Is(err, reportmarket.ErrReportNotPending) {
		t.Fatalf("expected ErrReportNotPending, got %v", err)
	}
}

func TestSubmitDistributionRootOnce(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.fund(buyer, 1_000_000)
	report, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1)
	if err != nil {
		t.Fatalf("buy report: %v", err)
	}
	var root [32]byte
	root[0] = 0xAA
	if err := engine.SubmitDistributionRoot(owner, report.ID, root); !errors.Is(err, reportmarket.ErrReportNotReady) {
		t.Fatalf("root on pending report must fail, got %v", err)
	}
	if err := engine.AttachReportData(owner, report.ID, "cidABC"); err != nil {
		t.Fatalf("attach report data: %v", err)
	}
	if err := engine.SubmitDistributionRoot(buyer, report.ID, root); !errors.Is(err, reportmarket.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.SubmitDistributionRoot(owner, report.ID, root); err != nil {
		t.Fatalf("submit root: %v", err)
	}
	stored := state.reports[report.ID]
	if stored.Status != reportmarket.ReportDistributionReady || !stored.RootSet {
		t.Fatalf("root submission did not open distribution: %+v", stored)
	}
	if err := engine.SubmitDistributionRoot(owner, report.ID, root); !errors.Is(err, reportmarket.ErrReportNotReady) {
		t.Fatalf("second submission must fail on status gate, got %v", err)
	}
}

// openDistribution walks one report through purchase, content attach and root
// submission for the supplied distribution items.
func openDistribution(t *testing.T, engine *reportmarket.Engine, state *mockState, items []merkletree.Item) (uint64, *merkletree.Tree) {
	t.Helper()
	state.fund(buyer, 1_000_000)
	report, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1)
	if err != nil {
		t.Fatalf("buy report: %v", err)
	}
	if err := engine.AttachReportData(owner, report.ID, "cidABC"); err != nil {
		t.Fatalf("attach report data: %v", err)
	}
	tree, err := merkletree.Build(items)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	if err := engine.SubmitDistributionRoot(owner, report.ID, tree.Root()); err != nil {
		t.Fatalf("submit root: %v", err)
	}
	return report.ID, tree
}

func TestClaimEarnings(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	claimantA := addr(10)
	claimantB := addr(11)
	items := []merkletree.Item{
		{Claimant: claimantA, Amount: 300_000},
		{Claimant: claimantB, Amount: 600_000},
	}
	reportID, tree := openDistribution(t, engine, state, items)

	proofA, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if err := engine.ClaimEarnings(claimantA, reportID, 300_000, proofA); err != nil {
		t.Fatalf("claim earnings: %v", err)
	}
	if got := state.balance(claimantA).Uint64(); got != 300_000 {
		t.Fatalf("claimant balance: %d", got)
	}
	if got := state.reports[reportID].RemainingForDistribution; got != 600_000 {
		t.Fatalf("remaining after claim: %d", got)
	}
	if state.progress[claimantA].TotalEarnings != 300_000 {
		t.Fatalf("earnings not credited to progress record")
	}
	if _, ok := state.claims[claimMapKey(claimantA, reportID)]; !ok {
		t.Fatalf("claim record not created")
	}
	found := false
	for _, evt := range emitter.events {
		if e, ok := evt.(events.EarningsClaimed); ok && e.Claimant == claimantA {
			found = true
		}
	}
	if !found {
		t.Fatalf("claim event not emitted")
	}

	// The remaining claimant drains the escrow and the report settles.
	proofB, err := tree.Proof(1)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if err := engine.ClaimEarnings(claimantB, reportID, 600_000, proofB); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if got := state.reports[reportID]; got.RemainingForDistribution != 0 || got.Status != reportmarket.ReportDistributed {
		t.Fatalf("report not settled: %+v", got)
	}
}

func TestClaimEarningsDoubleClaim(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	claimant := addr(10)
	items := []merkletree.Item{
		{Claimant: claimant, Amount: 300_000},
		{Claimant: addr(11), Amount: 600_000},
	}
	reportID, tree := openDistribution(t, engine, state, items)
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if err := engine.ClaimEarnings(claimant, reportID, 300_000, proof); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// Same valid proof again: the occupied claim address rejects it.
	if err := engine.ClaimEarnings(claimant, reportID, 300_000, proof); !errors.Is(err, reportmarket.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if got := state.balance(claimant).Uint64(); got != 300_000 {
		t.Fatalf("double claim moved funds: %d", got)
	}
}

func TestClaimEarningsInvalidProof(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	claimant := addr(10)
	items := []merkletree.Item{
		{Claimant: claimant, Amount: 300_000},
		{Claimant: addr(11), Amount: 600_000},
	}
	reportID, tree := openDistribution(t, engine, state, items)
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	// Wrong amount.
	if err := engine.ClaimEarnings(claimant, reportID, 300_001, proof); !errors.Is(err, reportmarket.ErrInvalidMerkleProof) {
		t.Fatalf("expected ErrInvalidMerkleProof for wrong amount, got %v", err)
	}
	// Wrong claimant.
	if err := engine.ClaimEarnings(addr(12), reportID, 300_000, proof); !errors.Is(err, reportmarket.ErrInvalidMerkleProof) {
		t.Fatalf("expected ErrInvalidMerkleProof for wrong claimant, got %v", err)
	}
	// Corrupted sibling.
	corrupted := append([][32]byte(nil), proof...)
	corrupted[0][0] ^= 0x01
	if err := engine.ClaimEarnings(claimant, reportID, 300_000, corrupted); !errors.Is(err, reportmarket.ErrInvalidMerkleProof) {
		t.Fatalf("expected ErrInvalidMerkleProof for corrupted proof, got %v", err)
	}
}

func TestClaimEarningsBeforeRoot(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.fund(buyer, 1_000_000)
	report, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1)
	if err != nil {
		t.Fatalf("buy report: %v", err)
	}
	if err := engine.ClaimEarnings(addr(10), report.ID, 1, nil); !errors.Is(err, reportmarket.ErrDistributionNotReady) {
		t.Fatalf("expected ErrDistributionNotReady, got %v", err)
	}
}

func TestClaimEarningsExceedsRemaining(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	claimant := addr(10)
	// A leaf larger than the 900k escrow remainder.
	items := []merkletree.Item{
		{Claimant: claimant, Amount: 950_000},
		{Claimant: addr(11), Amount: 600_000},
	}
	reportID, tree := openDistribution(t, engine, state, items)
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if err := engine.ClaimEarnings(claimant, reportID, 950_000, proof); !errors.Is(err, reportmarket.ErrInsufficientFundsForClaim) {
		t.Fatalf("expected ErrInsufficientFundsForClaim, got %v", err)
	}
}

func TestClaimEarningsOverflowLeavesStateUntouched(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	claimant := addr(10)
	// A lifetime earnings total that cannot absorb another claim.
	state.progress[claimant] = &vending.UserProgress{User: claimant, TotalEarnings: math.MaxUint64}
	items := []merkletree.Item{
		{Claimant: claimant, Amount: 300_000},
		{Claimant: addr(11), Amount: 600_000},
	}
	reportID, tree := openDistribution(t, engine, state, items)
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if err := engine.ClaimEarnings(claimant, reportID, 300_000, proof); !errors.Is(err, reportmarket.ErrCalculationOverflow) {
		t.Fatalf("expected ErrCalculationOverflow, got %v", err)
	}
	if got := state.balance(claimant).Uint64(); got != 0 {
		t.Fatalf("overflowing claim moved funds: %d", got)
	}
	if got := state.reports[reportID].RemainingForDistribution; got != 900_000 {
		t.Fatalf("overflowing claim touched the escrow: %d", got)
	}
	if _, ok := state.claims[claimMapKey(claimant, reportID)]; ok {
		t.Fatalf("overflowing claim left a claim record")
	}
	if state.progress[claimant].TotalEarnings != math.MaxUint64 {
		t.Fatalf("overflowing claim touched the earnings total")
	}
}

func TestBuyReportWriteFailureRefundsBuyer(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	state.fund(buyer, 1_000_000)
	writeErr := errors.New("mock: write failed")
	state.failReportPut = writeErr
	if _, err := engine.BuyReport(buyer, reportmarket.ReportDaily, 1); !errors.Is(err, writeErr) {
		t.Fatalf("expected the write error, got %v", err)
	}
	if got := state.balance(buyer).Uint64(); got != 1_000_000 {
		t.Fatalf("buyer not made whole: %d", got)
	}
	if got := state.balance(owner).Uint64(); got != 0 {
		t.Fatalf("owner share not clawed back: %d", got)
	}
	if got := state.balance(vault).Uint64(); got != 0 {
		t.Fatalf("vault kept escrow of failed purchase: %d", got)
	}
	if state.treasury.ReportCount != 0 || state.treasury.TotalCollected != 0 {
		t.Fatalf("treasury counters moved on failed purchase: %+v", state.treasury)
	}
}

func TestClaimEarningsWriteFailureRevertsPayout(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	claimant := addr(10)
	items := []merkletree.Item{
		{Claimant: claimant, Amount: 300_000},
		{Claimant: addr(11), Amount: 600_000},
	}
	reportID, tree := openDistribution(t, engine, state, items)
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	writeErr := errors.New("mock: write failed")
	state.failClaimPut = writeErr
	if err := engine.ClaimEarnings(claimant, reportID, 300_000, proof); !errors.Is(err, writeErr) {
		t.Fatalf("expected the write error, got %v", err)
	}
	if got := state.balance(claimant).Uint64(); got != 0 {
		t.Fatalf("payout not reverted: %d", got)
	}
	if got := state.reports[reportID].RemainingForDistribution; got != 900_000 {
		t.Fatalf("escrow not restored: %d", got)
	}
	if progress, ok := state.progress[claimant]; ok && progress.TotalEarnings != 0 {
		t.Fatalf("earnings total not restored: %d", progress.TotalEarnings)
	}
	// Retrying after the backend recovers succeeds.
	state.failClaimPut = nil
	if err := engine.ClaimEarnings(claimant, reportID, 300_000, proof); err != nil {
		t.Fatalf("retry after write failure: %v", err)
	}
}
