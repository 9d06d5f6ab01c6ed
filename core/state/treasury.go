package state

import (
	"math/big"

	"github.com/sadiqsaidu/solvend/native/reportmarket"
)

type storedTreasury struct {
	Vault          [20]byte
	TotalCollected uint64
	ReportCount    uint64
}

// TreasuryGet loads the singleton treasury.
func (m *Manager) TreasuryGet() (*reportmarket.Treasury, bool) {
	stored := new(storedTreasury)
	ok, err := m.get(treasuryKey(), stored)
	if err != nil || !ok {
		return nil, false
	}
	return &reportmarket.Treasury{
		Vault:          stored.Vault,
		TotalCollected: stored.TotalCollected,
		ReportCount:    stored.ReportCount,
	}, true
}

// TreasuryPut persists the singleton treasury.
func (m *Manager) TreasuryPut(t *reportmarket.Treasury) error {
	return m.put(treasuryKey(), &storedTreasury{
		Vault:          t.Vault,
		TotalCollected: t.TotalCollected,
		ReportCount:    t.ReportCount,
	})
}

type storedReport struct {
	ID            uint64
	Buyer         [20]byte
	Kind          uint8
	TimeframeDays uint32
	AmountPaid    uint64
	CID           string
	Status        uint8
	CreatedAt     *big.Int
	Remaining     uint64
	MerkleRoot    [32]byte
	RootSet       bool
}

// ReportGet loads a report by its sequential id.
func (m *Manager) ReportGet(id uint64) (*reportmarket.Report, bool) {
	stored := new(storedReport)
	ok, err := m.get(reportKey(id), stored)
	if err != nil || !ok {
		return nil, false
	}
	report := &reportmarket.Report{
		ID:                       stored.ID,
		Buyer:                    stored.Buyer,
		Kind:                     reportmarket.ReportKind(stored.Kind),
		TimeframeDays:            stored.TimeframeDays,
		AmountPaid:               stored.AmountPaid,
		CID:                      stored.CID,
		Status:                   reportmarket.ReportStatus(stored.Status),
		RemainingForDistribution: stored.Remaining,
		MerkleRoot:               stored.MerkleRoot,
		RootSet:                  stored.RootSet,
	}
	if stored.CreatedAt != nil {
		report.CreatedAt = stored.CreatedAt.Int64()
	}
	if !report.Status.Valid() {
		return nil, false
	}
	return report, true
}

// ReportPut persists a report at its derived counter address.
func (m *Manager) ReportPut(r *reportmarket.Report) error {
	return m.put(reportKey(r.ID), &storedReport{
		ID:            r.ID,
		Buyer:         r.Buyer,
		Kind:          uint8(r.Kind),
		TimeframeDays: r.TimeframeDays,
		AmountPaid:    r.AmountPaid,
		CID:           r.CID,
		Status:        uint8(r.Status),
		CreatedAt:     big.NewInt(r.CreatedAt),
		Remaining:     r.RemainingForDistribution,
		MerkleRoot:    r.MerkleRoot,
		RootSet:       r.RootSet,
	})
}

type storedClaim struct {
	Claimant  [20]byte
	ReportID  uint64
	Amount    uint64
	ClaimedAt *big.Int
}

// ClaimGet loads the claim record derived from (claimant, report id). The
// record's presence is what blocks a second claim.
func (m *Manager) ClaimGet(claimant [20]byte, reportID uint64) (*reportmarket.ClaimRecord, bool) {
	stored := new(storedClaim)
	ok, err := m.get(claimKey(claimant, reportID), stored)
	if err != nil || !ok {
		return nil, false
	}
	record := &reportmarket.ClaimRecord{
		Claimant: stored.Claimant,
		ReportID: stored.ReportID,
		Amount:   stored.Amount,
	}
	if stored.ClaimedAt != nil {
		record.ClaimedAt = stored.ClaimedAt.Int64()
	}
	return record, true
}

// ClaimPut persists a claim record at its derived address.
func (m *Manager) ClaimPut(c *reportmarket.ClaimRecord) error {
	return m.put(claimKey(c.Claimant, c.ReportID), &storedClaim{
		Claimant:  c.Claimant,
		ReportID:  c.ReportID,
		Amount:    c.Amount,
		ClaimedAt: big.NewInt(c.ClaimedAt),
	})
}
