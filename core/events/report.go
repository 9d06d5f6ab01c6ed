package events

import (
	"encoding/hex"
	"strconv"

	"github.com/sadiqsaidu/solvend/core/types"
)

const (
	TypeReportPurchased  = "report.purchased"
	TypeReportReady      = "report.ready"
	TypeDistributionOpen = "report.distribution_open"
	TypeEarningsClaimed  = "report.earnings_claimed"
)

type ReportPurchased struct {
	ID     uint64
	Buyer  [20]byte
	Kind   string
	Amount uint64
}

func (ReportPurchased) EventType() string { return TypeReportPurchased }

func (e ReportPurchased) Event() *types.Event {
	return &types.Event{
		Type: TypeReportPurchased,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(e.ID, 10),
			"buyer":  hex.EncodeToString(e.Buyer[:]),
			"kind":   e.Kind,
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

type ReportReady struct {
	ID  uint64
	CID string
}

func (ReportReady) EventType() string { return TypeReportReady }

func (e ReportReady) Event() *types.Event {
	return &types.Event{
		Type: TypeReportReady,
		Attributes: map[string]string{
			"id":  strconv.FormatUint(e.ID, 10),
			"cid": e.CID,
		},
	}
}

type DistributionOpen struct {
	ID   uint64
	Root [32]byte
}

func (DistributionOpen) EventType() string { return TypeDistributionOpen }

func (e DistributionOpen) Event() *types.Event {
	return &types.Event{
		Type: TypeDistributionOpen,
		Attributes: map[string]string{
			"id":   strconv.FormatUint(e.ID, 10),
			"root": hex.EncodeToString(e.Root[:]),
		},
	}
}

type EarningsClaimed struct {
	ReportID uint64
	Claimant [20]byte
	Amount   uint64
}

func (EarningsClaimed) EventType() string { return TypeEarningsClaimed }

func (e EarningsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeEarningsClaimed,
		Attributes: map[string]string{
			"reportId": strconv.FormatUint(e.ReportID, 10),
			"claimant": hex.EncodeToString(e.Claimant[:]),
			"amount":   strconv.FormatUint(e.Amount, 10),
		},
	}
}
