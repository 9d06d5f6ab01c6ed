package reportmarket

// ReportKind selects the fixed price tier of a purchasable report.
type ReportKind uint8

const (
	ReportDaily ReportKind = iota
	ReportWeekly
	ReportMonthly
)

// Fixed price table in minor units of the machine's accepted token.
const (
	PriceDaily   uint64 = 1_000_000
	PriceWeekly  uint64 = 5_000_000
	PriceMonthly uint64 = 20_000_000
)

// OwnerSharePercent is the cut of every report purchase forwarded to the
// machine owner; the remainder stays escrowed for contributors.
const OwnerSharePercent uint64 = 10

// MaxCIDLength bounds the stored content locator.
const MaxCIDLength = 64

// Price returns the purchase price for the kind.
func (k ReportKind) Price() (uint64, error) {
	switch k {
	case ReportDaily:
		return PriceDaily, nil
	case ReportWeekly:
		return PriceWeekly, nil
	case ReportMonthly:
		return PriceMonthly, nil
	default:
		return 0, ErrInvalidReportKind
	}
}

func (k ReportKind) Valid() bool {
	_, err := k.Price()
	return err == nil
}

func (k ReportKind) String() string {
	switch k {
	case ReportDaily:
		return "daily"
	case ReportWeekly:
		return "weekly"
	case ReportMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ReportStatus is the strictly forward lifecycle of a report.
type ReportStatus uint8

const (
	ReportPending ReportStatus = iota
	ReportReady
	ReportDistributionReady
	ReportDistributed
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReady, ReportDistributionReady, ReportDistributed:
		return true
	default:
		return false
	}
}

func (s ReportStatus) String() string {
	switch s {
	case ReportPending:
		return "pending"
	case ReportReady:
		return "ready"
	case ReportDistributionReady:
		return "distribution_ready"
	case ReportDistributed:
		return "distributed"
	default:
		return "unknown"
	}
}

// Treasury is the singleton escrow for report revenue. The vault identity is
// immutable after initialisation; ReportCount doubles as the id sequence.
type Treasury struct {
	Vault          [20]byte
	TotalCollected uint64
	ReportCount    uint64
}

func (t *Treasury) Clone() *Treasury {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Report is one purchased report. RootSet is the explicit presence flag for
// MerkleRoot; the root is settable exactly once.
type Report struct {
	ID                       uint64
	Buyer                    [20]byte
	Kind                     ReportKind
	TimeframeDays            uint32
	AmountPaid               uint64
	CID                      string
	Status                   ReportStatus
	CreatedAt                int64
	RemainingForDistribution uint64
	MerkleRoot               [32]byte
	RootSet                  bool
}

func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// ClaimRecord marks one settled claim. Its mere existence at the derived
// (claimant, report) address is the double-claim guard; there is no flag.
type ClaimRecord struct {
	Claimant  [20]byte
	ReportID  uint64
	Amount    uint64
	ClaimedAt int64
}

func (c *ClaimRecord) Clone() *ClaimRecord {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
