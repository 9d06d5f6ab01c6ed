package reportmarket

import "errors"

var (
	ErrNilState                  = errors.New("reportmarket: state not configured")
	ErrUnauthorized              = errors.New("reportmarket: unauthorized")
	ErrMachineNotFound           = errors.New("reportmarket: machine not initialized")
	ErrTreasuryExists            = errors.New("reportmarket: treasury already initialized")
	ErrTreasuryNotFound          = errors.New("reportmarket: treasury not initialized")
	ErrInvalidReportKind         = errors.New("reportmarket: invalid report kind")
	ErrReportNotFound            = errors.New("reportmarket: report not found")
	ErrReportNotPending          = errors.New("reportmarket: report is not pending")
	ErrCidTooLong                = errors.New("reportmarket: content locator too long")
	ErrReportNotReady            = errors.New("reportmarket: report is not ready")
	ErrRootAlreadySet            = errors.New("reportmarket: distribution root already set")
	ErrDistributionNotReady      = errors.New("reportmarket: distribution not ready")
	ErrInvalidMerkleProof        = errors.New("reportmarket: invalid merkle proof")
	ErrInsufficientFundsForClaim = errors.New("reportmarket: claim exceeds remaining distribution")
	ErrAlreadyClaimed            = errors.New("reportmarket: claim record already exists")
	ErrCalculationOverflow       = errors.New("reportmarket: calculation overflow")
)
