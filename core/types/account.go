package types

import "math/big"

// Account tracks the accepted-token holdings of a single address. The program
// only ever moves one mint, so a single balance field is carried.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
