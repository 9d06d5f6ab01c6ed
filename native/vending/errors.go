package vending

import "errors"

var (
	ErrNilState              = errors.New("vending: state not configured")
	ErrUnauthorized          = errors.New("vending: unauthorized")
	ErrMachineExists         = errors.New("vending: machine already initialized")
	ErrMachineNotFound       = errors.New("vending: machine not initialized")
	ErrInvalidExpiry         = errors.New("vending: invalid expiry timestamp")
	ErrVoucherExists         = errors.New("vending: voucher already exists")
	ErrVoucherNotFound       = errors.New("vending: voucher not found")
	ErrAlreadyRedeemed       = errors.New("vending: voucher already redeemed")
	ErrVoucherExpired        = errors.New("vending: voucher has expired")
	ErrProgressNotFound      = errors.New("vending: progress record not found")
	ErrProgressFull          = errors.New("vending: progress already at maximum")
	ErrInsufficientPurchases = errors.New("vending: insufficient purchases for reward mint")
	ErrNftAlreadyMinted      = errors.New("vending: reward already minted for this user")
	ErrNoNftToRedeem         = errors.New("vending: no reward to redeem")
)
