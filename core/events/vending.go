package events

import (
	"encoding/hex"
	"strconv"

	"github.com/sadiqsaidu/solvend/core/types"
)

const (
	TypeVoucherCreated      = "vending.voucher.created"
	TypeVoucherRedeemed     = "vending.voucher.redeemed"
	TypeProgressIncremented = "vending.progress.incremented"
	TypeRewardMintRecorded  = "vending.reward.minted"
	TypeProgressReset       = "vending.progress.reset"
)

type VoucherCreated struct {
	User   [20]byte
	Nonce  uint64
	Expiry int64
	IsFree bool
}

func (VoucherCreated) EventType() string { return TypeVoucherCreated }

func (e VoucherCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeVoucherCreated,
		Attributes: map[string]string{
			"user":   hex.EncodeToString(e.User[:]),
			"nonce":  strconv.FormatUint(e.Nonce, 10),
			"expiry": strconv.FormatInt(e.Expiry, 10),
			"isFree": strconv.FormatBool(e.IsFree),
		},
	}
}

type VoucherRedeemed struct {
	User      [20]byte
	Timestamp int64
	IsFree    bool
}

func (VoucherRedeemed) EventType() string { return TypeVoucherRedeemed }

func (e VoucherRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeVoucherRedeemed,
		Attributes: map[string]string{
			"user":      hex.EncodeToString(e.User[:]),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
			"isFree":    strconv.FormatBool(e.IsFree),
		},
	}
}

type ProgressIncremented struct {
	User     [20]byte
	NewCount uint8
}

func (ProgressIncremented) EventType() string { return TypeProgressIncremented }

func (e ProgressIncremented) Event() *types.Event {
	return &types.Event{
		Type: TypeProgressIncremented,
		Attributes: map[string]string{
			"user":     hex.EncodeToString(e.User[:]),
			"newCount": strconv.FormatUint(uint64(e.NewCount), 10),
		},
	}
}

type RewardMintRecorded struct {
	User [20]byte
	Mint [32]byte
}

func (RewardMintRecorded) EventType() string { return TypeRewardMintRecorded }

func (e RewardMintRecorded) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardMintRecorded,
		Attributes: map[string]string{
			"user": hex.EncodeToString(e.User[:]),
			"mint": hex.EncodeToString(e.Mint[:]),
		},
	}
}

type ProgressReset struct {
	User [20]byte
}

func (ProgressReset) EventType() string { return TypeProgressReset }

func (e ProgressReset) Event() *types.Event {
	return &types.Event{
		Type: TypeProgressReset,
		Attributes: map[string]string{
			"user": hex.EncodeToString(e.User[:]),
		},
	}
}
