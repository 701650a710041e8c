package ledger

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/niksmo/solpay-checkout/internal/core/domain"
)

// observe flattens a fetched transaction into the token balance changes of
// its accounts.
func observe(
	sig solana.Signature, tx *solana.Transaction, meta *rpc.TransactionMeta,
) (domain.ObservedTransfer, error) {
	if tx == nil {
		return domain.ObservedTransfer{}, errors.New("transaction is empty")
	}
	if meta == nil {
		return domain.ObservedTransfer{}, errors.New("transaction meta is missing")
	}

	obs := domain.ObservedTransfer{
		Signature:   sig,
		Failed:      meta.Err != nil,
		AccountKeys: append([]solana.PublicKey(nil), tx.Message.AccountKeys...),
	}

	changes := make(map[uint16]*domain.TokenBalanceChange)
	var order []uint16

	entry := func(b rpc.TokenBalance) *domain.TokenBalanceChange {
		c, ok := changes[b.AccountIndex]
		if ok {
			return c
		}
		c = &domain.TokenBalanceChange{Mint: b.Mint}
		if b.Owner != nil {
			c.Owner = *b.Owner
		}
		if int(b.AccountIndex) < len(obs.AccountKeys) {
			c.Account = obs.AccountKeys[b.AccountIndex]
		}
		changes[b.AccountIndex] = c
		order = append(order, b.AccountIndex)
		return c
	}

	for _, b := range meta.PreTokenBalances {
		units, decimals, err := tokenAmount(b)
		if err != nil {
			return domain.ObservedTransfer{}, err
		}
		c := entry(b)
		c.Pre, c.Decimals = units, decimals
	}
	for _, b := range meta.PostTokenBalances {
		units, decimals, err := tokenAmount(b)
		if err != nil {
			return domain.ObservedTransfer{}, err
		}
		c := entry(b)
		c.Post, c.Decimals = units, decimals
	}

	obs.Balances = make([]domain.TokenBalanceChange, 0, len(order))
	for _, idx := range order {
		obs.Balances = append(obs.Balances, *changes[idx])
	}
	return obs, nil
}

func tokenAmount(b rpc.TokenBalance) (uint64, uint8, error) {
	if b.UiTokenAmount == nil {
		return 0, 0, fmt.Errorf("account %d: token amount is missing", b.AccountIndex)
	}
	units, err := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("account %d: %w", b.AccountIndex, err)
	}
	return units, b.UiTokenAmount.Decimals, nil
}
