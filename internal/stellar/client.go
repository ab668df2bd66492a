// Package stellar reads account balances and transactions from a Horizon server.
package stellar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon"
)

// ErrNotFound is returned when Horizon has no such account or transaction.
var ErrNotFound = errors.New("stellar resource not found")

var addressPattern = regexp.MustCompile(`^G[A-Z2-7]{55}$`)

// ValidAddress reports whether s looks like a Stellar public account ID.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Transaction is the subset of a Horizon transaction record the service needs.
type Transaction struct {
	Hash       string
	Successful bool
	Ledger     int64
	CreatedAt  time.Time
}

// Client adapts a horizonclient.Client to the balance and transaction
// lookups used by the vault and settlement packages.
type Client struct {
	horizon *horizonclient.Client
}

// NewClient creates a Horizon client for baseURL.
func NewClient(baseURL string) *Client {
	return New(&horizonclient.Client{
		HorizonURL: baseURL,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
	})
}

// New wraps an existing Horizon client.
func New(hc *horizonclient.Client) *Client {
	return &Client{horizon: hc}
}

// AccountBalance returns the account's balance of the given asset. An empty
// code means the native asset (XLM). Accounts without a trustline hold zero.
func (c *Client) AccountBalance(ctx context.Context, address, code, issuer string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	acct, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		return decimal.Zero, mapError(err, "fetching account "+address)
	}

	for _, b := range acct.Balances {
		if !balanceMatches(b, code, issuer) {
			continue
		}
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing balance %q: %w", b.Balance, err)
		}
		return amount, nil
	}
	return decimal.Zero, nil
}

func balanceMatches(b horizon.Balance, code, issuer string) bool {
	if code == "" {
		return b.Type == "native"
	}
	return b.Code == code && (issuer == "" || b.Issuer == issuer)
}

// Transaction looks up a transaction by hash.
func (c *Client) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx, err := c.horizon.TransactionDetail(hash)
	if err != nil {
		return nil, mapError(err, "fetching transaction "+hash)
	}

	return &Transaction{
		Hash:       tx.Hash,
		Successful: tx.Successful,
		Ledger:     int64(tx.Ledger),
		CreatedAt:  tx.LedgerCloseTime,
	}, nil
}

func mapError(err error, op string) error {
	if horizonclient.IsNotFoundError(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
