package validation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bandhub/bandhub/internal/stellar"
	"github.com/bandhub/bandhub/internal/vault"
)

// ValidateAmount checks a BandCoin amount.
func ValidateAmount(amount decimal.Decimal) []FieldError {
	var errs fieldErrors
	amountField(&errs, amount)
	return errs
}

// ValidateCreateVault validates a vault creation request.
func ValidateCreateVault(bandID string, rewardShareBps int) []FieldError {
	var errs fieldErrors

	if bandID == "" {
		errs.add("bandId", "bandId is required")
	} else if _, err := uuid.Parse(bandID); err != nil {
		errs.add("bandId", "bandId must be a valid UUID")
	}
	if rewardShareBps < 1 || rewardShareBps > 10000 {
		errs.add("rewardShareBps", "rewardShareBps must be between 1 and 10000")
	}

	return errs
}

// ValidateWithdrawal validates a withdrawal request.
func ValidateWithdrawal(amount decimal.Decimal, destination string) []FieldError {
	var errs fieldErrors

	amountField(&errs, amount)
	if destination == "" {
		errs.add("destination", "destination is required")
	} else if !stellar.ValidAddress(destination) {
		errs.add("destination", "destination must be a Stellar public key (G followed by 55 base32 characters)")
	}

	return errs
}

// ValidateTransition validates the optional fields of an admin withdrawal action.
func ValidateTransition(txHash *string, note string) []FieldError {
	var errs fieldErrors

	if txHash != nil && !isTxHash(*txHash) {
		errs.add("txHash", "txHash must be a 64 character hex string")
	}
	errs.text("note", note, false, 500)

	return errs
}

func amountField(errs *fieldErrors, amount decimal.Decimal) {
	if !vault.ValidAmount(amount) {
		errs.add("amount", "amount must be positive, below %s and have at most %d decimal places", vault.MaxAmount, vault.Scale)
	}
}

func isTxHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
