package referral

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat   = errors.New("invalid referral code format")
	ErrNotFound        = errors.New("referral code not found")
	ErrSelfReferral    = errors.New("self referral")
	ErrProfileNotReady = errors.New("profile not ready")
	ErrAlreadyReferred = errors.New("already referred")
	ErrStorage         = errors.New("storage error")

	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
	ErrNotReferee           = errors.New("user is not a referee of the transaction owner")
	ErrInvalidState         = errors.New("invalid referral state")
)

var messages = []struct {
	err error
	msg string
}{
	{ErrInvalidFormat, "Invalid referral code format. Codes look like REF followed by 8 letters or digits."},
	{ErrNotFound, "Invalid referral code. Please check and try again."},
	{ErrSelfReferral, "You cannot use your own referral code"},
	{ErrProfileNotReady, "Profile not ready. Please try again."},
	{ErrAlreadyReferred, "You have already used a referral code"},
	{ErrInvalidAmount, "Amount must be greater than zero"},
	{ErrInsufficientBalance, "Insufficient balance for this withdrawal"},
	{ErrTransactionNotFound, "Transaction not found"},
	{ErrWithdrawalNotPending, "Withdrawal has already been processed"},
	{ErrNotReferee, "Selected user was not referred by this account"},
	{ErrInvalidState, "Referral link expired. Please use the code again."},
}

// Message returns the user-facing text for err.
func Message(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong. Please try again later."
}

// Outcome is a short label for err, used as a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfReferral):
		return "self_referral"
	case errors.Is(err, ErrProfileNotReady):
		return "profile_not_ready"
	case errors.Is(err, ErrAlreadyReferred):
		return "already_referred"
	default:
		return "storage_error"
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
