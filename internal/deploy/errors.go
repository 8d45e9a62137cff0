package deploy

import (
	"errors"
	"strings"
)

// Error kinds surfaced by a deployment attempt. Every error returned by the
// tracker matches exactly one of these with errors.Is.
var (
	ErrWalletNotConnected  = errors.New("wallet not connected")
	ErrInvalidInput        = errors.New("invalid input")
	ErrSubmissionRejected  = errors.New("submission rejected")
	ErrReceiptError        = errors.New("receipt error")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrAddressUnresolved   = errors.New("address unresolved")
	ErrUploadFailed        = errors.New("metadata upload failed")
	ErrDeploymentFailed    = errors.New("deployment failed")
	ErrPollingTimeout      = errors.New("polling timeout")
	ErrAttemptInProgress   = errors.New("deployment attempt already in progress")
)

// attemptError pairs an error kind with the underlying cause so that both
// errors.Is(err, ErrX) and the verbatim cause message survive.
type attemptError struct {
	kind  error
	cause error
}

func (e *attemptError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *attemptError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func newError(kind, cause error) error {
	return &attemptError{kind: kind, cause: cause}
}

func causeOf(err error) string {
	var ae *attemptError
	if errors.As(err, &ae) && ae.cause != nil {
		return ae.cause.Error()
	}
	return ""
}

var messages = []struct {
	kind error
	text string
}{
	{ErrWalletNotConnected, "Connect your wallet first"},
	{ErrInvalidInput, "Please fill in all fields with valid values"},
	{ErrAttemptInProgress, "A deployment is already in progress"},
	{ErrSubmissionRejected, "Transaction error"},
	{ErrReceiptError, "Confirmation error"},
	{ErrTransactionReverted, "Transaction reverted"},
	{ErrAddressUnresolved, "Deployed, but the contract address could not be determined. Check the transaction on the block explorer"},
	{ErrUploadFailed, "Failed to upload metadata"},
	{ErrDeploymentFailed, "Error processing transaction"},
	{ErrPollingTimeout, "Transaction confirmation timed out. Please check the block explorer for status"},
}

// Message renders err as the single human-readable line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if !errors.Is(err, m.kind) {
			continue
		}
		cause := causeOf(err)
		if cause == "" || m.kind == ErrAddressUnresolved || m.kind == ErrPollingTimeout {
			return m.text
		}
		// The backend's own message replaces the generic text.
		if m.kind == ErrDeploymentFailed {
			return cause
		}
		return m.text + ": " + cause
	}
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
