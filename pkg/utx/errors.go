package utx

import "fmt"

// ConstructionError is returned when an unproven transaction cannot be
// assembled.
//
// This can occur in any role before signing completes. Common causes:
// no inputs, a malformed contract id, a note the signing key cannot open.
type ConstructionError struct {
	Code    string // Error code (e.g., ErrNoInputs, ErrInvalidContractID)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *ConstructionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("construction error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("construction error [%s]: %s", e.Code, e.Message)
}

func (e *ConstructionError) Unwrap() error { return e.Cause }

// SignatureError is returned when an input cannot be signed.
type SignatureError struct {
	InputIndex int    // Index of the input that caused the error
	Message    string // Human-readable error message
	Cause      error  // Underlying error (if any)
}

func (e *SignatureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("signature error at input %d: %s: %v", e.InputIndex, e.Message, e.Cause)
	}
	return fmt.Sprintf("signature error at input %d: %s", e.InputIndex, e.Message)
}

func (e *SignatureError) Unwrap() error { return e.Cause }

// FinalizationError is returned when a proven transaction cannot be
// extracted.
type FinalizationError struct {
	Code    string // Error code (e.g., ErrUnsigned)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("finalization error [%s]: %s", e.Code, e.Message)
}

func (e *FinalizationError) Unwrap() error { return e.Cause }

// ParseError is returned when bytes do not decode to a transaction.
//
// This occurs on wrong magic bytes, an unsupported version, truncated data
// or a field that is not a canonical encoding.
type ParseError struct {
	Message string // Human-readable error message
	Cause   error  // Underlying decode error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Error codes used throughout transaction assembly.
const (
	ErrInvalidInput      = "INVALID_INPUT"       // Input data is invalid or malformed
	ErrNoInputs          = "NO_INPUTS"           // No input to take the anchor from
	ErrTooManyInputs     = "TOO_MANY_INPUTS"     // More than MaxInputs inputs
	ErrInvalidAddress    = "INVALID_ADDRESS"     // Receiver address does not decode
	ErrInvalidContractID = "INVALID_CONTRACT_ID" // Contract id is not 32 bytes of base58
	ErrBlinderRecovery   = "BLINDER_RECOVERY"    // Input note cannot be opened by its key
	ErrUnsigned          = "UNSIGNED"            // Transaction has unsigned inputs
	ErrInvalidSignature  = "INVALID_SIGNATURE"   // Signature does not verify
)
