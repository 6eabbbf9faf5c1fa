package pos

import "errors"

// All failures below are recoverable at the call site; none crash the
// process. The HTTP layer maps them to 4xx responses.
var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrOutOfStock             = errors.New("out of stock")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrRegisterClosed         = errors.New("register is closed")
	ErrRegisterOpen           = errors.New("register is already open")
	ErrNotEditable            = errors.New("transaction is not editable")
	ErrAlreadyVoided          = errors.New("transaction is already voided")
	ErrNotVoided              = errors.New("transaction is not voided")
	ErrNegativeOpeningBalance = errors.New("opening balance must not be negative")
	ErrIDSpaceExhausted       = errors.New("transaction id space exhausted")
	ErrInvalidRequest         = errors.New("invalid request")
)
