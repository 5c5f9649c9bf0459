package errortypes

// Timeout flags that a remote call did not complete before its deadline.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityFatal
}

// BadInput should be used when returning errors which are caused by bad input.
// It should _not_ be used if the error is a server-side issue (e.g. failed to reach the floors provider).
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// BadServerResponse is used when a floors provider answered with something other than a usable payload.
type BadServerResponse struct {
	Message string
}

func (err *BadServerResponse) Error() string {
	return err.Message
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityFatal
}

// AccountDisabled is used when the host has disabled the requested account.
type AccountDisabled struct {
	Message string
}

func (err *AccountDisabled) Error() string {
	return err.Message
}

func (err *AccountDisabled) Code() int {
	return AccountDisabledErrorCode
}

func (err *AccountDisabled) Severity() Severity {
	return SeverityFatal
}

// MalformedAcct should be used when the retrieved account config cannot be unmarshaled.
type MalformedAcct struct {
	Message string
}

func (err *MalformedAcct) Error() string {
	return err.Message
}

func (err *MalformedAcct) Code() int {
	return MalformedAcctErrorCode
}

func (err *MalformedAcct) Severity() Severity {
	return SeverityFatal
}

// FailedToUnmarshal is used when a JSON document could not be decoded.
type FailedToUnmarshal struct {
	Message string
}

func (err *FailedToUnmarshal) Error() string {
	return err.Message
}

func (err *FailedToUnmarshal) Code() int {
	return FailedToUnmarshalErrorCode
}

func (err *FailedToUnmarshal) Severity() Severity {
	return SeverityFatal
}

// FloorValidation describes the first structural problem found in a floor rule set.
type FloorValidation struct {
	Message string
}

func (err *FloorValidation) Error() string {
	return err.Message
}

func (err *FloorValidation) Code() int {
	return FloorValidationErrorCode
}

func (err *FloorValidation) Severity() Severity {
	return SeverityFatal
}

// Warning is a generic non-fatal error. Throughout the codebase, an error can
// only be a warning if it's of the type defined below
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
