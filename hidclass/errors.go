package hidclass

import "errors"

// Runtime errors. ErrWouldBlock is always retryable on a later poll or tick;
// the remaining request errors reject the host request, which the bus driver
// surfaces as a protocol STALL. None of them are fatal: the class keeps
// operating after any malformed host request.
var (
	// ErrWouldBlock means the operation cannot complete now (empty buffer,
	// busy endpoint). State is left unchanged.
	ErrWouldBlock = errors.New("hid: operation would block")

	// ErrUnsupportedReportID means a control request referenced a report ID
	// the interface does not declare.
	ErrUnsupportedReportID = errors.New("hid: unsupported report id")

	// ErrInvalidProtocol means SET_PROTOCOL was received by an interface
	// that does not declare boot compatibility, or carried an unknown
	// protocol value.
	ErrInvalidProtocol = errors.New("hid: invalid protocol request")

	// ErrUnknownInterface means a control request addressed an interface
	// number no registered interface owns.
	ErrUnknownInterface = errors.New("hid: unknown interface number")

	// ErrNotHandled means the request is not a HID class concern and the
	// bus driver should process it itself or stall.
	ErrNotHandled = errors.New("hid: request not handled")

	// ErrReportTooLong means a report exceeds the declared size for its ID.
	ErrReportTooLong = errors.New("hid: report too long")
)

// Builder configuration errors, reported at construction time.
var (
	ErrNoInterfaces      = errors.New("hid: no interfaces defined")
	ErrTooManyInterfaces = errors.New("hid: too many interfaces")
	ErrValueOverflow     = errors.New("hid: value out of range")
)
