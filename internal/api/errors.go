package api

import "errors"

// Kind classifies a client failure so callers can branch without
// string-matching messages.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "auth"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindRequest      Kind = "request"
	KindTimeout      Kind = "timeout"
	KindConnectivity Kind = "connectivity"
	KindNetwork      Kind = "network"
	KindProtocol     Kind = "protocol"
	KindUpload       Kind = "upload"
)

// Error is the single error type surfaced by the client. Retryable is fixed
// at construction; the retry loop never inspects anything else.
type Error struct {
	Kind      Kind
	Message   string
	Status    int // HTTP status when the server answered, 0 otherwise
	Retryable bool
}

func (e *Error) Error() string { return e.Message }

// KindOf reports the Kind of err if it is a client Error, "" otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func validationErr(msg string) *Error {
	// Local pre-flight failures never reach the network, so Retryable is moot;
	// server-side 400s go through httpErr below.
	return &Error{Kind: KindValidation, Message: msg, Retryable: false}
}

func authErr() *Error {
	return &Error{Kind: KindAuth, Status: 401, Message: "Unauthorized. Please login again.", Retryable: false}
}

func timeoutErr() *Error {
	return &Error{Kind: KindTimeout, Message: "Request timeout. Please check your connection and try again.", Retryable: false}
}

func connectivityErr(baseURL string) *Error {
	return &Error{
		Kind:      KindConnectivity,
		Message:   "Cannot connect to the server. Please ensure the backend is running on " + baseURL,
		Retryable: true,
	}
}

func networkErr(msg string) *Error {
	if msg == "" {
		msg = "Network error occurred"
	}
	return &Error{Kind: KindNetwork, Message: msg, Retryable: true}
}

func protocolErr() *Error {
	return &Error{Kind: KindProtocol, Message: "Invalid response from server. Expected JSON format.", Retryable: false}
}

func uploadErr(msg string) *Error {
	if msg == "" {
		msg = "Failed to upload image"
	}
	return &Error{Kind: KindUpload, Message: msg, Retryable: false}
}

// httpErr maps a non-2xx status plus the extracted body message onto the
// taxonomy. 401 is handled before this point.
func httpErr(status int, msg, baseURL string) *Error {
	switch {
	case status == 400:
		return &Error{Kind: KindValidation, Status: status, Message: "Validation Error: " + msg, Retryable: true}
	case status == 404:
		return &Error{Kind: KindNotFound, Status: status, Message: "Resource not found. Please check the server is running.", Retryable: true}
	case status == 500:
		return &Error{Kind: KindServer, Status: status, Message: "Server error: " + msg, Retryable: true}
	case status > 500:
		return &Error{
			Kind:      KindServer,
			Status:    status,
			Message:   "Backend server error. Please ensure the backend is running on " + baseURL,
			Retryable: true,
		}
	default:
		return &Error{Kind: KindRequest, Status: status, Message: msg, Retryable: true}
	}
}
