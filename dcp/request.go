package dcp

import (
	"strconv"
	"time"
)

// bootTime anchors the device-monotonic millisecond counter used to stamp
// outgoing requests, the equivalent of the firmware's millis().
var bootTime = time.Now()

func millis() uint32 {
	return uint32(time.Since(bootTime).Milliseconds())
}

// Request is an outgoing DCP request. Its wire form is
//
//	METHOD RESOURCE
//	SESSION_ID: SESSION_TIMESTAMP
//	CONTENT_LENGTH
//	DATA
//
// SESSION_ID is the session assigned when the device registered with the
// Master; SESSION_TIMESTAMP is the device's monotonic millisecond counter,
// captured when the request is sent rather than when it is created. Together
// they uniquely stamp the exchange, so resending a Request produces what the
// Master treats as a new message.
type Request struct {
	method    Method
	resource  string
	sessionID string

	body string
	sent bool
}

// NewRequest creates a request for the given resource within the session.
func NewRequest(method Method, resource, sessionID string) *Request {
	return &Request{
		method:    method,
		resource:  resource,
		sessionID: sessionID,
	}
}

// Method returns the request method.
func (r *Request) Method() Method { return r.method }

// Path returns the resource this request addresses.
func (r *Request) Path() string { return r.resource }

// SessionID returns the session stamp the request will carry.
func (r *Request) SessionID() string { return r.sessionID }

// Body returns the request body.
func (r *Request) Body() string { return r.body }

// SetBody replaces the request body.
func (r *Request) SetBody(body string) { r.body = body }

// WasSent reports whether Send has been called. Check it before resending;
// only resend when absolutely necessary.
func (r *Request) WasSent() bool { return r.sent }

// Send writes the request to the stream in one pass, flushes, and hands the
// same stream to the response parser. The waiter is used by the parser to
// cede the CPU while the Master's reply trickles in.
func (r *Request) Send(stream ByteStream, waiter Waiter) *Response {
	stream.Write([]byte(r.method.String()))
	stream.Write([]byte{' '})
	stream.Write([]byte(r.resource))
	stream.Write([]byte{'\n'})

	stream.Write([]byte(r.sessionID))
	stream.Write([]byte(": "))
	stream.Write([]byte(strconv.FormatUint(uint64(millis()), 10)))
	stream.Write([]byte{'\n'})

	stream.Write([]byte(strconv.Itoa(len(r.body))))
	stream.Write([]byte{'\n'})

	stream.Write([]byte(r.body))

	r.sent = true

	stream.Flush()

	return ParseResponse(stream, waiter)
}
