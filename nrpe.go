// Package nrpe implements the client side of the NRPE v2 protocol as
// spoken by the Nagios Remote Plugin Executor daemon: fixed 1036-byte
// packets over TCP, optionally TLS-wrapped, one query and one response
// per connection.
//
// SendQuery is the high level entry point; it dials, exchanges exactly
// one packet pair and closes the connection. Run performs the same
// exchange over a caller-provided net.Conn. Every failure is returned
// as a distinct error type, never retried or logged.
package nrpe

import (
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

// CommandStatus is the Nagios result code carried by a response packet
// and conventionally used as the plugin process exit code.
type CommandStatus int16

const (
	StatusOK CommandStatus = iota
	StatusWarning
	StatusCritical
	StatusUnknown
)

// Command represents an NRPE command with optional arguments.
type Command struct {
	Name string
	Args []string
}

// NewCommand creates a Command for name with the given arguments.
func NewCommand(name string, args ...string) Command {
	return Command{
		Name: name,
		Args: args,
	}
}

// toStatusLine joins name and arguments into the wire form the daemon
// expects, separated by '!'.
func (c Command) toStatusLine() string {
	if len(c.Args) == 0 {
		return c.Name
	}

	return c.Name + "!" + strings.Join(c.Args, "!")
}

// CommandResult holds the outcome of one NRPE exchange.
type CommandResult struct {
	StatusLine string
	StatusCode CommandStatus
}

// Run performs exactly one query/response exchange over conn. A
// non-zero timeout bounds both the write and the read. conn is left
// open; whoever dialed it stays responsible for closing it.
func Run(conn net.Conn, command Command, timeout time.Duration) (*CommandResult, error) {
	query, err := buildQuery(command)
	if err != nil {
		return nil, err
	}

	return exchange(conn, query, timeout)
}

// exchange writes one sealed query packet and reads one response.
func exchange(conn net.Conn, query *packet, timeout time.Duration) (*CommandResult, error) {
	var err error

	if timeout != 0 {
		if err = conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, &ConnectError{Op: "deadline", Err: err}
		}
	}

	l, err := conn.Write(query.all)
	if err != nil {
		return nil, transportError("write", err)
	}

	if l != packetLength {
		return nil, &ConnectError{Op: "write", Err: io.ErrShortWrite}
	}

	response := make([]byte, packetLength)

	n, err := io.ReadFull(conn, response)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// A short response is a framing error; let the codec's
		// length gate report it.
		return parseResponse(response[:n])
	}
	if err != nil {
		return nil, transportError("read", err)
	}

	return parseResponse(response)
}

// transportError classifies a socket failure: deadline overruns become
// TimeoutError, everything else ConnectError.
func transportError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}

	return &ConnectError{Op: op, Err: err}
}
