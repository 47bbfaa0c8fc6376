package nrpe

import (
	"bytes"
	"io"
	"net"
	"strings"
	"time"
)

// HandlerFunc produces the result for one received command.
type HandlerFunc func(Command) (*CommandResult, error)

// ServeOne reads a single query from conn, invokes handler and writes
// the response back. It validates the query with the same gates the
// client applies to responses. A handler error is answered with an
// UNKNOWN response carrying the error text, so the peer always gets a
// packet back for a well-formed query.
//
// ServeOne answers exactly one exchange; it is a building block for
// loopback tests and embedded responders, not a full NRPE daemon.
func ServeOne(conn net.Conn, handler HandlerFunc, timeout time.Duration) error {
	if timeout != 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return &ConnectError{Op: "deadline", Err: err}
		}
	}

	buf := make([]byte, packetLength)

	n, err := io.ReadFull(conn, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &MalformedPacketError{Length: n}
	}
	if err != nil {
		return transportError("read", err)
	}

	query, err := parsePacket(buf, queryPacketType)
	if err != nil {
		return err
	}

	statusLine := string(bytes.TrimRight(query.data, "\x00"))
	parts := strings.Split(statusLine, "!")

	result, err := handler(NewCommand(parts[0], parts[1:]...))
	if err != nil {
		result = &CommandResult{
			StatusLine: err.Error(),
			StatusCode: StatusUnknown,
		}
	} else if result == nil {
		result = &CommandResult{StatusCode: StatusUnknown}
	}

	response := buildPacket(responsePacketType, uint16(result.StatusCode), []byte(result.StatusLine))

	l, err := conn.Write(response.all)
	if err != nil {
		return transportError("write", err)
	}

	if l != packetLength {
		return &ConnectError{Op: "write", Err: io.ErrShortWrite}
	}

	return nil
}
