package nrpe

import (
	"errors"
	"fmt"
)

// MalformedPacketError reports a received buffer that does not fit the
// fixed 1036-byte packet layout.
type MalformedPacketError struct {
	Length int
}

func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("nrpe: Malformed packet: got %d bytes, expected %d", e.Length, packetLength)
}

// VersionMismatchError reports a packet whose protocol version is not
// the supported version 2.
type VersionMismatchError struct {
	Expected int16
	Actual   int16
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("nrpe: Unsupported packet version, got: %d, expected: %d", e.Actual, e.Expected)
}

// UnexpectedPacketTypeError reports a packet of the wrong type, e.g. a
// query where a response was expected.
type UnexpectedPacketTypeError struct {
	Expected int16
	Actual   int16
}

func (e *UnexpectedPacketTypeError) Error() string {
	return fmt.Sprintf("nrpe: Unexpected packet type, got: %d, expected: %d", e.Actual, e.Expected)
}

// ChecksumMismatchError reports a packet whose declared crc32 does not
// match the checksum recomputed over its contents. Expected is the
// recomputed value, Actual the one carried by the packet.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("nrpe: Response crc didn't match, got: %#08x, expected: %#08x", e.Actual, e.Expected)
}

// CommandTooLongError reports a command line that cannot fit the fixed
// 1024-byte data field together with its trailing null.
type CommandTooLongError struct {
	Length int
	Max    int
}

func (e *CommandTooLongError) Error() string {
	return fmt.Sprintf("nrpe: Command is too long: got %d, max allowed %d", e.Length, e.Max)
}

// ConnectError wraps a non-timeout socket failure. Op names the failing
// operation: dial, write, read or deadline.
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("nrpe: Error during %s: %v", e.Op, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TLSError wraps a failure to establish or configure the TLS session.
type TLSError struct {
	Err error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("nrpe: TLS error: %v", e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// TimeoutError reports a blocking step that exceeded the configured
// timeout. Op names the step: dial, handshake, write or read.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("nrpe: Timeout during %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout checks whether an error chain contains a TimeoutError.
func IsTimeout(err error) bool {
	var timeoutError *TimeoutError
	return errors.As(err, &timeoutError)
}
