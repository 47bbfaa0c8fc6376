package nrpe

import (
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConn lets individual tests inject Read/Write behavior without a
// real peer.
type testConn struct {
	net.Conn
	read  func([]byte) (n int, err error)
	write func([]byte) (n int, err error)
}

func (c testConn) Read(b []byte) (n int, err error) {
	if c.read != nil {
		return c.read(b)
	}
	return c.Conn.Read(b)
}

func (c testConn) Write(b []byte) (n int, err error) {
	if c.write != nil {
		return c.write(b)
	}
	return c.Conn.Write(b)
}

func newTestConn(t *testing.T) *testConn {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return &testConn{Conn: client}
}

func TestClientWriteError(t *testing.T) {
	conn := newTestConn(t)

	conn.write = func(b []byte) (n int, err error) {
		return -1, fmt.Errorf("you shall not pass")
	}

	_, err := Run(conn, NewCommand("check_bla", "1", "2"), 0)

	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "write", connErr.Op)
	assert.EqualError(t, connErr.Err, "you shall not pass")
}

func TestClientShortWrite(t *testing.T) {
	conn := newTestConn(t)

	conn.write = func(b []byte) (n int, err error) {
		return len(b) / 2, nil
	}

	_, err := Run(conn, NewCommand("check_bla"), 0)

	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "write", connErr.Op)
}

func TestClientReadError(t *testing.T) {
	conn := newTestConn(t)

	conn.write = func(b []byte) (n int, err error) {
		return len(b), nil
	}
	conn.read = func(b []byte) (n int, err error) {
		return -1, fmt.Errorf("you shall not pass")
	}

	_, err := Run(conn, NewCommand("check_bla", "1", "2"), 0)

	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "read", connErr.Op)
}

// respondWith makes the injected conn accept the query and feed back
// the given packet bytes.
func respondWith(conn *testConn, response []byte) {
	conn.write = func(b []byte) (n int, err error) {
		return len(b), nil
	}

	served := response
	conn.read = func(b []byte) (n int, err error) {
		n = copy(b, served)
		served = served[n:]
		return n, nil
	}
}

func TestClientVerifyTypeError(t *testing.T) {
	conn := newTestConn(t)

	// A query packet echoed back is the wrong type for a response.
	respondWith(conn, buildPacket(queryPacketType, 0, []byte("test")).all)

	_, err := Run(conn, NewCommand("check_bla", "1", "2"), 0)

	var unexpected *UnexpectedPacketTypeError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, int16(queryPacketType), unexpected.Actual)
}

func TestClientVerifyCrcError(t *testing.T) {
	conn := newTestConn(t)

	p := buildPacket(responsePacketType, 0, []byte("test"))
	p.crc32[0] ^= 0xFF

	respondWith(conn, p.all)

	_, err := Run(conn, NewCommand("check_bla", "1", "2"), 0)

	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestClientVerifyVersionError(t *testing.T) {
	conn := newTestConn(t)

	p := buildPacket(responsePacketType, 0, []byte("test"))
	be.PutUint16(p.version, 1)
	be.PutUint32(p.crc32, 0)
	be.PutUint32(p.crc32, crc32sum(p.all))

	respondWith(conn, p.all)

	_, err := Run(conn, NewCommand("check_bla"), 0)

	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int16(1), mismatch.Actual)
}

func TestClientShortResponse(t *testing.T) {
	conn := newTestConn(t)

	// Half a packet followed by EOF must surface as a framing error.
	p := buildPacket(responsePacketType, 0, []byte("test"))
	respondWith(conn, p.all[:packetLength/2])

	served := false
	inner := conn.read
	conn.read = func(b []byte) (n int, err error) {
		if served {
			return 0, io.EOF
		}
		served = true
		n, _ = inner(b)
		return n, nil
	}

	_, err := Run(conn, NewCommand("check_bla"), 0)

	var malformed *MalformedPacketError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, packetLength/2, malformed.Length)
}

func TestClientLongStatusLineError(t *testing.T) {
	conn := newTestConn(t)

	_, err := Run(conn, NewCommand(strings.Repeat("a", 2048)), 0)

	var tooLong *CommandTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.EqualError(t, err, "nrpe: Command is too long: got 2048, max allowed 1023")
}

func TestClientSuccess(t *testing.T) {
	conn := newTestConn(t)

	respondWith(conn, buildPacket(responsePacketType, 1, []byte("WARNING - bla")).all)

	result, err := Run(conn, NewCommand("check_bla", "1", "2"), time.Second)
	require.NoError(t, err)

	assert.Equal(t, StatusWarning, result.StatusCode)
	assert.Equal(t, "WARNING - bla", result.StatusLine)
}
