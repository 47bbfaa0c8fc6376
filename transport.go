package nrpe

import (
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the port the NRPE daemon listens on.
const DefaultPort = 5666

// TLSMode selects how the connection to the daemon is encrypted.
//
// The classic NRPE daemon defaults to anonymous Diffie-Hellman cipher
// suites, which crypto/tls does not implement. TLSInsecure is the
// closest available interop mode: the channel is encrypted but neither
// side is authenticated. It is a legacy compatibility behavior, not a
// secure default; deployments that control both ends should configure
// the daemon for certificates and use TLSVerify.
type TLSMode int

const (
	// TLSInsecure performs a TLS handshake without verifying the
	// server certificate. Default, mirroring check_nrpe's
	// out-of-the-box SSL use.
	TLSInsecure TLSMode = iota

	// TLSDisabled exchanges packets over plain TCP.
	TLSDisabled

	// TLSVerify performs a fully verified handshake using
	// Options.TLSConfig (CA bundle and, if the daemon demands it, a
	// client keypair).
	TLSVerify
)

// Options control a single SendQuery exchange. The zero value dials
// DefaultPort, upgrades to unverified TLS and applies no timeout.
type Options struct {
	Port      uint16
	TLS       TLSMode
	TLSConfig *tls.Config // required for TLSVerify, ignored otherwise
	Timeout   time.Duration
}

// SendQuery dials host, performs exactly one NRPE exchange and returns
// the parsed result. The connection is closed on every path, success
// or failure; there are no retries and no connection reuse. A nil opts
// selects the defaults described on Options.
func SendQuery(command Command, host string, opts *Options) (*CommandResult, error) {
	// Reject oversized commands before touching the network.
	query, err := buildQuery(command)
	if err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}

	address := net.JoinHostPort(host, strconv.Itoa(int(o.Port)))

	conn, err := net.DialTimeout("tcp", address, o.Timeout)
	if err != nil {
		return nil, transportError("dial", err)
	}
	defer func() {
		conn.Close()
	}()

	if o.TLS != TLSDisabled {
		tlsConn, err := upgradeTLS(conn, host, &o)
		if err != nil {
			return nil, err
		}
		conn = tlsConn
	}

	return exchange(conn, query, o.Timeout)
}

// upgradeTLS wraps conn in a client TLS session and completes the
// handshake. The returned conn closes the underlying socket when
// closed; closing the underlying socket directly is also sufficient to
// release the session.
func upgradeTLS(conn net.Conn, host string, o *Options) (net.Conn, error) {
	var config *tls.Config

	switch o.TLS {
	case TLSInsecure:
		config = &tls.Config{InsecureSkipVerify: true}
	case TLSVerify:
		if o.TLSConfig == nil {
			return nil, &TLSError{Err: errors.New("TLSVerify requires Options.TLSConfig")}
		}
		config = o.TLSConfig.Clone()
		if config.ServerName == "" {
			config.ServerName = host
		}
	default:
		return nil, &TLSError{Err: errors.New("unknown TLS mode")}
	}

	tlsConn := tls.Client(conn, config)

	if o.Timeout != 0 {
		if err := tlsConn.SetDeadline(time.Now().Add(o.Timeout)); err != nil {
			return nil, &TLSError{Err: err}
		}
	}

	if err := tlsConn.Handshake(); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &TimeoutError{Op: "handshake", Err: err}
		}
		return nil, &TLSError{Err: err}
	}

	return tlsConn, nil
}
