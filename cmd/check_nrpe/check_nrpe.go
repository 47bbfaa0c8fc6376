/*

check_nrpe is a command line NRPE client.

Calls the remote nrpe server and returns the response and status code.
In case of connectivity or protocol issues the error is written into
Stderr and the status code is 3 (UNKNOWN).

Usage:
	check_nrpe [options] [--] [arglist]

The flags are:
	-command string
		command to execute (default "version")
	-host string
		hostname to connect (default "127.0.0.1")
	-port int
		port number (default 5666)
	-ssl
		use ssl (default true)
	-ca string
		CA bundle for a verified TLS handshake
	-cert string
		client certificate for a verified TLS handshake
	-key string
		client key for a verified TLS handshake
	-timeout duration
		network timeout
	-config string
		YAML file with defaults for the flags above
	-verbose
		debug logging on stderr

Without -ca/-cert/-key the TLS handshake is unverified, matching the
certificate-less setup of classic NRPE deployments.

*/
package main

import (
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	nrpe "github.com/innogames/igmonplugins-sub000"
)

func main() {
	var cmd, host, configPath string
	var caFile, certFile, keyFile string
	var port int
	var useSSL, verbose bool
	var timeout time.Duration

	cmdFlag := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	cmdFlag.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"Usage of %s: [options] [--] [arglist]\nOptions:\n", os.Args[0])
		cmdFlag.PrintDefaults()
	}

	cmdFlag.StringVar(&host, "host", "127.0.0.1", "hostname to connect")
	cmdFlag.IntVar(&port, "port", nrpe.DefaultPort, "port number")
	cmdFlag.BoolVar(&useSSL, "ssl", true, "use ssl")
	cmdFlag.StringVar(&cmd, "command", "version", "command to execute")
	cmdFlag.DurationVar(&timeout, "timeout", 0, "network timeout")
	cmdFlag.StringVar(&caFile, "ca", "", "CA bundle for a verified TLS handshake")
	cmdFlag.StringVar(&certFile, "cert", "", "client certificate for a verified TLS handshake")
	cmdFlag.StringVar(&keyFile, "key", "", "client key for a verified TLS handshake")
	cmdFlag.StringVar(&configPath, "config", "", "YAML file with flag defaults")
	cmdFlag.BoolVar(&verbose, "verbose", false, "debug logging on stderr")

	cmdFlag.Parse(os.Args[1:])

	set := make(map[string]bool)
	cmdFlag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(int(nrpe.StatusUnknown))
		}

		if !set["host"] && cfg.Host != "" {
			host = cfg.Host
		}
		if !set["port"] && cfg.Port != 0 {
			port = cfg.Port
		}
		if !set["ssl"] && cfg.SSL != nil {
			useSSL = *cfg.SSL
		}
		if !set["timeout"] {
			timeout, _ = cfg.timeout()
		}
		if !set["ca"] && cfg.CAFile != "" {
			caFile = cfg.CAFile
		}
		if !set["cert"] && cfg.CertFile != "" {
			certFile = cfg.CertFile
		}
		if !set["key"] && cfg.KeyFile != "" {
			keyFile = cfg.KeyFile
		}
	}

	logOutput := io.Discard
	if verbose {
		logOutput = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	opts := &nrpe.Options{
		Port:    uint16(port),
		Timeout: timeout,
	}

	switch {
	case !useSSL:
		opts.TLS = nrpe.TLSDisabled
	case caFile != "" || certFile != "":
		tlsConfig, err := buildTLSConfig(caFile, certFile, keyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(int(nrpe.StatusUnknown))
		}
		opts.TLS = nrpe.TLSVerify
		opts.TLSConfig = tlsConfig
	default:
		opts.TLS = nrpe.TLSInsecure
	}

	command := nrpe.NewCommand(cmd, cmdFlag.Args()...)

	logger.Debug("sending query",
		"host", host, "port", port, "ssl", useSSL, "command", command.Name)

	start := time.Now()

	result, err := nrpe.SendQuery(command, host, opts)

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(int(nrpe.StatusUnknown))
	}

	logger.Debug("received response",
		"status", int(result.StatusCode), "elapsed", time.Since(start))

	fmt.Printf("%s\n", result.StatusLine)
	os.Exit(int(result.StatusCode))
}

// buildTLSConfig assembles the tls.Config for a verified handshake
// from a CA bundle and an optional client keypair.
func buildTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	config := &tls.Config{}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle %s: %w", caFile, err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caFile)
		}

		config.RootCAs = pool
	}

	if certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client keypair: %w", err)
		}

		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}
