package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net"

	utls "github.com/refraction-networking/utls"
)

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// fingerprint is the browser identity a client presents for its whole
// lifetime: a User-Agent for one OS and browser, and the TLS ClientHello that
// browser sends.
type fingerprint struct {
	os        string
	browser   string
	userAgent string
	hello     utls.ClientHelloID
}

type agent struct {
	browser   string
	userAgent string
}

var userAgents = map[string][]agent{
	"macos": {
		{"chrome", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"},
		{"safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.6 Safari/605.1.15"},
		{"firefox", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.7; rv:143.0) Gecko/20100101 Firefox/143.0"},
	},
	"linux": {
		{"chrome", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"},
		{"firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:143.0) Gecko/20100101 Firefox/143.0"},
		{"firefox", "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:142.0) Gecko/20100101 Firefox/142.0"},
	},
	"windows": {
		{"chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"},
		{"chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36 Edg/140.0.0.0"},
		{"firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:143.0) Gecko/20100101 Firefox/143.0"},
	},
}

var operatingSystems = []string{"macos", "linux", "windows"}

// Edge is Chromium and sends the Chrome hello.
var helloIDs = map[string]utls.ClientHelloID{
	"chrome":  utls.HelloChrome_Auto,
	"firefox": utls.HelloFirefox_Auto,
	"safari":  utls.HelloSafari_Auto,
}

func randomFingerprint() fingerprint {
	os := operatingSystems[rand.IntN(len(operatingSystems))]
	agents := userAgents[os]
	return newFingerprint(os, agents[rand.IntN(len(agents))])
}

func newFingerprint(os string, a agent) fingerprint {
	return fingerprint{
		os:        os,
		browser:   a.browser,
		userAgent: a.userAgent,
		hello:     helloIDs[a.browser],
	}
}

// tlsConfig is used only for HTTPS through an HTTP proxy, where the transport
// runs the handshake itself after CONNECT.
func (f fingerprint) tlsConfig(insecure bool) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure,
	}
}

// spec returns the browser's ClientHello with ALPN limited to http/1.1. The
// transport cannot speak h2 over a uTLS connection.
func (f fingerprint) spec() (utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(f.hello)
	if err != nil {
		return spec, fmt.Errorf("failed to build %s hello: %w", f.hello.Str(), err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, nil
}

// dialTLS dials with dial and runs the handshake with the browser hello.
func (f fingerprint) dialTLS(dial dialFunc, insecure bool) dialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to split address %q: %w", addr, err)
		}
		spec, err := f.spec()
		if err != nil {
			return nil, err
		}

		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		uconn := utls.UClient(conn, &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: insecure,
		}, utls.HelloCustom)
		if err := uconn.ApplyPreset(&spec); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %s hello: %w", f.hello.Str(), err)
		}
		if err := uconn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to complete TLS handshake: %w", err)
		}
		return uconn, nil
	}
}
