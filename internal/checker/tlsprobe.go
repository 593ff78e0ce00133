package checker

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"
)

// probeTLS completes a verifying TLS handshake on the given port and
// captures the negotiated protocol, cipher suite and certificate lifetime.
// Handshake failures are captured as an error string, not propagated.
func probeTLS(ctx context.Context, host string, port int, timeout time.Duration) TLSResult {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    &tls.Config{ServerName: host},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return TLSResult{Err: err.Error()}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()

	result := TLSResult{
		Version: tls.VersionName(state.Version),
		Cipher:  tls.CipherSuiteName(state.CipherSuite),
	}

	if len(state.PeerCertificates) > 0 {
		notAfter := state.PeerCertificates[0].NotAfter
		result.ExpiresDays = int(time.Until(notAfter).Hours() / 24)
		result.HasExpiry = true
	}

	return result
}
