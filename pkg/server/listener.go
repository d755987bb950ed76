package server

import (
	"crypto/tls"
	"fmt"
	"net"

	"hostmon/pkg/config"
)

// newListener opens the plaintext or TLS listener selected by cfg.
func newListener(cfg *config.Config) (net.Listener, error) {
	var tlsConfig *tls.Config
	if cfg.TLSEnabled() {
		var err error
		tlsConfig, err = loadTLSConfig(cfg.Certificate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrListenerStartup, err)
		}
	}

	listener, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListenerStartup, err)
	}

	if tlsConfig != nil {
		return tls.NewListener(listener, tlsConfig), nil
	}
	return listener, nil
}

func loadTLSConfig(cert *config.Certificate) (*tls.Config, error) {
	pair, err := tls.LoadX509KeyPair(cert.PublicPath, cert.PrivatePath)
	if err != nil {
		return nil, fmt.Errorf("loading certificate %q and key %q: %w", cert.PublicPath, cert.PrivatePath, err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}, nil
}
