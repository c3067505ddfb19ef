// Package tallochttp provides uniform creation and configuration of the HTTP
// types used to talk to the talloc API.
package tallochttp

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

type clientOpts struct {
	timeout  time.Duration
	tlsConf  *tls.Config
	noFollow bool
}

// ClientOpt is the type for the client-specific options.
type ClientOpt func(o *clientOpts)

// WithTimeout sets the timeout to use for the HTTP client. Zero means no
// timeout.
func WithTimeout(t time.Duration) ClientOpt {
	return func(o *clientOpts) {
		o.timeout = t
	}
}

// WithTLSClientConfig provides the TLS configuration to use for the HTTP
// client's transport.
func WithTLSClientConfig(conf *tls.Config) ClientOpt {
	return func(o *clientOpts) {
		o.tlsConf = conf.Clone()
	}
}

// WithFollowRedir configures the HTTP client to follow redirections or not,
// based on the follow value.
func WithFollowRedir(follow bool) ClientOpt {
	return func(o *clientOpts) {
		o.noFollow = !follow
	}
}

// NewClient returns an HTTP client configured according to the provided
// options.
func NewClient(opts ...ClientOpt) *http.Client {
	var co clientOpts
	for _, opt := range opts {
		opt(&co)
	}

	cli := &http.Client{
		Timeout: co.timeout,
	}
	if co.noFollow {
		cli.CheckRedirect = noFollowRedirect
	}
	if co.tlsConf != nil {
		cli.Transport = NewTransport(WithTLSConfig(co.tlsConf))
	}
	return cli
}

type transportOpts struct {
	tlsConf *tls.Config
}

// TransportOpt is the type for transport-specific options.
type TransportOpt func(o *transportOpts)

// WithTLSConfig sets the TLS configuration of the transport. A nil config
// keeps the default.
func WithTLSConfig(conf *tls.Config) TransportOpt {
	return func(o *transportOpts) {
		if conf != nil {
			o.tlsConf = conf.Clone()
		}
	}
}

// NewTransport creates an http transport derived from Go's
// http.DefaultTransport, overriding only what the options ask for.
func NewTransport(opts ...TransportOpt) *http.Transport {
	var to transportOpts
	for _, opt := range opts {
		opt(&to)
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if to.tlsConf != nil {
		tr.TLSClientConfig = to.tlsConf
	}
	return tr
}

// TLSConfig builds the client TLS configuration for a context. It returns nil
// when neither option is set so the transport keeps its defaults.
func TLSConfig(skipVerify bool, rootCA string) (*tls.Config, error) {
	if !skipVerify && rootCA == "" {
		return nil, nil
	}

	var pool *x509.CertPool
	if rootCA != "" {
		certs, err := os.ReadFile(rootCA)
		if err != nil {
			return nil, fmt.Errorf("reading root CA: %w", err)
		}
		pool = x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(certs); !ok {
			return nil, errors.New("failed to add certificates to root CA pool")
		}
	}

	return &tls.Config{
		InsecureSkipVerify: skipVerify, //nolint:gosec
		RootCAs:            pool,
	}, nil
}

func noFollowRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}
