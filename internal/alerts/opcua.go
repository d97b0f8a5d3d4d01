package alerts

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/analytics-supervisor/internal/kapacitor"
)

// OPC-UA client defaults.
const (
	ApplicationURI         = "urn:opcua:python:server"
	DefaultConnectAttempts = 10
	DefaultConnectDelay    = 10 * time.Second
	DefaultUsername        = "admin"

	securityPolicy = "Basic256Sha256"
	securityMode   = "SignAndEncrypt"
)

// OPCUAOptions configures the OPC-UA sink.
type OPCUAOptions struct {
	Endpoint string
	NodeID   string

	// Secure enables Basic256Sha256/SignAndEncrypt with CertFile and
	// KeyFile and username authentication.
	Secure   bool
	CertFile string
	KeyFile  string
	Username string

	ConnectAttempts int
	ConnectDelay    time.Duration
}

// OPCUAOptionsFor derives sink options from the application's alert target.
// In secure mode the daemon's staged server certificate is reused as the
// client certificate.
func OPCUAOptionsFor(alert *config.OPCUAAlert, secure bool, certs config.CertsConfig) OPCUAOptions {
	return OPCUAOptions{
		Endpoint:        alert.Server,
		NodeID:          alert.NodeRef(),
		Secure:          secure,
		CertFile:        filepath.Join(certs.StageDir, kapacitor.ServerCertFile),
		KeyFile:         filepath.Join(certs.StageDir, kapacitor.ServerKeyFile),
		Username:        DefaultUsername,
		ConnectAttempts: DefaultConnectAttempts,
		ConnectDelay:    DefaultConnectDelay,
	}
}

func (o OPCUAOptions) clientOptions() []opcua.Option {
	opts := []opcua.Option{opcua.ApplicationURI(ApplicationURI)}
	if !o.Secure {
		return append(opts, opcua.SecurityMode(ua.MessageSecurityModeNone), opcua.AuthAnonymous())
	}
	return append(opts,
		opcua.SecurityPolicy(securityPolicy),
		opcua.SecurityModeString(securityMode),
		opcua.CertificateFile(o.CertFile),
		opcua.PrivateKeyFile(o.KeyFile),
		opcua.AuthUsername(o.Username, ""),
	)
}

// OPCUASink writes alert messages to a single OPC-UA variable node.
//
// Thread Safety: All methods are safe for concurrent use.
type OPCUASink struct {
	opts   OPCUAOptions
	node   *ua.NodeID
	logger Logger

	mu     sync.RWMutex
	client *opcua.Client
}

// NewOPCUASink validates the node reference. It does not connect.
func NewOPCUASink(opts OPCUAOptions) (*OPCUASink, error) {
	node, err := ua.ParseNodeID(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidNode, opts.NodeID, err)
	}
	if opts.ConnectAttempts < 1 {
		opts.ConnectAttempts = DefaultConnectAttempts
	}
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = DefaultConnectDelay
	}
	return &OPCUASink{opts: opts, node: node, logger: noopLogger{}}, nil
}

// SetLogger sets the logger for connection attempts.
func (s *OPCUASink) SetLogger(logger Logger) {
	s.logger = logger
}

// Connect dials the server, retrying up to ConnectAttempts times spaced by
// ConnectDelay.
func (s *OPCUASink) Connect(ctx context.Context) error {
	attempt := 0
	op := func() error {
		attempt++
		client, err := opcua.NewClient(s.opts.Endpoint, s.opts.clientOptions()...)
		if err != nil {
			s.logger.Warn("opc-ua client setup failed", "attempt", attempt, "error", err)
			return err
		}
		if err := client.Connect(ctx); err != nil {
			s.logger.Warn("opc-ua connection failed", "attempt", attempt, "endpoint", s.opts.Endpoint, "error", err)
			return err
		}

		s.mu.Lock()
		s.client = client
		s.mu.Unlock()
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.ConnectDelay), uint64(s.opts.ConnectAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %d attempts: %w", ErrConnectFailed, attempt, err)
	}

	s.logger.Info("connected to opc-ua server", "endpoint", s.opts.Endpoint, "node", s.opts.NodeID)
	return nil
}

// Connected reports whether Connect has succeeded.
func (s *OPCUASink) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Send writes message as the node's value.
func (s *OPCUASink) Send(ctx context.Context, message string) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}

	req, err := writeRequest(s.node, message)
	if err != nil {
		return err
	}
	resp, err := client.Write(ctx, req)
	if err != nil {
		return fmt.Errorf("writing node %s: %w", s.opts.NodeID, err)
	}
	for _, status := range resp.Results {
		if status != ua.StatusOK {
			return fmt.Errorf("%w: %s", ErrWriteRejected, status)
		}
	}
	return nil
}

// Close disconnects from the server.
func (s *OPCUASink) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close(ctx)
}

func writeRequest(node *ua.NodeID, message string) (*ua.WriteRequest, error) {
	value, err := ua.NewVariant(message)
	if err != nil {
		return nil, fmt.Errorf("encoding alert message: %w", err)
	}
	return &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{{
			NodeID:      node,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask: ua.DataValueValue,
				Value:        value,
			},
		}},
	}, nil
}
