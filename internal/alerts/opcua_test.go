package alerts

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

func TestOPCUAOptionsFor(t *testing.T) {
	alert := &config.OPCUAAlert{Server: "opc.tcp://plc:4840", NamespaceIndex: 3, NodeID: 1001}
	certs := config.CertsConfig{StageDir: "/tmp/stage"}

	opts := OPCUAOptionsFor(alert, true, certs)

	if opts.Endpoint != "opc.tcp://plc:4840" {
		t.Errorf("Endpoint = %q", opts.Endpoint)
	}
	if opts.NodeID != "ns=3;i=1001" {
		t.Errorf("NodeID = %q, want ns=3;i=1001", opts.NodeID)
	}
	if !opts.Secure {
		t.Error("Secure = false, want true")
	}
	if opts.CertFile != filepath.Join("/tmp/stage", "kapacitor_server_certificate.pem") {
		t.Errorf("CertFile = %q", opts.CertFile)
	}
	if opts.KeyFile != filepath.Join("/tmp/stage", "kapacitor_server_key.pem") {
		t.Errorf("KeyFile = %q", opts.KeyFile)
	}
	if opts.Username != "admin" {
		t.Errorf("Username = %q, want admin", opts.Username)
	}
	if opts.ConnectAttempts != 10 || opts.ConnectDelay != 10*time.Second {
		t.Errorf("retry = %d x %v, want 10 x 10s", opts.ConnectAttempts, opts.ConnectDelay)
	}
}

func TestNewOPCUASink(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  string
		wantErr bool
	}{
		{name: "numeric node", nodeID: "ns=2;i=5"},
		{name: "namespace zero", nodeID: "ns=0;i=85"},
		{name: "garbage", nodeID: "not-a-node", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := NewOPCUASink(OPCUAOptions{Endpoint: "opc.tcp://x:4840", NodeID: tt.nodeID})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidNode) {
					t.Errorf("error = %v, want ErrInvalidNode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOPCUASink() error: %v", err)
			}
			if sink.opts.ConnectAttempts != DefaultConnectAttempts {
				t.Errorf("ConnectAttempts = %d, want default", sink.opts.ConnectAttempts)
			}
			if sink.Connected() {
				t.Error("Connected() = true before Connect")
			}
		})
	}
}

func TestOPCUASink_SendBeforeConnect(t *testing.T) {
	sink, err := NewOPCUASink(OPCUAOptions{Endpoint: "opc.tcp://x:4840", NodeID: "ns=2;i=5"})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Send(context.Background(), "hello"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Errorf("Close() on unconnected sink error = %v", err)
	}
}

func TestOPCUASink_ConnectExhaustsAttempts(t *testing.T) {
	// Reserve a port and release it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	sink, err := NewOPCUASink(OPCUAOptions{
		Endpoint:        "opc.tcp://" + addr,
		NodeID:          "ns=2;i=5",
		ConnectAttempts: 3,
		ConnectDelay:    10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = sink.Connect(ctx)
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectFailed", err)
	}
	if sink.Connected() {
		t.Error("Connected() = true after failed Connect")
	}
}

func TestOPCUASink_ConnectCancelled(t *testing.T) {
	sink, err := NewOPCUASink(OPCUAOptions{
		Endpoint:        "opc.tcp://127.0.0.1:1",
		NodeID:          "ns=2;i=5",
		ConnectAttempts: 10,
		ConnectDelay:    time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
}

func TestWriteRequest(t *testing.T) {
	node := ua.NewNumericNodeID(3, 1001)

	req, err := writeRequest(node, "overheat")
	if err != nil {
		t.Fatalf("writeRequest() error: %v", err)
	}
	if len(req.NodesToWrite) != 1 {
		t.Fatalf("NodesToWrite = %d, want 1", len(req.NodesToWrite))
	}
	wv := req.NodesToWrite[0]
	if wv.NodeID.String() != "ns=3;i=1001" {
		t.Errorf("NodeID = %s", wv.NodeID)
	}
	if wv.AttributeID != ua.AttributeIDValue {
		t.Errorf("AttributeID = %v, want Value", wv.AttributeID)
	}
	if wv.Value.EncodingMask&ua.DataValueValue == 0 {
		t.Error("DataValue has no value bit")
	}
	if got, ok := wv.Value.Value.Value().(string); !ok || got != "overheat" {
		t.Errorf("variant = %v, want overheat", wv.Value.Value.Value())
	}
}

func TestClientOptions(t *testing.T) {
	insecure := OPCUAOptions{}.clientOptions()
	if len(insecure) != 3 {
		t.Errorf("insecure options = %d, want 3", len(insecure))
	}
	secure := OPCUAOptions{Secure: true, CertFile: "c", KeyFile: "k", Username: "admin"}.clientOptions()
	if len(secure) != 6 {
		t.Errorf("secure options = %d, want 6", len(secure))
	}
}
