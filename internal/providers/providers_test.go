package providers

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/provision"
)

const nlogEvent = `<log4j:event logger="App.Worker" level="WARN" timestamp="1700000000000" thread="7"><log4j:message>disk almost full</log4j:message></log4j:event>`

type collector struct {
	mu   sync.Mutex
	got  []*model.LogRecord
	logs []model.LogHandle
	ch   chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 64)}
}

func (c *collector) Accept(h model.LogHandle, rec *model.LogRecord) {
	c.mu.Lock()
	c.got = append(c.got, rec)
	c.logs = append(c.logs, h)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []*model.LogRecord {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for record %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*model.LogRecord(nil), c.got...)
}

var target = model.LogHandle{ID: "log-1", Name: "App"}

func start(t *testing.T, r *Registry, typ string, s provision.ProviderSettings) provision.Provider {
	t.Helper()
	p, err := r.Create(typ, s)
	if err != nil {
		t.Fatalf("Create(%s): %v", typ, err)
	}
	if err := p.SetTarget(target); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

func local(udp bool) provision.ProviderSettings {
	return provision.ProviderSettings{Host: "127.0.0.1", Port: 0, UDP: udp}
}

func TestRegistryRejectsDuplicatesAndUnknown(t *testing.T) {
	r := NewDefaultRegistry(newCollector())

	err := r.Register(Registration{Type: TypeNLogViewer, Factory: func(provision.ProviderSettings) (provision.Provider, error) { return nil, nil }})
	if err == nil {
		t.Errorf("duplicate registration accepted")
	}

	_, err = r.Create("Nope", provision.ProviderSettings{})
	var unknown *provision.UnknownProviderTypeError
	if !errors.As(err, &unknown) {
		t.Errorf("err = %v, want UnknownProviderTypeError", err)
	}

	var types []string
	for _, reg := range r.Types() {
		types = append(types, reg.Type)
	}
	// Bytewise order: "OTLP" sorts before "OTel".
	want := []string{TypeLog4Net, TypeNLogViewer, TypeOTLP, TypeOTelJSON}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestNLogViewerUDP(t *testing.T) {
	sink := newCollector()
	p := start(t, NewDefaultRegistry(sink), TypeNLogViewer, local(true))

	conn, err := net.Dial("udp", p.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(nlogEvent)); err != nil {
		t.Fatalf("write: %v", err)
	}

	recs := sink.wait(t, 1)
	if recs[0].Message != "disk almost full" || recs[0].Level != "WARN" {
		t.Errorf("record = %+v", recs[0])
	}
	if recs[0].Source != TypeNLogViewer {
		t.Errorf("source = %q", recs[0].Source)
	}
	if sink.logs[0] != target {
		t.Errorf("record delivered to %v, want %v", sink.logs[0], target)
	}
	if p.State() != provision.StateStarted {
		t.Errorf("state = %s", p.State())
	}
}

func TestNLogViewerTCPStream(t *testing.T) {
	sink := newCollector()
	p := start(t, NewDefaultRegistry(sink), TypeNLogViewer, local(false))

	conn, err := net.Dial("tcp", p.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(nlogEvent + nlogEvent)); err != nil {
		t.Fatalf("write: %v", err)
	}

	recs := sink.wait(t, 2)
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2", len(recs))
	}
}

func TestLog4NetRejectsTCPAtStart(t *testing.T) {
	r := NewDefaultRegistry(newCollector())
	p, err := r.Create(TypeLog4Net, local(false))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = p.SetTarget(target)

	if err := p.Start(); !errors.Is(err, ErrUnsupportedTransport) {
		t.Errorf("Start err = %v, want ErrUnsupportedTransport", err)
	}
	p.Stop()
	if p.State() != provision.StateStopped {
		t.Errorf("state = %s, want stopped", p.State())
	}
}

func TestStartRequiresTarget(t *testing.T) {
	p, _ := NewDefaultRegistry(newCollector()).Create(TypeNLogViewer, local(true))

	if err := p.Start(); !errors.Is(err, ErrNoTarget) {
		t.Errorf("err = %v, want ErrNoTarget", err)
	}
}

func TestSetTargetAfterStart(t *testing.T) {
	p := start(t, NewDefaultRegistry(newCollector()), TypeNLogViewer, local(true))

	if err := p.SetTarget(model.LogHandle{ID: "other", Name: "Other"}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("err = %v, want ErrAlreadyStarted", err)
	}
	if p.Target() != target {
		t.Errorf("target changed after start")
	}
}

func TestStartFailsOnBusyPort(t *testing.T) {
	r := NewDefaultRegistry(newCollector())
	first := start(t, r, TypeOTelJSON, local(false))

	_, port, _ := net.SplitHostPort(first.Addr())
	s := local(false)
	s.Port, _ = strconv.Atoi(port)

	second, _ := r.Create(TypeOTelJSON, s)
	_ = second.SetTarget(target)
	if err := second.Start(); err == nil {
		second.Stop()
		t.Fatalf("expected bind failure on %s", first.Addr())
	}
	if second.State() != provision.StateCreated {
		t.Errorf("state = %s, want created", second.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := start(t, NewDefaultRegistry(newCollector()), TypeNLogViewer, local(true))

	p.Stop()
	p.Stop()
	if p.State() != provision.StateStopped {
		t.Errorf("state = %s", p.State())
	}
	if err := p.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("restart err = %v, want ErrStopped", err)
	}
}

func TestOTLPExport(t *testing.T) {
	sink := newCollector()
	p := start(t, NewDefaultRegistry(sink), TypeOTLP, local(false))

	conn, err := grpc.NewClient(p.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = collogspb.NewLogsServiceClient(conn).Export(ctx, &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			ScopeLogs: []*logspb.ScopeLogs{{
				LogRecords: []*logspb.LogRecord{{
					SeverityText: "ERROR",
					Body:         &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "payment failed"}},
				}},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	recs := sink.wait(t, 1)
	if recs[0].Message != "payment failed" || recs[0].Level != "ERROR" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestOTelJSONLines(t *testing.T) {
	sink := newCollector()
	p := start(t, NewDefaultRegistry(sink), TypeOTelJSON, local(false))

	conn, err := net.Dial("tcp", p.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	line := `{"resourceLogs":[{"scopeLogs":[{"logRecords":[{"severityText":"INFO","body":{"stringValue":"hello"}}]}]}]}` + "\n"
	if _, err := conn.Write([]byte("not json\n" + line)); err != nil {
		t.Fatalf("write: %v", err)
	}

	recs := sink.wait(t, 1)
	if recs[0].Message != "hello" {
		t.Errorf("record = %+v", recs[0])
	}
	select {
	case err := <-p.Errors():
		if err == nil {
			t.Errorf("nil decode error")
		}
	case <-time.After(2 * time.Second):
		t.Errorf("decode failure not reported")
	}
}
