package frame

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/lookout/internal/logregistry"
	"github.com/tinytelemetry/lookout/internal/model"
)

func TestCreateDefaultsToMessages(t *testing.T) {
	f := NewFactory(nil)

	fr, err := f.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if diff := cmp.Diff([]string{ViewMessages}, fr.Views()); diff != "" {
		t.Errorf("views mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUnknownView(t *testing.T) {
	f := NewFactory(nil)

	if _, err := f.Create([]string{"messages", "flamegraph"}); !errors.Is(err, ErrUnknownView) {
		t.Errorf("err = %v, want ErrUnknownView", err)
	}
}

func TestBindOnce(t *testing.T) {
	logs := logregistry.New()
	h, _ := logs.Add("App")
	fr, _ := NewFactory(logs).New([]string{ViewMessages})

	if err := fr.Bind(h); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := fr.Bind(h); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("second Bind err = %v, want ErrAlreadyBound", err)
	}
	if fr.Log() != h {
		t.Errorf("Log() = %v, want %v", fr.Log(), h)
	}
}

func TestBindUnknownLog(t *testing.T) {
	fr, _ := NewFactory(logregistry.New()).New(nil)

	if err := fr.Bind(model.LogHandle{ID: "gone", Name: "gone"}); !errors.Is(err, logregistry.ErrUnknownLog) {
		t.Errorf("err = %v, want ErrUnknownLog", err)
	}
	if !fr.Log().IsZero() {
		t.Errorf("failed bind must leave the frame unbound")
	}
}

func TestRecordsFlowThroughRegistry(t *testing.T) {
	logs := logregistry.New()
	h, _ := logs.Add("App")
	fr, _ := NewFactory(logs).New([]string{ViewMessages, ViewCounts, ViewWarnings})
	if err := fr.Bind(h); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	for _, lvl := range []string{"Info", "WARN", "error", "debug", "INFO"} {
		logs.Accept(h, &model.LogRecord{Level: lvl, Message: lvl})
	}

	s := fr.Snapshot()
	if s.Total != 5 {
		t.Errorf("total = %d, want 5", s.Total)
	}
	if len(s.Messages) != 5 {
		t.Errorf("messages = %d, want 5", len(s.Messages))
	}
	want := map[string]int{"INFO": 2, "WARN": 1, "ERROR": 1, "DEBUG": 1}
	if diff := cmp.Diff(want, s.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if len(s.Warnings) != 2 || s.Warnings[0].Message != "WARN" || s.Warnings[1].Message != "error" {
		t.Errorf("warnings = %+v", s.Warnings)
	}
}

func TestRingKeepsNewest(t *testing.T) {
	fr, _ := NewFactory(nil, Config{Buffer: 3}).New([]string{ViewMessages})

	for i := 0; i < 5; i++ {
		fr.Consume(&model.LogRecord{Message: fmt.Sprint(i)})
	}

	var got []string
	for _, r := range fr.Snapshot().Messages {
		got = append(got, r.Message)
	}
	if diff := cmp.Diff([]string{"2", "3", "4"}, got); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}
