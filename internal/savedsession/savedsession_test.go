package savedsession

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/lookout/internal/provision"
)

var sample = []provision.WizardDescription{
	{
		Name:  "App",
		Views: []string{"messages", "counts"},
		Providers: []provision.ProviderSpec{
			{Type: provision.ProviderNLogViewer, Settings: provision.ProviderSettings{UDP: true, Port: 9000}},
			{Type: "OTLPProvider", Settings: provision.ProviderSettings{Host: "127.0.0.1", Port: 4317}},
		},
	},
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	if err := Save(path, sample); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(sample, got); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil || len(got) != 0 {
		t.Errorf("Load = %v, %v", got, err)
	}
}

func TestLoadHandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	doc := `sessions:
  - name: nlog listening on udp port 9000
    views: [messages]
    providers:
      - type: NLogViewerProvider
        settings:
          port: 9000
          udp: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Providers[0].Settings.Port != 9000 || !got[0].Providers[0].Settings.UDP {
		t.Errorf("sessions = %+v", got)
	}
}

func TestRecorderSkipsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	r, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	p := &provision.Pipeline{Description: sample[0]}
	if err := r.Record(p); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Record(p); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reloaded, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Saved()) != 1 {
		t.Errorf("saved = %d, want 1", len(reloaded.Saved()))
	}
}
