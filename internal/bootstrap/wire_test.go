package bootstrap

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")

	services, err := Build(Options{
		Sink:     noopEventSink{},
		Output:   noopOutput{},
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Logging.Close()

	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Analysis == nil {
		t.Fatalf("expected analysis scheduler")
	}
	if services.FileGen == nil {
		t.Fatalf("expected file generator")
	}
	if services.Config.Gemini.APIKey != "test-key" {
		t.Fatalf("expected env credential, got %q", services.Config.Gemini.APIKey)
	}
}

func TestBuildFailsWithoutCredential(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Build(Options{
		Sink:     noopEventSink{},
		Output:   noopOutput{},
		Registry: prometheus.NewRegistry(),
	})
	if err == nil {
		t.Fatalf("expected build error without an API key")
	}
}

type noopEventSink struct{}

func (noopEventSink) ConnStateChanged(_ domain.ConnState, _ string) {}
func (noopEventSink) TranscriptUpdated(_ domain.TranscriptSegment)  {}
func (noopEventSink) AnalysisAdded(_ domain.AnalysisRecord)         {}
func (noopEventSink) InputLevel(_ float64)                          {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)     {}

type noopOutput struct{}

func (noopOutput) Now() float64                       { return 0 }
func (noopOutput) Schedule(_ codec.Buffer, _ float64) {}
func (noopOutput) Close() error                       { return nil }
