package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/pipeline"
)

func TestRootCommand(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()

	if root.Use != appName {
		t.Errorf("Use = %q, want %q", root.Use, appName)
	}

	want := []string{"simulate", "subgraph", "render", "serve", "watch", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		want   string
	}{
		{"empty output uses input stem", "", "graph.json", "graph"},
		{"empty output with path", "", "data/fleet.json", "data/fleet"},
		{"output with format extension", "out.svg", "graph.json", "out"},
		{"output with unknown extension", "out.bak", "graph.json", "out.bak"},
		{"output without extension", "embedding", "graph.json", "embedding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	got := parseFormats("")
	if len(got) != 1 || got[0] != pipeline.FormatJSON {
		t.Errorf("parseFormats(\"\") = %v, want [json]", got)
	}

	got = parseFormats("svg,png")
	if len(got) != 2 || got[0] != "svg" || got[1] != "png" {
		t.Errorf("parseFormats(\"svg,png\") = %v", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Error("debug message should be filtered at info level")
	}

	logger.Info("visible")
	if buf.Len() == 0 {
		t.Error("info message should be written")
	}
}
