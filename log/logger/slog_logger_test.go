package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hatlonely/configster/log/writer"
	"github.com/hatlonely/configster/ref"
)

func init() {
	ref.MustRegisterT[*writer.FileWriter](writer.NewFileWriterWithOptions)
	ref.MustRegisterT[*writer.ConsoleWriter](writer.NewConsoleWriterWithOptions)
}

func TestNewSLogWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *SLogOptions
		wantErr bool
	}{
		{
			name:    "nil options",
			options: nil,
			wantErr: true,
		},
		{
			name:    "default console output",
			options: &SLogOptions{Level: "info"},
			wantErr: false,
		},
		{
			name: "console output with options",
			options: &SLogOptions{
				Level:  "debug",
				Format: "json",
				Output: &ref.TypeOptions{
					Namespace: "github.com/hatlonely/configster/log/writer",
					Type:      "ConsoleWriter",
					Options:   &writer.ConsoleWriterOptions{Target: "stdout"},
				},
			},
			wantErr: false,
		},
		{
			name:    "invalid level",
			options: &SLogOptions{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			options: &SLogOptions{Level: "info", Format: "invalid"},
			wantErr: true,
		},
		{
			name: "unknown writer",
			options: &SLogOptions{
				Output: &ref.TypeOptions{Namespace: "unknown", Type: "Writer"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewSLogWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSLogWithOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && l == nil {
				t.Fatal("NewSLogWithOptions() returned nil logger")
			}
		})
	}
}

func TestSLogFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "configster.log")

	l, err := NewSLogWithOptions(&SLogOptions{
		Level:  "debug",
		Format: "json",
		Output: &ref.TypeOptions{
			Namespace: "github.com/hatlonely/configster/log/writer",
			Type:      "FileWriter",
			Options:   &writer.FileWriterOptions{Path: path},
		},
		Fields: map[string]any{"service": "configster"},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}

	l.WithGroup("parser").With("path", "app.conf").Debug("line skipped", "lineNumber", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	for _, want := range []string{`"msg":"line skipped"`, `"service":"configster"`, `"parser":{`, `"lineNumber":3`} {
		if !strings.Contains(content, want) {
			t.Errorf("log output %q does not contain %q", content, want)
		}
	}
}

func TestSLogLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSLog(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info message should be filtered, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
