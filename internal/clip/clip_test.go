package clip

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func failNative(string) error { return errors.New("no clipboard") }

func TestCopy_Native(t *testing.T) {
	var got string
	c := &Copier{Native: func(s string) error { got = s; return nil }}

	res, err := c.Copy("hello")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodNative || got != "hello" {
		t.Errorf("Copy() = %+v, native got %q", res, got)
	}
}

func TestCopy_OSC52(t *testing.T) {
	tty, err := os.CreateTemp(t.TempDir(), "tty")
	if err != nil {
		t.Fatal(err)
	}
	defer tty.Close()

	c := &Copier{
		Native:     failNative,
		Terminal:   tty,
		isTerminal: func(int) bool { return true },
	}
	res, err := c.Copy("hello")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodOSC52 {
		t.Fatalf("Method = %s, want osc52", res.Method)
	}

	data, err := os.ReadFile(tty.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), base64.StdEncoding.EncodeToString([]byte("hello"))) {
		t.Errorf("sequence %q does not carry the payload", data)
	}
}

func TestCopy_FileFallback(t *testing.T) {
	dir := t.TempDir()
	c := &Copier{Native: failNative, TempDir: dir}

	res, err := c.Copy("report body")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodFile {
		t.Fatalf("Method = %s, want file", res.Method)
	}
	if filepath.Dir(res.FilePath) != filepath.Clean(dir) {
		t.Errorf("FilePath = %s, want inside %s", res.FilePath, dir)
	}
	data, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "report body" {
		t.Errorf("file content = %q", data)
	}
}

func TestCopy_NotATerminal(t *testing.T) {
	tty, err := os.CreateTemp(t.TempDir(), "tty")
	if err != nil {
		t.Fatal(err)
	}
	defer tty.Close()

	c := &Copier{
		Native:     failNative,
		Terminal:   tty,
		TempDir:    t.TempDir(),
		isTerminal: func(int) bool { return false },
	}
	res, err := c.Copy("x")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodFile {
		t.Errorf("Method = %s, want file", res.Method)
	}
}

func TestCopy_TooLargeForOSC52(t *testing.T) {
	c := &Copier{
		Native:     failNative,
		Terminal:   os.Stderr,
		TempDir:    t.TempDir(),
		isTerminal: func(int) bool { return true },
	}
	res, err := c.Copy(strings.Repeat("a", osc52LimitBytes+1))
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Method != MethodFile {
		t.Errorf("Method = %s, want file", res.Method)
	}
}

func TestCopy_Empty(t *testing.T) {
	if _, err := (&Copier{}).Copy(""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestWriteOSC52_Multiplexers(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		marker string
	}{
		{"plain", nil, "]52;"},
		{"tmux", map[string]string{"TMUX": "1"}, "tmux;"},
		{"screen", map[string]string{"STY": "1"}, "\x1bP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			getenv := func(k string) string { return tt.env[k] }
			if err := WriteOSC52(&buf, "hi", getenv); err != nil {
				t.Fatalf("WriteOSC52() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.marker) {
				t.Errorf("sequence %q should contain %q", buf.String(), tt.marker)
			}
		})
	}
}
