// Package clip copies text to the user's clipboard, falling back to the
// terminal (OSC52) and finally to a temp file.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method represents the mechanism used to make content copyable.
type Method string

const (
	MethodNative Method = "native" // OS clipboard
	MethodOSC52  Method = "osc52"  // Terminal clipboard via OSC52 escape sequence
	MethodFile   Method = "file"   // Temp file fallback
)

// Result reports how the text was made available.
type Result struct {
	Method   Method
	FilePath string // only set when Method == MethodFile
}

// Conservative default; terminals can have strict OSC52 limits.
const osc52LimitBytes = 100_000

// Copier tries each mechanism in order.
type Copier struct {
	// Native writes to the OS clipboard.
	Native func(text string) error
	// Terminal receives OSC52 sequences; it must be a TTY.
	Terminal *os.File
	// TempDir holds the fallback file; empty means os.TempDir.
	TempDir string
	// Getenv reads multiplexer variables.
	Getenv func(string) string

	isTerminal func(fd int) bool
}

// NewCopier returns a copier using the system clipboard and stderr.
func NewCopier() *Copier {
	return &Copier{
		Native:     atotto.WriteAll,
		Terminal:   os.Stderr,
		Getenv:     os.Getenv,
		isTerminal: term.IsTerminal,
	}
}

// WriteAll copies text with the default copier.
func WriteAll(text string) (Result, error) {
	return NewCopier().Copy(text)
}

// Copy makes text available, preferring the OS clipboard.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if c.Native != nil {
		if err := c.Native(text); err == nil {
			return Result{Method: MethodNative}, nil
		}
	}
	if err := c.writeOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if c.Terminal == nil {
		return errors.New("no terminal")
	}
	isTTY := c.isTerminal
	if isTTY == nil {
		isTTY = term.IsTerminal
	}
	if !isTTY(int(c.Terminal.Fd())) {
		return errors.New("output is not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}
	return WriteOSC52(c.Terminal, text, c.getenv)
}

func (c *Copier) getenv(key string) string {
	if c.Getenv == nil {
		return ""
	}
	return c.Getenv(key)
}

// WriteOSC52 writes the OSC52 sequence for text to w, wrapped for tmux or
// screen when getenv reports one.
func WriteOSC52(w io.Writer, text string, getenv func(string) string) error {
	seq := osc52.New(text).Limit(osc52LimitBytes)
	if getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if getenv("STY") != "" {
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(w)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.TempDir, "panel-report-*.txt")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
