// Package sysboard implements clipboard access using platform commands.
// On macOS it uses pbcopy/pbpaste; on Linux it prefers the Wayland tools
// wl-copy/wl-paste and falls back to xclip, then xsel.
package sysboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/clipd/clipd/internal/clipboard"
)

// SystemClipboard implements clipboard.Clipboard using system commands
type SystemClipboard struct{}

// New creates a new SystemClipboard instance
func New() *SystemClipboard {
	return &SystemClipboard{}
}

// IsSupported returns true if clipboard operations are supported on this
// system
func (s *SystemClipboard) IsSupported() bool {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("pbcopy"); err != nil {
			return false
		}
		if _, err := exec.LookPath("pbpaste"); err != nil {
			return false
		}
		return true
	case "linux":
		for _, tool := range []string{"wl-paste", "xclip", "xsel"} {
			if _, err := exec.LookPath(tool); err == nil {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Read implements clipboard.Clipboard.Read
func (s *SystemClipboard) Read() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return readWithCommand("pbpaste")
	case "linux":
		return readLinux(false)
	default:
		return "", fmt.Errorf("%w: %s", clipboard.ErrUnsupported, runtime.GOOS)
	}
}

// ReadPrimary implements clipboard.Clipboard.ReadPrimary
func (s *SystemClipboard) ReadPrimary() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "", clipboard.ErrNoPrimary
	case "linux":
		return readLinux(true)
	default:
		return "", fmt.Errorf("%w: %s", clipboard.ErrUnsupported, runtime.GOOS)
	}
}

// Write implements clipboard.Clipboard.Write
func (s *SystemClipboard) Write(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return writeWithCommand(text, "pbcopy")
	case "linux":
		return writeLinux(text)
	default:
		return fmt.Errorf("%w: %s", clipboard.ErrUnsupported, runtime.GOOS)
	}
}

// readLinux tries the Wayland tool first, then the X11 ones. primary
// selects the primary selection instead of the clipboard.
func readLinux(primary bool) (string, error) {
	type attempt struct {
		name string
		args []string
	}
	var attempts []attempt
	if primary {
		attempts = []attempt{
			{"wl-paste", []string{"--primary", "--no-newline"}},
			{"xclip", []string{"-selection", "primary", "-o"}},
			{"xsel", []string{"--primary", "--output"}},
		}
	} else {
		attempts = []attempt{
			{"wl-paste", []string{"--no-newline"}},
			{"xclip", []string{"-selection", "clipboard", "-o"}},
			{"xsel", []string{"--clipboard", "--output"}},
		}
	}

	var names []string
	for _, a := range attempts {
		if _, err := exec.LookPath(a.name); err != nil {
			continue
		}
		names = append(names, a.name)
		if text, err := readWithCommand(a.name, a.args...); err == nil {
			return text, nil
		}
	}
	if len(names) == 0 {
		return "", clipboard.ErrUnsupported
	}
	return "", fmt.Errorf("failed to read clipboard (tried %s)", strings.Join(names, ", "))
}

// writeLinux tries the Wayland tool first, then the X11 ones
func writeLinux(text string) error {
	attempts := []struct {
		name string
		args []string
	}{
		{"wl-copy", nil},
		{"xclip", []string{"-selection", "clipboard"}},
		{"xsel", []string{"--clipboard", "--input"}},
	}

	var names []string
	for _, a := range attempts {
		if _, err := exec.LookPath(a.name); err != nil {
			continue
		}
		names = append(names, a.name)
		if err := writeWithCommand(text, a.name, a.args...); err == nil {
			return nil
		}
	}
	if len(names) == 0 {
		return clipboard.ErrUnsupported
	}
	return fmt.Errorf("failed to write clipboard (tried %s)", strings.Join(names, ", "))
}

// readWithCommand executes a command and returns its output
func readWithCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}
	return out.String(), nil
}

// writeWithCommand executes a command with text as stdin
func writeWithCommand(text string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}
