// Package clipboard defines the clipboard abstraction the daemon, picker
// and CLI share. The real implementation shells out to platform tools; a
// mock implementation backs the tests.
package clipboard

import "errors"

// ErrUnsupported indicates clipboard access is not available on this
// platform or no helper tool was found.
var ErrUnsupported = errors.New("clipboard not supported on this system")

// ErrNoPrimary indicates the platform has no primary selection (macOS).
var ErrNoPrimary = errors.New("primary selection not available")

// Clipboard abstracts the OS clipboard as text in, text out.
type Clipboard interface {
	// Read returns the current clipboard text.
	Read() (string, error)

	// ReadPrimary returns the current primary-selection text on
	// platforms that have one; ErrNoPrimary otherwise.
	ReadPrimary() (string, error)

	// Write replaces the clipboard contents.
	Write(text string) error

	// IsSupported reports whether clipboard operations can work here.
	IsSupported() bool
}
