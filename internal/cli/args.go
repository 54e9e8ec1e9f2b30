package cli

import (
	"fmt"

	"github.com/clipd/clipd/internal/store"
)

// Args represents the top-level command structure
type Args struct {
	Copy    *CopyCmd    `arg:"subcommand:copy" help:"Store content from stdin or a file"`
	Paste   *PasteCmd   `arg:"subcommand:paste" help:"Print a stored entry to stdout"`
	Pick    *PickCmd    `arg:"subcommand:pick" help:"Browse history interactively"`
	List    *ListCmd    `arg:"subcommand:list" help:"List recent entries"`
	Clear   *ClearCmd   `arg:"subcommand:clear" help:"Delete the entire history"`
	Stats   *StatsCmd   `arg:"subcommand:stats" help:"Show storage statistics"`
	Daemon  *DaemonCmd  `arg:"subcommand:daemon" help:"Run the background clipboard monitor"`
	Serve   *ServeCmd   `arg:"subcommand:serve" help:"Run the remote-copy listener"`
	Recover *RecoverCmd `arg:"subcommand:recover" help:"Rebuild the index from content files"`
	Config  *ConfigCmd  `arg:"subcommand:config" help:"Inspect or change configuration"`

	StorageDir string `arg:"--dir" help:"Storage directory (default ~/.clipd, or $CLIPD_DIR)"`
	MaxEntries int    `arg:"--max-entries" help:"History ceiling override (1-10000)"`
	Debug      bool   `arg:"--debug" help:"Log debug output to stderr"`
}

// CopyCmd represents 'clipd copy'
type CopyCmd struct {
	File *string `arg:"positional" help:"File to read from (stdin if omitted)"`
}

// PasteCmd represents 'clipd paste'
type PasteCmd struct {
	Index int `arg:"positional" default:"0" help:"Entry index, 0 is the most recent"`
}

// PickCmd represents 'clipd pick'
type PickCmd struct{}

// ListCmd represents 'clipd list'
type ListCmd struct {
	Count int `arg:"-n,--count" default:"20" help:"Number of entries to show (0 for all)"`
}

// ClearCmd represents 'clipd clear'
type ClearCmd struct {
	Force bool `arg:"-f,--force" help:"Skip the confirmation prompt"`
}

// StatsCmd represents 'clipd stats'
type StatsCmd struct{}

// DaemonCmd represents 'clipd daemon'
type DaemonCmd struct {
	IntervalMs int `arg:"--interval-ms" help:"Polling interval in milliseconds"`
}

// ServeCmd represents 'clipd serve'
type ServeCmd struct {
	Port int `arg:"-p,--port" help:"TCP port to listen on"`
}

// RecoverCmd represents 'clipd recover'
type RecoverCmd struct{}

// ConfigCmd represents 'clipd config'
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Print one configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Change one configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"Print all configuration values"`
}

// ConfigGetCmd represents 'clipd config get'
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents 'clipd config set'
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"New value"`
}

// ConfigListCmd represents 'clipd config list'
type ConfigListCmd struct{}

// Description returns the program description
func (Args) Description() string {
	return "clipd - crash-safe clipboard history with pinning and fuzzy search"
}

// Version returns the program version
func (Args) Version() string {
	return "clipd 0.2.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  echo "hello" | clipd copy        # Store from stdin
  clipd copy notes.txt             # Store a file
  clipd                            # Interactive picker (same as 'clipd pick')
  clipd paste                      # Print the most recent entry
  clipd paste 2                    # Print the third entry
  clipd list -n 50                 # Show the 50 most recent entries
  clipd daemon                     # Watch the clipboard in the background
  ssh host cat f | nc localhost 7779   # Remote copy via 'clipd serve'

Configuration lives in ~/.config/clipd/config.yaml; history in ~/.clipd.`
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	if args.MaxEntries != 0 && (args.MaxEntries < 1 || args.MaxEntries > store.AbsoluteMaxEntries) {
		return fmt.Errorf("--max-entries must be between 1 and %d", store.AbsoluteMaxEntries)
	}
	if args.Paste != nil && args.Paste.Index < 0 {
		return fmt.Errorf("index must be non-negative")
	}
	if args.List != nil && args.List.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	if args.Serve != nil && args.Serve.Port != 0 && (args.Serve.Port < 1 || args.Serve.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if args.Daemon != nil && args.Daemon.IntervalMs != 0 && args.Daemon.IntervalMs < 50 {
		return fmt.Errorf("polling interval must be at least 50ms")
	}
	return nil
}
