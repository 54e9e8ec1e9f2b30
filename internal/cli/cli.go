// Package cli wires the command-line surface to the store, the picker,
// the daemon and the remote-copy server.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/clipd/clipd/internal/clipboard"
	"github.com/clipd/clipd/internal/clipboard/sysboard"
	"github.com/clipd/clipd/internal/config"
	"github.com/clipd/clipd/internal/daemon"
	"github.com/clipd/clipd/internal/logging"
	"github.com/clipd/clipd/internal/server"
	"github.com/clipd/clipd/internal/store"
	"github.com/clipd/clipd/internal/store/filestore"
	"github.com/clipd/clipd/internal/tui"
)

// CLI executes parsed commands against a single opened store.
type CLI struct {
	cfg        *config.Config
	cfgManager *config.Manager
	store      *filestore.Store
	board      clipboard.Clipboard

	// storeErr holds the corrupt-index condition; every command except
	// recover refuses to run while it is set.
	storeErr error

	stdout io.Writer
	stdin  io.Reader
}

// New creates a CLI instance from parsed arguments.
func New(args *Args) (*CLI, error) {
	cfgManager, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := cfgManager.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	dir, err := config.ResolveStorageDir(args.StorageDir, cfg)
	if err != nil {
		return nil, err
	}
	maxEntries := config.ResolveMaxEntries(args.MaxEntries, cfg)

	// Long-running commands log to a rotated file; one-shot commands
	// only log when --debug asks for stderr output.
	logDir := ""
	if args.Daemon != nil || args.Serve != nil {
		logDir = filepath.Join(dir, "logs")
	}
	logging.Init(logging.Config{
		LogDir: logDir,
		Level:  cfg.LogLevel,
		Debug:  args.Debug,
	})

	c := &CLI{
		cfg:        cfg,
		cfgManager: cfgManager,
		board:      sysboard.New(),
		stdout:     os.Stdout,
		stdin:      os.Stdin,
	}

	st, err := filestore.New(dir, maxEntries)
	if err != nil {
		if !errors.Is(err, store.ErrCorruptIndex) {
			return nil, err
		}
		c.storeErr = err
	}
	c.store = st
	return c, nil
}

// Execute dispatches the parsed command.
func (c *CLI) Execute(args *Args) error {
	defer logging.Shutdown()

	switch {
	case args.Copy != nil:
		return c.runCopy(args.Copy)
	case args.Paste != nil:
		return c.runPaste(args.Paste)
	case args.Pick != nil:
		return c.runPick()
	case args.List != nil:
		return c.runList(args.List)
	case args.Clear != nil:
		return c.runClear(args.Clear)
	case args.Stats != nil:
		return c.runStats()
	case args.Daemon != nil:
		return c.runDaemon(args.Daemon)
	case args.Serve != nil:
		return c.runServe(args.Serve)
	case args.Recover != nil:
		return c.runRecover()
	case args.Config != nil:
		return c.runConfig(args.Config)
	}
	return fmt.Errorf("no command specified")
}

// ensureStore rejects commands while the index is unreadable.
func (c *CLI) ensureStore() error {
	if c.storeErr != nil {
		return fmt.Errorf("storage unreadable (%v); run 'clipd recover' to rebuild the index", c.storeErr)
	}
	return nil
}

func (c *CLI) runCopy(cmd *CopyCmd) error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	var data []byte
	var err error
	if cmd.File != nil {
		data, err = os.ReadFile(*cmd.File)
		if err != nil {
			return fmt.Errorf("read %s: %w", *cmd.File, err)
		}
	} else {
		data, err = io.ReadAll(c.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	content := string(data)
	if content == "" {
		return fmt.Errorf("nothing to store")
	}

	entry, err := c.store.Ingest(content)
	if err != nil {
		return err
	}

	if c.board.IsSupported() {
		if err := c.board.Write(content); err != nil {
			fmt.Fprintf(c.stdout, "warning: clipboard write failed: %v\n", err)
		}
	}
	fmt.Fprintf(c.stdout, "Stored %s (%s)\n", entry.ID, tui.FormatSize(entry.Size))
	return nil
}

func (c *CLI) runPaste(cmd *PasteCmd) error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	entries := c.store.List(0)
	if cmd.Index >= len(entries) {
		return fmt.Errorf("no entry at index %d (history has %d entries)", cmd.Index, len(entries))
	}

	content, err := c.store.LoadContent(entries[cmd.Index].ID)
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.stdout, content)
	return err
}

func (c *CLI) runPick() error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	entry, err := tui.Run(c.store, c.board)
	if err != nil {
		return err
	}
	if entry != nil {
		fmt.Fprintf(c.stdout, "Copied %s to clipboard\n", tui.FormatSize(entry.Size))
	}
	return nil
}

func (c *CLI) runList(cmd *ListCmd) error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	entries := c.store.List(cmd.Count)
	if len(entries) == 0 {
		fmt.Fprintln(c.stdout, "History is empty.")
		return nil
	}

	for i, e := range entries {
		pin := " "
		if e.Pinned {
			pin = "*"
		}
		preview := e.Preview
		if runes := []rune(preview); len(runes) > 60 {
			preview = string(runes[:59]) + "…"
		}
		fmt.Fprintf(c.stdout, "%3d %s %-8s %-8s %s\n",
			i, pin, tui.FormatRelativeTime(e.Timestamp), tui.FormatSize(e.Size), preview)
	}
	return nil
}

func (c *CLI) runClear(cmd *ClearCmd) error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	count := len(c.store.List(0))
	if count == 0 {
		fmt.Fprintln(c.stdout, "History is already empty.")
		return nil
	}

	if !cmd.Force {
		fmt.Fprintf(c.stdout, "Delete all %d entries? [y/N] ", count)
		reader := bufio.NewReader(c.stdin)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(c.stdout, "Aborted.")
			return nil
		}
	}

	if err := c.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Deleted %d entries.\n", count)
	return nil
}

func (c *CLI) runStats() error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	st := c.store.Stats()
	fmt.Fprintf(c.stdout, "Entries:     %d\n", st.Count)
	fmt.Fprintf(c.stdout, "Pinned:      %d (max %d)\n", st.PinnedCount, store.MaxPinned)
	fmt.Fprintf(c.stdout, "Total size:  %s\n", tui.FormatSize(st.TotalSize))
	fmt.Fprintf(c.stdout, "Ceiling:     %d non-pinned entries\n", st.MaxEntries)
	fmt.Fprintf(c.stdout, "Location:    %s\n", c.store.Dir())
	return nil
}

func (c *CLI) runDaemon(cmd *DaemonCmd) error {
	if err := c.ensureStore(); err != nil {
		return err
	}
	if !c.board.IsSupported() {
		return fmt.Errorf("no clipboard tool found; install wl-clipboard, xclip or xsel")
	}

	intervalMs := c.cfg.PollIntervalMs
	if cmd.IntervalMs > 0 {
		intervalMs = cmd.IntervalMs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(c.store, c.board, time.Duration(intervalMs)*time.Millisecond)
	err := d.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *CLI) runServe(cmd *ServeCmd) error {
	if err := c.ensureStore(); err != nil {
		return err
	}

	port := c.cfg.Port
	if cmd.Port > 0 {
		port = cmd.Port
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var board clipboard.Clipboard
	if c.board.IsSupported() {
		board = c.board
	}
	srv := server.New(c.store, board, addr)
	err := srv.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *CLI) runRecover() error {
	n, err := c.store.Recover()
	if err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}
	c.storeErr = nil
	fmt.Fprintf(c.stdout, "Rebuilt index with %d entries.\n", n)
	return nil
}

func (c *CLI) runConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		value, err := c.cfgManager.Get(cmd.Get.Key)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, value)
		return nil
	case cmd.Set != nil:
		if err := c.cfgManager.Update(cmd.Set.Key, cmd.Set.Value); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%s = %s\n", cmd.Set.Key, cmd.Set.Value)
		return nil
	case cmd.List != nil:
		all, err := c.cfgManager.List()
		if err != nil {
			return err
		}
		for _, key := range []string{"max-entries", "storage-dir", "port", "poll-interval-ms", "log-level"} {
			fmt.Fprintf(c.stdout, "%-17s %s\n", key, all[key])
		}
		return nil
	}
	return fmt.Errorf("config requires a subcommand: get, set or list")
}
