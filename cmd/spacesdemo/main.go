package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/yourorg/spaces-transfer/internal/config"
	"github.com/yourorg/spaces-transfer/internal/ledger"
	spmetrics "github.com/yourorg/spaces-transfer/internal/metrics"
	"github.com/yourorg/spaces-transfer/internal/spaces"
	"github.com/yourorg/spaces-transfer/internal/transfer"
)

const usage = `usage: spacesdemo <command> [flags]

commands:
  upload   -file <path> [-key <key>]   upload a local file
  download [-key <key>] [-out <path>]  download an object
  history  [-n <count>]                list finished transfers
  regions                              list supported regions
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	zl := newZap(cfg.LogLevel)
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl, os.Args[1], os.Args[2:]); err != nil {
		zl.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		stop()
		_ = zl.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger, cmd string, args []string) error {
	switch cmd {
	case "regions":
		return listRegions()
	case "history":
		return history(cfg, zl, args)
	case "upload", "download":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if cfg.MetricsAddr != "" {
		spmetrics.Init(prometheus.DefaultRegisterer)
		go func() {
			if err := spmetrics.Serve(cfg.MetricsAddr); err != nil {
				zl.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	led, err := ledger.Open(cfg.LedgerDir, zl)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	tc, err := cfg.TransferConfig()
	if err != nil {
		return err
	}
	opts := append(cfg.ClientOptions(),
		transfer.WithLogger(zl),
		transfer.WithObserver(spmetrics.Observer{}),
		transfer.WithObserver(led),
	)
	client, err := transfer.NewClient(tc, opts...)
	if err != nil {
		return err
	}

	var t *transfer.Transfer
	if cmd == "upload" {
		t, err = upload(ctx, client, cfg, args)
	} else {
		t, err = download(ctx, client, cfg, args)
	}
	if err != nil {
		return err
	}
	if err := t.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			t.Cancel()
			<-t.Done()
		}
		return err
	}
	if t.Direction() == transfer.Download {
		fmt.Println(t.Path())
	}
	return nil
}

func upload(ctx context.Context, c *transfer.Client, cfg *config.Config, args []string) (*transfer.Transfer, error) {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	file := fs.String("file", "", "local file to upload")
	key := fs.String("key", cfg.ObjectKey, "object key")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *file == "" {
		return nil, errors.New("upload: -file is required")
	}
	return c.UploadFile(ctx, *key, *file, progressPrinter("upload")), nil
}

func download(ctx context.Context, c *transfer.Client, cfg *config.Config, args []string) (*transfer.Transfer, error) {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	key := fs.String("key", cfg.ObjectKey, "object key")
	out := fs.String("out", "", "destination path (default: user cache dir)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	dest := *out
	if dest == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		dest = filepath.Join(dir, "spacesdemo", filepath.Base(*key))
	}
	return c.Download(ctx, *key, dest, progressPrinter("download")), nil
}

// progressPrinter writes a one-line percentage to stderr as bytes move.
func progressPrinter(label string) transfer.Observer {
	return transfer.Listener{
		OnProgressChanged: func(_ string, cur, total int64) {
			e := transfer.Event{BytesCurrent: cur, BytesTotal: total}
			fmt.Fprintf(os.Stderr, "\r%s %5.1f%% (%d/%d bytes)", label, e.Percent(), cur, total)
		},
		OnStateChanged: func(_ string, s transfer.State) {
			if s.Terminal() {
				fmt.Fprintf(os.Stderr, "\r%s %s\n", label, s)
			}
		},
	}
}

func history(cfg *config.Config, zl *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	n := fs.Int("n", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	led, err := ledger.Open(cfg.LedgerDir, zl)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()
	entries, err := led.List(*n)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tDIRECTION\tSTATE\tKEY\tBYTES\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.FinishedAt.Format(time.RFC3339), e.Direction, e.State, e.Key, e.Bytes, e.Error)
	}
	return w.Flush()
}

func listRegions() error {
	for _, r := range spaces.Regions() {
		fmt.Printf("%s\t%s\n", r.Code(), r.Endpoint())
	}
	return nil
}

// newZap builds a production logger at level; unknown levels fall back to info.
func newZap(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
