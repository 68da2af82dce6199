package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the generator and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	wd, err := workDir(opts.dir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "iocgen: %v\n", err)
		return 1
	}
	cfg, err := loadConfig(opts, wd)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "iocgen: %v\n", err)
		return 1
	}

	log := newLogger(stderr, cfg.Verbose)
	defer func() { _ = log.Sync() }()

	log.Debug("configuration",
		zap.String("module", cfg.Module),
		zap.String("root", cfg.ModuleRoot),
		zap.String("out", cfg.OutImport),
		zap.Strings("contracts", cfg.Contracts),
		zap.Strings("patterns", cfg.Patterns),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	decls, err := NewScanner(cfg, log).Scan(ctx)
	if err != nil {
		log.Error("discovery failed", zap.Error(err))
		return 1
	}

	files := NewGenerator(cfg, log).Generate(decls)

	if cfg.DryRun {
		for _, f := range files {
			_, _ = fmt.Fprintf(stdout, "// === %s ===\n%s\n", filepath.ToSlash(filepath.Join(cfg.Out, f.Name)), f.Content)
		}
		return 0
	}

	st := writeArtifacts(cfg.OutDir, files, log)
	log.Info("generation finished",
		zap.Int("declarations", len(decls)),
		zap.Int("written", st.Written),
		zap.Int("unchanged", st.Unchanged),
		zap.Int("removed", st.Removed),
		zap.Int("failed", st.Failed),
	)
	return 0
}

func workDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// newLogger returns a console logger on w without timestamps.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core).Named("iocgen")
}
