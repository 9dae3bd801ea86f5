package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/daimatz/classparse/pkg/loader"
	"github.com/daimatz/classparse/pkg/process"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// classReport is the outcome of decoding one class, in process or in a
// worker. It is also the worker's reply message.
type classReport struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Digest string `json:"digest,omitempty"`
	Class  string `json:"class,omitempty"`
	Error  string `json:"error,omitempty"`
}

// workerRequest asks a worker to decode one class.
type workerRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

func cmdScan(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	registerCommon(fs, &common)
	workers := fs.Int("workers", 0, "concurrent decodes (overrides config)")
	timeout := fs.Duration("timeout", 0, "per-class decode timeout (overrides config)")
	isolate := fs.Bool("isolate", false, "decode in a child worker process")
	list := fs.Bool("list", false, "print one line per class")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: classparse scan [options] <dir|jar|jmod>")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	conf, err := common.resolve(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			conf.Workers = *workers
		case "timeout":
			conf.DecodeTimeout.Duration = *timeout
		}
	})
	if err := conf.validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	logger, err := conf.newLogger()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer logger.Sync()

	lc := conf.loaderConfig(logger)
	if err := lc.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	sources, err := collectSources(fs.Arg(0), lc)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	var reports []classReport
	if *isolate {
		reports, err = scanIsolated(ctx, conf, logger, sources, stderr)
	} else {
		reports, err = decodeReports(ctx, lc, sources)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("scan finished", zap.Int("classes", len(reports)), zap.Duration("elapsed", time.Since(start)))

	if writeReport(stdout, reports, *list) > 0 {
		return 1
	}
	return 0
}

func collectSources(path string, lc *loader.Config) ([]loader.Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		l, err := loader.NewDirLoader(path, nil, lc)
		if err != nil {
			return nil, err
		}
		return l.Sources()
	}
	l, err := loader.NewArchiveLoader(path, lc)
	if err != nil {
		return nil, err
	}
	return l.Sources()
}

// decodeReports decodes sources with the loader and turns every outcome,
// success or failure, into a report.
func decodeReports(ctx context.Context, lc *loader.Config, sources []loader.Source) ([]classReport, error) {
	results, err := loader.DecodeAll(ctx, lc, sources)
	var merr *multierror.Error
	if err != nil && !errors.As(err, &merr) {
		return nil, err
	}

	byName := make(map[string]classReport, len(sources))
	for _, r := range results {
		name, _ := r.Class.ClassName()
		byName[r.Name] = classReport{
			Name:   r.Name,
			Size:   r.Size,
			Digest: hex.EncodeToString(r.Digest[:]),
			Class:  name,
		}
	}
	if merr != nil {
		for _, e := range merr.Errors {
			var serr *loader.SourceError
			if errors.As(e, &serr) {
				byName[serr.Name] = classReport{Name: serr.Name, Error: describeError(serr.Err)}
			}
		}
	}

	reports := make([]classReport, 0, len(sources))
	for _, src := range sources {
		r := byName[src.Name]
		r.Name = src.Name
		r.Size = len(src.Data)
		reports = append(reports, r)
	}
	return reports, nil
}

// scanIsolated sends every source to a "classparse worker" child. When the
// child dies on a class, that class is reported as failed and a new child
// takes the rest.
func scanIsolated(ctx context.Context, conf *Config, logger *zap.Logger, sources []loader.Source, stderr io.Writer) ([]classReport, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	opts := process.Options{Logger: logger, Stderr: stderr}
	args := []string{"worker",
		"-wide=" + strconv.FormatBool(conf.WideConstants),
		"-magic=" + strconv.FormatBool(conf.CheckMagic),
		"-log-level=" + conf.LogLevel,
		"-timeout=" + conf.DecodeTimeout.String(),
	}

	var p *process.Process
	reports := make([]classReport, 0, len(sources))
	for _, src := range sources {
		if p == nil {
			if p, err = opts.Spawn(ctx, exe, args...); err != nil {
				return nil, err
			}
		}
		r, err := askWorker(p, src)
		if err != nil {
			p.Wait()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("worker died", zap.Int("pid", p.Pid()), zap.String("class", src.Name), zap.Error(err))
			r = classReport{
				Name:  src.Name,
				Size:  len(src.Data),
				Error: fmt.Sprintf("error: worker %d died (exit code %d)", p.Pid(), p.ExitCode()),
			}
			p = nil
		}
		reports = append(reports, r)
	}
	if p != nil {
		if err := p.Wait(); err != nil {
			return nil, fmt.Errorf("worker %d: %w", p.Pid(), err)
		}
	}
	return reports, nil
}

func askWorker(p *process.Process, src loader.Source) (classReport, error) {
	var r classReport
	if err := p.Conn().SendJSON(workerRequest{Name: src.Name, Data: src.Data}); err != nil {
		return r, fmt.Errorf("sending %s: %w", src.Name, err)
	}
	if err := p.Conn().ReceiveJSON(&r); err != nil {
		return r, fmt.Errorf("receiving %s: %w", src.Name, err)
	}
	return r, nil
}

// writeReport prints the scan outcome and returns the number of failures.
func writeReport(w io.Writer, reports []classReport, list bool) int {
	failed, dups := 0, 0
	seen := make(map[string]string)
	for _, r := range reports {
		switch {
		case r.Error != "":
			failed++
			fmt.Fprintf(w, "FAIL %s: %s\n", r.Name, r.Error)
		case list:
			fmt.Fprintf(w, "ok   %s %s %d bytes %s\n", r.Name, r.Class, r.Size, r.Digest[:16])
		}
		if r.Digest == "" {
			continue
		}
		if first, ok := seen[r.Digest]; ok {
			dups++
			fmt.Fprintf(w, "DUP  %s is identical to %s\n", r.Name, first)
		} else {
			seen[r.Digest] = r.Name
		}
	}
	fmt.Fprintf(w, "%d classes: %d decoded, %d failed, %d duplicates\n",
		len(reports), len(reports)-failed, failed, dups)
	return failed
}
