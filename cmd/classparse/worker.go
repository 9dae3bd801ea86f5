package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/daimatz/classparse/pkg/loader"
	"github.com/daimatz/classparse/pkg/process"
	"go.uber.org/zap"
)

// cmdWorker answers workerRequests on conn with classReports until the
// parent closes its end.
func cmdWorker(args []string, conn *process.Conn, stderr io.Writer) int {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	registerCommon(fs, &common)
	timeout := fs.Duration("timeout", 0, "per-class decode timeout (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	conf, err := common.resolve(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "timeout" {
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
	lc.Workers = 1
	ctx := context.Background()

	for n := 0; ; n++ {
		var req workerRequest
		err := conn.ReceiveJSON(&req)
		if errors.Is(err, io.EOF) {
			logger.Debug("worker done", zap.Int("requests", n))
			return 0
		}
		if err != nil {
			logger.Error("bad request", zap.Error(err))
			return 1
		}
		reports, err := decodeReports(ctx, lc, []loader.Source{{Name: req.Name, Data: req.Data}})
		if err != nil {
			logger.Error("decode", zap.String("class", req.Name), zap.Error(err))
			return 1
		}
		if err := conn.SendJSON(reports[0]); err != nil {
			logger.Error("reply", zap.Error(err))
			return 1
		}
	}
}
