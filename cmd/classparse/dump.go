package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daimatz/classparse/pkg/classfile"
	"go.uber.org/zap"
)

func cmdDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	registerCommon(fs, &common)
	format := fs.String("format", "", "text, spew or json (overrides config)")
	allowTrailing := fs.Bool("allow-trailing", false, "accept bytes after the class file (overrides config)")
	reencode := fs.Bool("reencode", false, "check that encoding the decoded class reproduces the input")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: classparse dump [options] <file.class>")
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
		case "format":
			conf.Format = *format
		case "allow-trailing":
			conf.AllowTrailing = *allowTrailing
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

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	cf, consumed, err := decode(conf, data)
	if err != nil {
		logger.Debug("decode failed", zap.String("path", path), zap.Error(err))
		fmt.Fprintln(stderr, describeError(err))
		return 1
	}
	if n := len(data) - len(consumed); n > 0 {
		logger.Warn("ignoring trailing bytes", zap.String("path", path), zap.Int("count", n))
	}

	if err := writeClass(stdout, conf.Format, cf); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if *reencode {
		out, err := cf.MarshalBinary()
		if err != nil {
			fmt.Fprintf(stderr, "error: re-encoding: %v\n", err)
			return 1
		}
		if !bytes.Equal(out, consumed) {
			fmt.Fprintf(stderr, "error: re-encoded class differs from input (%d bytes, want %d)\n", len(out), len(consumed))
			return 1
		}
		logger.Info("re-encoded class is identical", zap.String("path", path), zap.Int("size", len(out)))
	}
	return 0
}

// decode returns the class and the prefix of data it was decoded from.
func decode(conf *Config, data []byte) (*classfile.ClassFile, []byte, error) {
	opts := conf.options()
	if !conf.AllowTrailing {
		cf, err := opts.DecodeExact(data)
		return cf, data, err
	}
	cf, rest, err := opts.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return cf, data[:len(data)-len(rest)], nil
}
