package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daimatz/classparse/pkg/process"
)

const Version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	switch command {
	case "dump":
		return cmdDump(rest, stdout, stderr)
	case "scan":
		return cmdScan(rest, stdout, stderr)
	case "worker":
		return cmdWorker(rest, process.Stdio(), stderr)
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "classparse %s\n", Version)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n", command)
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "classparse %s\n\n", Version)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  classparse <command> [options] [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  dump <file.class>       decode one class file and print it")
	fmt.Fprintln(w, "  scan <dir|jar|jmod>     decode every class below a directory or in an archive")
	fmt.Fprintln(w, "  worker                  decode classes sent on stdin (used by scan -isolate)")
	fmt.Fprintln(w, "  version                 print the version")
	fmt.Fprintln(w, "  help                    show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  classparse dump -format json Hello.class")
	fmt.Fprintln(w, "  classparse scan -workers 8 $JAVA_HOME/jmods/java.base.jmod")
}

// commonFlags are shared by every subcommand that decodes.
type commonFlags struct {
	configPath string
	wide       bool
	magic      bool
	logLevel   string
}

func registerCommon(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.configPath, "config", "", "TOML config file")
	fs.BoolVar(&cf.wide, "wide", false, "reserve the pool slot after Long and Double (overrides config)")
	fs.BoolVar(&cf.magic, "magic", false, "reject input without the 0xCAFEBABE magic (overrides config)")
	fs.StringVar(&cf.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

// resolve loads the config file and applies the flags that were set.
func (cf *commonFlags) resolve(fs *flag.FlagSet) (*Config, error) {
	conf, err := loadConfig(cf.configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "wide":
			conf.WideConstants = cf.wide
		case "magic":
			conf.CheckMagic = cf.magic
		case "log-level":
			conf.LogLevel = cf.logLevel
		}
	})
	return conf, nil
}
