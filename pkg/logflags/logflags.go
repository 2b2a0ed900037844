// Package logflags configures the per-layer loggers used by symdbg.
package logflags

import (
	"errors"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	symbols  = false
	modules  = false
	provider = false
	target   = false

	out io.Writer = os.Stderr
)

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	logger.Level = logrus.DebugLevel
	if !flag {
		logger.Level = logrus.PanicLevel
	}
	return logger.WithFields(fields)
}

// Symbols returns true if the resolution engine should log.
func Symbols() bool {
	return symbols
}

// SymbolsLogger returns a logger for the symbol resolution engine.
func SymbolsLogger() *logrus.Entry {
	return makeLogger(symbols, logrus.Fields{"layer": "symbols"})
}

// Modules returns true if the module table should log.
func Modules() bool {
	return modules
}

// ModulesLogger returns a logger for the module table.
func ModulesLogger() *logrus.Entry {
	return makeLogger(modules, logrus.Fields{"layer": "modules"})
}

// ProviderLogger returns a logger for the debug info provider. Recoverable
// errors met while reading debug info (truncated line tables, missing
// sections) are logged here.
func ProviderLogger() *logrus.Entry {
	return makeLogger(provider, logrus.Fields{"layer": "provider"})
}

// TargetLogger returns a logger for procfs access to the target process.
func TargetLogger() *logrus.Entry {
	return makeLogger(target, logrus.Fields{"layer": "target"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the logging flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "symbols"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(logcmd) {
		case "symbols":
			symbols = true
		case "modules":
			modules = true
		case "provider":
			provider = true
		case "target":
			target = true
		default:
			return errors.New("unknown log layer: " + logcmd)
		}
	}
	return nil
}

// SetOutput redirects every logger created after the call to w.
func SetOutput(w io.Writer) {
	out = w
}
