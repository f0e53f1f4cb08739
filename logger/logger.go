package logger

import (
	"github.com/allape/rein/envar"
	"io"
	"log"
	"os"
)

var verbose = envar.Enabled(envar.ReinVerbose)

func init() {
	if verbose {
		log.Println("[logger] verbose mode enabled by", envar.ReinVerbose)
	}
}

func IsVerbose() bool {
	return verbose
}

// VerboseWriter is stdout in verbose mode and a sink otherwise, e.g. for HTTP access logs.
func VerboseWriter() io.Writer {
	if verbose {
		return os.Stdout
	}
	return io.Discard
}

func New(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix+" ", log.LstdFlags)
}

func NewVerboseLogger(prefix string) *log.Logger {
	return log.New(VerboseWriter(), prefix+" ", log.LstdFlags)
}
