// Package logging configures the process-wide zerolog logger: a console
// writer with bracketed level tags when stderr is a TTY, structured JSON
// otherwise. Mirrors the teacher's cmd/cryptorun/main.go setup.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Init configures the global zerolog logger.
func Init() {
	zerolog.TimeFieldFormat = time.RFC3339

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			FormatLevel: func(i interface{}) string {
				level, _ := i.(string)
				switch level {
				case "info":
					return "[INFO]"
				case "warn":
					return "[WARNING]"
				case "error":
					return "[ERROR]"
				default:
					return "[" + level + "]"
				}
			},
		})
		return
	}

	log.Logger = log.Output(os.Stderr)
}
