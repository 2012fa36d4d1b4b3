// Package telemetry wraps zerolog for the VM's optional --trace
// instruction-level logging. It is strictly separate from the runtime
// error and stack-trace output, which always goes to the VM's diagnostic
// stream verbatim and is never routed through a logger.
package telemetry

import (
	"io"

	"github.com/rs/zerolog"

	"lumen/bytecode"
)

// Logger emits one structured log line per dispatched instruction when
// enabled, and does nothing at all when disabled -- call sites don't need
// to branch on whether tracing is on.
type Logger struct {
	zl      zerolog.Logger
	enabled bool
}

// Disabled returns a Logger whose Instruction calls are no-ops.
func Disabled() *Logger {
	return &Logger{enabled: false}
}

// New returns a Logger that writes one line per instruction to w.
func New(w io.Writer) *Logger {
	return &Logger{
		zl:      zerolog.New(w).With().Timestamp().Logger(),
		enabled: true,
	}
}

// Instruction logs the opcode about to execute at ip within chunk, along
// with the source line it was compiled from.
func (l *Logger) Instruction(chunk *bytecode.Chunk, ip int) {
	if l == nil || !l.enabled {
		return
	}

	def, err := bytecode.Lookup(chunk.Code[ip])
	name := "OP_UNKNOWN"
	if err == nil {
		name = def.Name
	}

	l.zl.Trace().
		Int("ip", ip).
		Int("line", chunk.GetLine(ip)).
		Str("op", name).
		Msg("dispatch")
}
