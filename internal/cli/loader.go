package cli

import (
	"github.com/specify/storedq/internal/compiler"
	"github.com/specify/storedq/internal/schema"
)

// loadRegistry loads and validates the schema in dir. Failures are reported
// through formatter and returned as exit errors: a directory that cannot be
// read is a command error, an invalid schema is a failure.
func loadRegistry(formatter *OutputFormatter, dir string) (*schema.Registry, error) {
	formatter.VerboseLog("Loading schema from %s", dir)
	reg, err := compiler.LoadRegistry(dir)
	if err != nil {
		return nil, formatter.Fail(loadExitCode(err), err)
	}
	formatter.VerboseLog("Loaded %d table(s)", len(reg.Tables()))
	return reg, nil
}

// loadExitCode classifies a schema loading error.
func loadExitCode(err error) int {
	code, _ := describe(err)
	switch code {
	case compiler.ErrCodeNotFound, compiler.ErrCodeScanError, compiler.ErrCodeNoFiles:
		return ExitCommandError
	default:
		return ExitFailure
	}
}
