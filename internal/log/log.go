// Package log wires up the subsystem loggers used across the bank node.
// Every package that wants to log obtains its logger from here instead of
// constructing one itself, mirroring the lnd.go backendLog/subsystem family.
package log

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter mirrors stdout and, once initialized, a rotating log file.
type logWriter struct {
	rotator *rotator.Rotator
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.rotator != nil {
		return w.rotator.Write(p)
	}
	return len(p), nil
}

var (
	writer     = &logWriter{}
	backendLog = btclog.NewBackend(writer)

	// Bank is the top-level orchestrator subsystem.
	Bank = backendLog.Logger("BANK")
	// Store is the account store subsystem (bbolt + cache).
	Store = backendLog.Logger("STOR")
	// Security is the blacklist/known-port guard subsystem.
	Security = backendLog.Logger("SCRD")
	// Network is the peer connector and scanner subsystem.
	Network = backendLog.Logger("NETW")
	// Worker is the worker pool subsystem.
	Worker = backendLog.Logger("WRKR")
	// Client is the per-connection client handler subsystem.
	Client = backendLog.Logger("CLNT")
	// Gateway is the TCP listener subsystem.
	Gateway = backendLog.Logger("GTWY")
)

var subsystems = map[string]btclog.Logger{
	"BANK": Bank,
	"STOR": Store,
	"SCRD": Security,
	"NETW": Network,
	"WRKR": Worker,
	"CLNT": Client,
	"GTWY": Gateway,
}

// InitLogRotator creates the rotating log file at logFile, in addition to the
// stdout mirror every subsystem logger already writes to. maxRolls is the
// number of historical log files to keep around.
func InitLogRotator(logFile string, maxRolls int) error {
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return err
	}
	writer.rotator = r
	return nil
}

// SetLevel sets the log level for every known subsystem.
func SetLevel(level btclog.Level) {
	for _, l := range subsystems {
		l.SetLevel(level)
	}
}

// SetLevelFromString parses level and applies it to every subsystem. It
// reports whether the level string was recognized.
func SetLevelFromString(level string) bool {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return false
	}
	SetLevel(lvl)
	return true
}
