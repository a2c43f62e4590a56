package scrubber

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

const (
	crashlogFilename        = "scrubber-crash-%s.log"
	crashlogTimestampFormat = "2006.01.02-15.04.05"

	crashMessage = `-----------------------------------------------------------------
                      scrubber crashlog
-----------------------------------------------------------------
Unfortunately, scrubber has crashed. This really shouldn't happen!
If you've just encountered this, please open an issue and attach this error log.
-----------------------------------------------------------------
Time: %s
Panic occurred: %s
Stack trace:
%s
-----------------------------------------------------------------
`
)

// writeCrashlog dumps a panic and its stack into the log directory, returning the file's path
func writeCrashlog(directory string, now time.Time, r interface{}, stack []byte) (string, error) {
	if err := util.EnsureDirExists(directory); err != nil {
		return "", fmt.Errorf("ensure crashlog dir exists: %w", err)
	}

	crashlogBytes := bytes.NewBufferString(fmt.Sprintf(crashMessage, now.Format(crashlogTimestampFormat), r, stack))
	crashlogPath := filepath.Join(directory, fmt.Sprintf(crashlogFilename, now.Format(crashlogTimestampFormat)))

	if err := os.WriteFile(crashlogPath, crashlogBytes.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write crashlog file contents: %w", err)
	}

	return crashlogPath, nil
}

func (s *Scrubber) recoverFromPanic() {
	r := recover()

	if r == nil {
		return
	}

	// if we got here, we're recovering from a panic!
	// the terminal may still be in raw mode, give it back first so the user can read anything at all
	if s.terminal != nil {
		s.terminal.Stop()
	}

	crashlogPath, err := writeCrashlog(logDirectory, time.Now(), r, debug.Stack())
	if err != nil {

		// that would REALLY suck
		panic(fmt.Errorf("can't write crashlog: %w (original panic: %v)", err, r))
	}

	s.logger.Errorw("Encountered and logged panic, crashing",
		"crashlogPath", crashlogPath,
		"error", r)

	s.notifier.Notify("Unexpected crash occurred...",
		fmt.Sprintf("More details in %s", crashlogPath))

	// bye :(
	s.logger.Errorw("Quitting", "exitCode", 1)
	os.Exit(1)
}
