package main

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/omriharel/scrubber/pkg/scrubber"
)

var (
	gitCommit  string
	versionTag string
	buildType  string

	verbose  bool
	terminal bool
)

func init() {
	flag.BoolVar(&verbose, "verbose", false, "show verbose logs (useful for debugging pointer input)")
	flag.BoolVar(&verbose, "v", false, "shorthand for --verbose")
	flag.BoolVar(&terminal, "terminal", true, "draw the slider in this terminal and drive it with the mouse")
	flag.Parse()
}

func main() {

	// optional, lets SCRUBBER_NO_TRAY_ICON and friends live next to config.yaml
	envErr := godotenv.Load()

	// first we need a logger. the terminal screen owns stderr, so log to a file then
	logger, err := scrubber.NewLogger(buildType, terminal)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}

	named := logger.Named("main")
	named.Debug("Created logger")

	named.Infow("Version info",
		"gitCommit", gitCommit,
		"versionTag", versionTag,
		"buildType", buildType)

	if envErr != nil {
		named.Debugw("No .env file loaded", "reason", envErr)
	}

	// provide a fair warning if the user's running in verbose mode
	if verbose {
		named.Debug("Verbose flag provided, all log messages will be shown")
	}

	// create the scrubber instance
	s, err := scrubber.NewScrubber(logger, verbose, terminal)
	if err != nil {
		named.Fatalw("Failed to create scrubber object", "error", err)
	}

	// if injected by build process, set version info to show up in the tray
	if buildType != "" && (versionTag != "" || gitCommit != "") {
		identifier := gitCommit
		if versionTag != "" {
			identifier = versionTag
		}

		versionString := fmt.Sprintf("Version %s-%s", buildType, identifier)
		s.SetVersion(versionString)
	}

	// onwards, to glory
	if err = s.Initialize(); err != nil {
		named.Fatalw("Failed to initialize scrubber", "error", err)
	}
}
