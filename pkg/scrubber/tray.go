package scrubber

import (
	"github.com/getlantern/systray"

	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

func (s *Scrubber) initializeTray(onDone func()) {
	logger := s.logger.Named("tray")

	onReady := func() {
		logger.Debug("Tray instance ready")

		systray.SetIcon(appIcon)
		systray.SetTitle("scrubber")
		systray.SetTooltip("scrubber")

		editConfig := systray.AddMenuItem("Edit configuration", "Open config file with notepad")
		resetValue := systray.AddMenuItem("Reset value", "Move the slider back to its initial value")

		if s.version != "" {
			systray.AddSeparator()
			versionInfo := systray.AddMenuItem(s.version, "")
			versionInfo.Disable()
		}

		systray.AddSeparator()
		quit := systray.AddMenuItem("Quit", "Stop scrubber and quit")

		// wait on things to happen
		go func() {
			for {
				select {

				// quit
				case <-quit.ClickedCh:
					logger.Info("Quit menu item clicked, stopping")

					s.signalStop()

				// edit config
				case <-editConfig.ClickedCh:
					logger.Info("Edit config menu item clicked, opening config for editing")

					editor := "notepad.exe"
					if util.Linux() {
						editor = "gedit"
					}

					if err := util.OpenExternal(logger, editor, userConfigFilepath); err != nil {
						logger.Warnw("Failed to open config file for editing", "error", err)
					}

				// reset value, through the event loop since it owns the slider
				case <-resetValue.ClickedCh:
					logger.Info("Reset value menu item clicked")

					s.resetChannel <- true
				}
			}
		}()

		// actually start the main runtime
		onDone()
	}

	onExit := func() {
		logger.Debug("Tray exited")
	}

	// start the tray icon
	logger.Debug("Running in tray")
	systray.Run(onReady, onExit)
}

func (s *Scrubber) stopTray() {
	s.logger.Debug("Quitting tray")
	systray.Quit()
}
