package scrubber

import (
	"os"
	"path/filepath"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

// Notifier provides generic notification sending
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier provides desktop toast notifications
type ToastNotifier struct {
	logger *zap.SugaredLogger
}

// NewToastNotifier creates a new ToastNotifier
func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	logger = logger.Named("notifier")
	tn := &ToastNotifier{logger: logger}

	logger.Debug("Created toast notifier instance")

	return tn, nil
}

// Notify sends a toast notification
func (tn *ToastNotifier) Notify(title string, message string) {

	// unpack the icon somewhere to remain portable. we already have it as bytes so it should be fine
	appIconPath := filepath.Join(os.TempDir(), "scrubber.png")

	if !util.FileExists(appIconPath) {
		tn.logger.Debugw("Icon file missing, creating", "path", appIconPath)

		if err := os.WriteFile(appIconPath, appIcon, 0o644); err != nil {
			tn.logger.Errorw("Failed to write toast notification icon", "error", err)
		}
	}

	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	// send the actual notification
	if err := beeep.Notify(title, message, appIconPath); err != nil {
		tn.logger.Errorw("Failed to send toast notification", "error", err)
	}
}
