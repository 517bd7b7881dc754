// Package notifier provides build notification functionality
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/letsbuild/letsbuild/pkg/logger"
)

// Notifier announces the outcome of a build
type Notifier interface {
	NotifyBuildSuccess(target string, duration time.Duration)
	NotifyBuildFailure(target string, err error)
}

// SendFunc delivers one desktop notification
type SendFunc func(title, message, icon string) error

// BuildNotifier sends desktop notifications through beeep
type BuildNotifier struct {
	enabled bool
	sound   bool
	send    SendFunc
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps after a failed build
	Sound bool
}

// New creates a new build notifier
func New(config Config, log logger.Logger) *BuildNotifier {
	return NewWithSender(config, log, beeep.Notify)
}

// NewWithSender creates a notifier that delivers through send
func NewWithSender(config Config, log logger.Logger, send SendFunc) *BuildNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &BuildNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		send:    send,
		logger:  log,
	}
}

// NotifyBuildSuccess notifies that a build succeeded
func (n *BuildNotifier) NotifyBuildSuccess(target string, duration time.Duration) {
	if !n.enabled {
		return
	}
	n.sendNotification("Build Succeeded", fmt.Sprintf("%s built in %s", target, FormatDuration(duration)))
}

// NotifyBuildFailure notifies that a build failed
func (n *BuildNotifier) NotifyBuildFailure(target string, err error) {
	if !n.enabled {
		return
	}
	n.sendNotification("Build Failed", fmt.Sprintf("%s: %s", target, firstLine(err)))

	if n.sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func (n *BuildNotifier) sendNotification(title, message string) {
	if err := n.send("letsbuild: "+title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}

// firstLine keeps notifications short when the error is a full diagnostic dump
func firstLine(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

// FormatDuration renders a build duration for humans
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
