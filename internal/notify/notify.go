// Package notify turns a detected new-message event into an audible
// cue and, permission allowing, a system notification.
package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/mymail/mymail/internal/metrics"
)

// Permission is the platform notification permission state. It is
// external state owned by the host platform; the dispatcher only
// reads it and asks once.
type Permission int

const (
	// PermissionUndetermined means the user has not been asked yet.
	PermissionUndetermined Permission = iota
	// PermissionGranted allows raising system notifications.
	PermissionGranted
	// PermissionDenied suppresses system notifications; the audible
	// cue still fires.
	PermissionDenied
)

// Sound plays the audible new-message cue.
type Sound interface {
	Play() error
}

// Banner raises system notifications and owns permission state.
type Banner interface {
	Permission() Permission
	RequestPermission() Permission
	Show(deliveryID, title, body string) error
}

// Dispatcher delivers notifications. It is stateless beyond the
// permission status held by the Banner.
type Dispatcher struct {
	sound   Sound
	banner  Banner
	logger  *slog.Logger
	metrics metrics.Recorder
}

// New creates a Dispatcher. If the banner's permission state is
// undetermined, permission is requested once, here, opportunistically.
func New(sound Sound, banner Banner, logger *slog.Logger, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	d := &Dispatcher{
		sound:   sound,
		banner:  banner,
		logger:  logger.With("component", "notify"),
		metrics: recorder,
	}

	if banner != nil && banner.Permission() == PermissionUndetermined {
		banner.RequestPermission()
	}

	return d
}

// Notify plays the audible cue and, only when permission was granted,
// raises a system notification. Neither side effect may fail the
// caller: an autoplay-blocked sound or a platform error is logged and
// dropped.
func (d *Dispatcher) Notify(title, body string) {
	deliveryID := ulid.Make().String()

	if d.sound != nil {
		if err := d.sound.Play(); err != nil {
			d.logger.Debug("audible cue failed", "delivery_id", deliveryID, "error", err)
		}
	}

	if d.banner != nil && d.banner.Permission() == PermissionGranted {
		if err := d.banner.Show(deliveryID, title, body); err != nil {
			d.logger.Warn("notification failed", "delivery_id", deliveryID, "error", err)
		}
	}

	d.metrics.IncNotifications()
}

// TerminalBell is a Sound that writes the ASCII bell character.
type TerminalBell struct {
	W io.Writer
}

// Play writes the bell character.
func (b *TerminalBell) Play() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// ConsoleBanner is a Banner that prints notifications to a writer.
// Permission is granted from the start: a terminal has no permission
// prompt to answer.
type ConsoleBanner struct {
	W io.Writer
}

// Permission always reports granted.
func (c *ConsoleBanner) Permission() Permission { return PermissionGranted }

// RequestPermission is a no-op for terminals.
func (c *ConsoleBanner) RequestPermission() Permission { return PermissionGranted }

// Show prints the notification line.
func (c *ConsoleBanner) Show(deliveryID, title, body string) error {
	_, err := fmt.Fprintf(c.W, "[%s] %s\n", title, body)
	return err
}
