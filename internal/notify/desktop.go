package notify

import (
	"fmt"
	"os/exec"
	"runtime"
)

// DesktopNotifier surfaces finished rescue runs on the local desktop.
// macOS goes through osascript, Linux through notify-send; other
// platforms are silently skipped.
type DesktopNotifier struct {
	enabled bool
}

// NewDesktopNotifier creates a desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled}
}

// Send shows the notification
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("osascript", "-e", appleScript(n)).Run()
	case "linux":
		return exec.Command("notify-send", notifySendArgs(n)...).Run()
	}
	return nil
}

// appleScript builds the display-notification command. The run ID goes
// into the subtitle so stacked notifications from repeated sweeps stay
// distinguishable.
func appleScript(n Notification) string {
	script := fmt.Sprintf("display notification %q with title %q", desktopBody(n), n.Title)
	if n.RunID != "" {
		script += fmt.Sprintf(" subtitle %q", n.RunID)
	}
	if n.Type == NotifyError {
		script += ` sound name "Basso"`
	}
	return script
}

func notifySendArgs(n Notification) []string {
	return []string{
		"--icon", IconForType(n.Type),
		"--urgency", urgencyForType(n.Type),
		n.Title,
		desktopBody(n),
	}
}

// desktopBody appends the report location so the user can open the
// audit straight from the notification
func desktopBody(n Notification) string {
	if n.ReportPath == "" {
		return n.Message
	}
	return n.Message + "\n" + n.ReportPath
}

// IconForType returns the freedesktop icon name for a notification type
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}

// urgencyForType maps unfixed failures to a critical notification
func urgencyForType(t NotificationType) string {
	if t == NotifyError {
		return "critical"
	}
	return "normal"
}
