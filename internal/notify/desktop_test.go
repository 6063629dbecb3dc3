package notify

import (
	"strings"
	"testing"
)

func TestAppleScript(t *testing.T) {
	n := Notification{
		Title:      "Rescue complete",
		Message:    "2 passed, 0 failed of 2 files",
		Type:       NotifySuccess,
		RunID:      "run-1",
		ReportPath: "/proj/bugrescue_report.html",
	}

	script := appleScript(n)
	for _, want := range []string{
		`with title "Rescue complete"`,
		`subtitle "run-1"`,
		"/proj/bugrescue_report.html",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
	if strings.Contains(script, "sound name") {
		t.Error("success notification should not play the failure sound")
	}

	n.Type = NotifyError
	if !strings.Contains(appleScript(n), `sound name "Basso"`) {
		t.Error("failure notification should play a sound")
	}
}

func TestNotifySendArgs(t *testing.T) {
	args := notifySendArgs(Notification{
		Title:   "Rescue finished with 1 failures",
		Message: "1 passed, 1 failed of 2 files",
		Type:    NotifyError,
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--urgency critical") {
		t.Errorf("failure should be critical: %v", args)
	}
	if !strings.Contains(joined, "--icon dialog-error") {
		t.Errorf("args = %v", args)
	}
}

func TestDesktopBody(t *testing.T) {
	n := Notification{Message: "done"}
	if got := desktopBody(n); got != "done" {
		t.Errorf("desktopBody = %q", got)
	}

	n.ReportPath = "/proj/bugrescue_report.html"
	if got := desktopBody(n); !strings.HasSuffix(got, "/proj/bugrescue_report.html") {
		t.Errorf("body missing report path: %q", got)
	}
}

func TestDesktopDisabled(t *testing.T) {
	if err := NewDesktopNotifier(false).Send(Notification{}); err != nil {
		t.Errorf("disabled notifier should be a no-op, got %v", err)
	}
}

func TestUrgencyForType(t *testing.T) {
	if urgencyForType(NotifyError) != "critical" {
		t.Error("error notifications should be critical")
	}
	if urgencyForType(NotifySuccess) != "normal" {
		t.Error("success notifications should be normal urgency")
	}
}
