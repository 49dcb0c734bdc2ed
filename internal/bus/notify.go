package bus

import (
	"log/slog"

	sd "github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd the daemon has armed its first wait.
// Outside systemd (no NOTIFY_SOCKET) this is a no-op.
func NotifyReady(logger *slog.Logger) {
	sdNotify(logger, sd.SdNotifyReady)
}

// NotifyStopping tells systemd the daemon is shutting down.
func NotifyStopping(logger *slog.Logger) {
	sdNotify(logger, sd.SdNotifyStopping)
}

func sdNotify(logger *slog.Logger, state string) {
	notified, err := sd.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd notification failed", "state", state, "error", err)
		return
	}
	logger.Debug("sd notification", "state", state, "notified", notified)
}
