package service

import (
	"github.com/op/go-logging"
)

// Notifier tells operators something needs human attention. The
// health monitor uses it for silent providers.
type Notifier interface {
	Notify(subject, message string) error
}

// LogNotifier writes notifications to the message log, tagged with
// the operators who would receive them. It is the default; sites
// that want real email can swap in their own Notifier.
type LogNotifier struct {
	log        *logging.Logger
	recipients []string
}

func NewLogNotifier(log *logging.Logger, recipients []string) *LogNotifier {
	return &LogNotifier{log: log, recipients: recipients}
}

func (notifier *LogNotifier) Notify(subject, message string) error {
	notifier.log.Warning("NOTIFY %v: %s - %s", notifier.recipients, subject, message)
	return nil
}
