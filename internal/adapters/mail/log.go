package mail

import (
	"context"

	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/notify"
	"go.uber.org/zap"
)

// LogNotifier stands in for SMTP when no mail host is configured. Bodies
// are not logged since reset links are credentials.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, msg notify.Message) error {
	l.logger.Info("mail not sent, smtp disabled",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
