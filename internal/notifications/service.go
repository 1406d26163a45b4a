package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docket/internal/config"
	"docket/internal/logging"
)

const userAgent = "Docket-Go/0.1.0"

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds the sinks enabled in cfg: ntfy when a topic is set and
// e-mail when recipients are listed. With neither, a no-op is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	var sinks []Service
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		sinks = append(sinks, newNtfy(topic, timeout))
	}
	if len(cfg.Notifications.EmailTo) > 0 && strings.TrimSpace(cfg.SMTP.Host) != "" {
		sinks = append(sinks, newEmail(cfg.SMTP, cfg.Notifications.EmailTo))
	}
	switch len(sinks) {
	case 0:
		return noopService{}
	case 1:
		return sinks[0]
	}
	return &fanout{sinks: sinks, logger: logging.NewComponentLogger(logger, "notifications")}
}

// fanout delivers to every sink and joins their errors.
type fanout struct {
	sinks  []Service
	logger *slog.Logger
}

func (f *fanout) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) < len(f.sinks) {
		f.logger.Debug("notification partially delivered",
			logging.String("event", string(event)),
			logging.Int("failed_sinks", len(errs)),
		)
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
