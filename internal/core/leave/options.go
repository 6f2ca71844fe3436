package leave

import "log/slog"

const defaultSystemApprover = "system"

type options struct {
	metrics        Metrics
	logger         *slog.Logger
	notifier       Notifier
	purger         AttachmentPurger
	systemApprover string
}

// Option は Ledger と Service の補助的な依存を設定します。
type Option func(*options)

// WithMetrics は計測先を設定します。
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger はログ出力先を設定します。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNotifier は通知先を設定します。
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithAttachmentPurger は申請削除後の添付書類削除先を設定します。
func WithAttachmentPurger(p AttachmentPurger) Option {
	return func(o *options) {
		o.purger = p
	}
}

// WithSystemApprover は承認不要区分の自動承認者 ID を設定します。
func WithSystemApprover(id string) Option {
	return func(o *options) {
		if !blank(id) {
			o.systemApprover = id
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		metrics:        noopMetrics{},
		logger:         slog.Default(),
		notifier:       noopNotifier{},
		systemApprover: defaultSystemApprover,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
