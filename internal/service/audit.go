package service

import (
	"go.uber.org/zap"
)

// Audit records security-relevant events to the append-only audit trail.
// Recording is best-effort: a failing audit sink must never block or fail
// the operation being audited.
type Audit struct {
	logger *zap.Logger
}

// NewAudit creates a new audit recorder. A nil logger disables auditing.
func NewAudit(logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audit{logger: logger}
}

// Event writes one audit entry
func (a *Audit) Event(event string, fields ...zap.Field) {
	a.logger.Info(event, fields...)
}
