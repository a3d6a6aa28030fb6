package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names one kind of destructive-run event.
type AuditEventType string

const (
	AuditEraseStart       AuditEventType = "erase_start"
	AuditEraseCancelled   AuditEventType = "erase_cancelled"
	AuditCollectionErased AuditEventType = "collection_erased"
	AuditCollectionFailed AuditEventType = "collection_failed"
	AuditAdminsKept       AuditEventType = "admins_kept"
	AuditEraseComplete    AuditEventType = "erase_complete"
)

// AuditEvent is one JSON line of the audit trail.
type AuditEvent struct {
	EventType  AuditEventType
	RunID      string
	Collection string
	Count      int64
	Error      string
	Message    string
	Fields     map[string]interface{}
}

var (
	auditMu     sync.Mutex
	auditLogger *zap.Logger
)

// initAudit opens the audit file; an empty path disables the trail.
func initAudit(path string) error {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditLogger != nil {
		_ = auditLogger.Sync()
		auditLogger = nil
	}
	if path == "" {
		return nil
	}

	sink, _, err := zap.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.LevelKey = ""
	enc.EncodeTime = zapcore.EpochMillisTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, zapcore.InfoLevel)
	auditLogger = zap.New(core)
	return nil
}

// SetAuditLogger installs a custom audit logger (tests).
func SetAuditLogger(l *zap.Logger) {
	auditMu.Lock()
	defer auditMu.Unlock()
	auditLogger = l
}

// AuditEnabled reports whether audit events are recorded.
func AuditEnabled() bool {
	auditMu.Lock()
	defer auditMu.Unlock()
	return auditLogger != nil
}

// Audit records an event; a no-op when the trail is disabled.
func Audit(event AuditEvent) {
	auditMu.Lock()
	l := auditLogger
	auditMu.Unlock()
	if l == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("run_id", event.RunID),
	}
	if event.Collection != "" {
		fields = append(fields, zap.String("collection", event.Collection))
	}
	if event.Count != 0 {
		fields = append(fields, zap.Int64("count", event.Count))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	for k, v := range event.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	l.Info(event.Message, fields...)
}

func syncAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger != nil {
		_ = auditLogger.Sync()
	}
}
