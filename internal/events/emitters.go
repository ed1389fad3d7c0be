package events

import (
	"time"

	"go.uber.org/zap"

	"poolMinter/internal/model"
	"poolMinter/internal/storage"
)

// LogEmitter writes every event as a structured log line.
type LogEmitter struct {
	logger *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger}
}

func (l *LogEmitter) Emit(ev Event) {
	l.logger.Info("event", zap.String("type", ev.EventType()), zap.Any("payload", ev))
}

// SinkEmitter encodes events into log records and appends them to a sink.
// Sink failures are logged and never reach the caller; the state change the
// event describes is already committed.
type SinkEmitter struct {
	encoder *Encoder
	sink    storage.LogSink
	logger  *zap.Logger
	now     func() time.Time
}

func NewSinkEmitter(encoder *Encoder, sink storage.LogSink, logger *zap.Logger) *SinkEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SinkEmitter{
		encoder: encoder,
		sink:    sink,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp records. Nil restores the UTC clock.
func (s *SinkEmitter) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
		return
	}
	s.now = now
}

func (s *SinkEmitter) Emit(ev Event) {
	record, err := s.encoder.Encode(ev, s.now())
	if err != nil {
		s.logger.Warn("encode event failed", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	if err := s.sink.PutLogBatch([]model.LogRecord{record}); err != nil {
		s.logger.Warn("write event failed",
			zap.String("type", ev.EventType()),
			zap.Uint64("sequence", record.Sequence),
			zap.Error(err),
		)
	}
}
