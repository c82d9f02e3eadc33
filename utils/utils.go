package utils

import (
	"strings"

	"go.uber.org/zap"
)

// LogTrail collects the steps one handler takes and writes them as a single
// entry when flushed.
type LogTrail struct {
	logger *zap.Logger
	api    string
	steps  strings.Builder
}

func NewLogTrail(logger *zap.Logger, api string) *LogTrail {
	return &LogTrail{logger: logger, api: api}
}

// AddToLogMessage appends one step.
func (t *LogTrail) AddToLogMessage(step string) {
	if t.steps.Len() > 0 {
		t.steps.WriteString("; ")
	}
	t.steps.WriteString(step)
}

// Flush writes the collected steps at debug level.
func (t *LogTrail) Flush() {
	t.logger.Debug("api trail", zap.String("api", t.api), zap.String("steps", t.steps.String()))
}

// String returns the steps so far.
func (t *LogTrail) String() string { return t.steps.String() }
