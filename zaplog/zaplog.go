// zaplog.go: zap adapter for the keystone Logger interface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package zaplog adapts a zap logger to keystone.Logger.
package zaplog

import (
	"github.com/agilira/keystone"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger forwards keystone log calls to a zap SugaredLogger.
type Logger struct {
	s *zap.SugaredLogger
}

// New wraps l. A nil l yields a no-op logger.
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{s: l.Sugar()}
}

// Debug logs at debug level with alternating key-value pairs.
func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.s.Debugw(msg, keyvals...) }

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) { l.s.Infow(msg, keyvals...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) { l.s.Warnw(msg, keyvals...) }

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.s.Errorw(msg, keyvals...) }

// Named returns a logger scoped to a component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{s: l.s.Named(name)}
}

// Build creates the process logger. Development mode writes human-readable
// console output at debug level; otherwise JSON at the given level.
func Build(development bool, level string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" || !development {
		cfg.Level = lvl
	}
	return cfg.Build(zap.AddCaller())
}

var _ keystone.Logger = (*Logger)(nil)
