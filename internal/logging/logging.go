// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging builds the zap loggers shared by the service binaries.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

// New creates a logger for service from the logging configuration.
// File output is rotated by lumberjack; "both" tees stdout and the file.
func New(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)
	encoderConfig := encoderConfigFor(cfg.Format)

	var cores []zapcore.Core

	switch cfg.Output {
	case "file", "both":
		fileWriter, err := fileSyncer(cfg)
		if err != nil {
			return nil, err
		}
		// Files always get JSON so they stay machine readable
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
		if cfg.Output == "both" {
			cores = append(cores, zapcore.NewCore(encoderFor(cfg.Format, encoderConfig), zapcore.Lock(os.Stdout), level))
		}
	case "stderr":
		cores = append(cores, zapcore.NewCore(encoderFor(cfg.Format, encoderConfig), zapcore.Lock(os.Stderr), level))
	default:
		cores = append(cores, zapcore.NewCore(encoderFor(cfg.Format, encoderConfig), zapcore.Lock(os.Stdout), level))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)

	if service != "" {
		logger = logger.With(zap.String("service", service))
	}

	return logger, nil
}

// ParseLevel maps a configured level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfigFor(format string) zapcore.EncoderConfig {
	if format == "json" {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return encoderConfig
	}
	return zap.NewDevelopmentEncoderConfig()
}

func encoderFor(format string, encoderConfig zapcore.EncoderConfig) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func fileSyncer(cfg config.LoggingConfig) (zapcore.WriteSyncer, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is required for %s output", cfg.Output)
	}

	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}), nil
}
