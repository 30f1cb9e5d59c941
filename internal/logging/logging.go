// Package logging builds the zap logger shared by the CLI, the MCP server
// and the pipeline.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Field keys used across packages.
const (
	FieldSourceID  = "source_id"
	FieldCompany   = "company"
	FieldComposite = "composite"
	FieldErrorCode = "error_code"
)

// New creates a logger writing to stderr. Stdout is reserved for command
// output and the MCP transport.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.NewInvalidConfiguration("log.level", err.Error())
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// ErrorCode returns the error_code field for err.
func ErrorCode(err error) zap.Field {
	return zap.String(FieldErrorCode, string(errors.As(err).Code))
}
