package rhi

import (
	"fmt"
	"log/slog"
	"os"
)

// NewFileLogger opens a log file for the RHI, rotating any previous
// run's file to "<path>.bak" first. The returned close function flushes
// and closes the file; pass the logger to hal.SetLogger to activate it.
//
// Persisted state is optional: nothing in the core requires a log file.
func NewFileLogger(path string, level slog.Level) (*slog.Logger, func() error, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return nil, nil, fmt.Errorf("rotate previous log: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}
