package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupLogger_Levels(t *testing.T) {
	// Restore the usual level for other tests in the package.
	defer setupLogger("info")

	ctx := context.Background()

	setupLogger("warn")
	if slog.Default().Enabled(ctx, slog.LevelInfo) {
		t.Error("warn logger should not enable info")
	}
	if !slog.Default().Enabled(ctx, slog.LevelWarn) {
		t.Error("warn logger should enable warn")
	}

	// An unknown or empty level falls back to info, which the startup
	// path depends on before the configured level is known.
	setupLogger("")
	if !slog.Default().Enabled(ctx, slog.LevelInfo) {
		t.Error("default logger should enable info")
	}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		t.Error("default logger should not enable debug")
	}
}

func TestOverrideString(t *testing.T) {
	dst := "base"
	overrideString(&dst, "")
	if dst != "base" {
		t.Errorf("empty override: got %q, want %q", dst, "base")
	}
	overrideString(&dst, "flag")
	if dst != "flag" {
		t.Errorf("override: got %q, want %q", dst, "flag")
	}
}
