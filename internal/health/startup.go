// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/abrcast/internal/config"
	"github.com/ManuGH/abrcast/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	logger.Info().Str(log.FieldPath, cfg.DataDir).Msg("data directory is writable")

	if _, port, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.ListenAddr, err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, cfg.ListenAddr)
	}

	if cfg.DryRun {
		logger.Warn().Msg("dry-run mode; skipping ffmpeg check, renditions are placeholders")
	} else {
		bin := strings.TrimSpace(cfg.FFmpeg.Bin)
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("ffmpeg binary not found (%s): %w", bin, err)
		}
		logger.Info().Str("ffmpeg", bin).Msg("ffmpeg available")
	}

	if cfg.Results.RedisAddr == "" {
		logger.Warn().Msg("job results kept in memory; they are lost on restart and not shared between instances")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; renditions may be lost on reboot")
	}
	return nil
}
