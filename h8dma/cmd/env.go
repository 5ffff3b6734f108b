package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that provide defaults for the flags.
const (
	envIRQBase     = "H8DMA_IRQ_BASE"
	envRecord      = "H8DMA_RECORD"
	envMonitorPort = "H8DMA_MONITOR_PORT"
)

// loadEnv reads .env from the working directory. Variables that are
// already set win. A missing file is not an error.
func loadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	return nil
}

// parseIRQBase parses a comma-separated list of transfer-end interrupt
// vectors, one per channel.
func parseIRQBase(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%s: at most 2 vectors, got %d", envIRQBase, len(parts))
	}

	bases := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%s: bad vector %q", envIRQBase, p)
		}

		bases = append(bases, v)
	}

	return bases, nil
}

func envInt(name string) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	return v, nil
}
