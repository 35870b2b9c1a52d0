// Package render adapts the resumewright-render binary (the TSX→PDF
// engine) to the engine contract. The binary reads résumé source on
// stdin, writes the finished PDF to stdout, and reports stage
// transitions on stderr.
package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine"
)

const DefaultBinary = "resumewright-render"

// Stderr progress lines look like: [progress] rendering 45.0%
var progressRe = regexp.MustCompile(`^\[progress\]\s+(\S+)\s+(\d+\.?\d*)%`)

type Engine struct {
	binary string

	mu      sync.Mutex
	version string
}

func New(binary string) *Engine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Engine{binary: binary}
}

func (e *Engine) Name() string { return "resumewright-render" }

// Load verifies the binary is present and answers --version. This is the
// engine's fallible initialization; callers wrap it in retry.
func (e *Engine) Load(ctx context.Context) error {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return fmt.Errorf("render binary not found: %w", err)
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return fmt.Errorf("render binary unusable: %w", err)
	}

	e.mu.Lock()
	e.version = strings.TrimSpace(string(out))
	e.mu.Unlock()

	log.Info().Str("binary", path).Str("version", e.version).Msg("render engine loaded")
	return nil
}

func (e *Engine) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Convert runs one conversion. Source goes in on stdin, the PDF comes
// back on stdout, and stderr progress lines are forwarded to onProgress
// as they arrive.
func (e *Engine) Convert(ctx context.Context, source string, onProgress engine.ProgressFunc) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.binary)
	cmd.Stdin = strings.NewReader(source)

	var pdf bytes.Buffer
	cmd.Stdout = &pdf

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	lastError := consumeStderr(stderr, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if lastError != "" {
			return nil, fmt.Errorf("render: %s", lastError)
		}
		return nil, fmt.Errorf("render exit: %w", err)
	}

	if pdf.Len() == 0 {
		return nil, fmt.Errorf("render produced no output")
	}
	return pdf.Bytes(), nil
}

// consumeStderr drains the stderr stream, forwarding progress lines and
// remembering the last reported error line.
func consumeStderr(r io.Reader, onProgress engine.ProgressFunc) string {
	var lastError string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		log.Debug().Str("render", line).Msg("render output")

		if stage, pct, ok := parseProgressLine(line); ok {
			if onProgress != nil {
				onProgress(stage, pct)
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, "[error] "); ok {
			lastError = rest
		}
	}
	return lastError
}

func parseProgressLine(line string) (stage string, pct float64, ok bool) {
	matches := progressRe.FindStringSubmatch(line)
	if len(matches) < 3 {
		return "", 0, false
	}
	pct, err := strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return "", 0, false
	}
	return matches[1], pct, true
}
