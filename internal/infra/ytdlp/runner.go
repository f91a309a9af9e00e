package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// progressPrefix tags machine-readable progress lines so they cannot be
// mistaken for the final info JSON.
const progressPrefix = "progress="

// progressTemplate makes the backend emit its progress dict as one JSON
// object per line.
const progressTemplate = "download:" + progressPrefix + "%(progress)j"

// Runner executes the extraction backend as a subprocess.
type Runner struct {
	binary string
	log    *slog.Logger
}

// NewRunner creates a Runner for the given backend binary ("yt-dlp" when empty).
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Runner{
		binary: binary,
		log:    slog.Default().With("component", "ytdlp"),
	}
}

// CheckBinary verifies the backend binary is reachable on PATH.
func (r *Runner) CheckBinary() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("extraction backend %q not found on PATH: %w", r.binary, err)
	}
	return nil
}

// Extract fetches the structured info record for a URL without downloading.
func (r *Runner) Extract(ctx context.Context, url string, opts Options) (*Info, error) {
	args := append([]string{"-J", "--no-warnings"}, opts.Args()...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("extracting", "url", url)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", r.binary, err, strings.TrimSpace(stderr.String()))
	}

	var info Info
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("decode info JSON: %w", err)
	}
	return &info, nil
}

// Download runs a full retrieval for a URL, streaming progress reports into
// hook. It returns the info record printed by the backend at completion so
// callers can pick up the resolved title without a second extraction.
func (r *Runner) Download(ctx context.Context, url string, opts Options, hook ProgressFunc) (*Info, error) {
	args := append([]string{
		"-J", "--no-simulate", "--no-warnings",
		"--newline", "--progress",
		"--progress-template", progressTemplate,
	}, opts.Args()...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", r.binary, err)
	}

	var (
		mu       sync.Mutex
		info     *Info
		errLines []string
		wg       sync.WaitGroup
	)
	scan := func(pipe io.Reader, captureErr bool) {
		defer wg.Done()
		sc := bufio.NewScanner(pipe)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := sc.Text()
			if p, ok := ParseProgressLine(line); ok {
				if hook != nil {
					mu.Lock()
					hook(p)
					mu.Unlock()
				}
				continue
			}
			if i, ok := parseInfoLine(line); ok {
				mu.Lock()
				info = i
				mu.Unlock()
				continue
			}
			if captureErr && strings.TrimSpace(line) != "" {
				mu.Lock()
				errLines = append(errLines, line)
				mu.Unlock()
			}
		}
	}
	wg.Add(2)
	go scan(stdoutPipe, false)
	go scan(stderrPipe, true)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(strings.Join(errLines, "\n"))
		return nil, fmt.Errorf("%s failed: %w: %s", r.binary, err, detail)
	}
	if info == nil {
		return nil, fmt.Errorf("%s produced no info record", r.binary)
	}
	return info, nil
}

// ParseProgressLine decodes one progress-template line. Returns false for
// anything that is not a progress report.
func ParseProgressLine(line string) (Progress, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), progressPrefix)
	if !ok {
		return Progress{}, false
	}
	var p Progress
	if err := json.Unmarshal([]byte(rest), &p); err != nil {
		return Progress{}, false
	}
	return p, true
}

// parseInfoLine recognizes the final info JSON object by its id field.
func parseInfoLine(line string) (*Info, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var info Info
	if err := json.Unmarshal([]byte(trimmed), &info); err != nil || info.ID == "" {
		return nil, false
	}
	return &info, true
}

// Aria2cOptions returns the external-downloader overlay used for retrieval
// jobs: aggressive segmenting with bounded retries, writing to
// dir/filename with the backend choosing the extension.
func Aria2cOptions(dir, filename string) Options {
	return Options{
		ExternalDownloader: "aria2c",
		DownloaderArgs: []string{
			"-x", "16",
			"-s", "16",
			"-k", "1M",
			"--max-tries=8",
			"--retry-wait=3",
			"--connect-timeout=10",
			"--timeout=30",
			"--auto-file-renaming=false",
			"--console-log-level=warn",
		},
		OutputTemplate:    filepath.Join(dir, filename),
		MergeOutputFormat: "mp4",
	}
}
