package transcode

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/clipferry/bot/internal/pipeline"
)

// ProcessRunner starts the transcoding process, feeding it stdin and handing
// each machine-readable progress line to onProgress. Injectable for tests.
type ProcessRunner func(ctx context.Context, binary string, args []string, stdin io.Reader, onProgress func(line string)) error

// FFmpeg converts media streams to MP3 at a fixed bitrate by shelling out to
// ffmpeg, implementing pipeline.Transcoder.
type FFmpeg struct {
	Binary      string
	BitrateKbps int
	Run         ProcessRunner
}

// NewFFmpeg constructs a transcoder using the given ffmpeg binary.
func NewFFmpeg(binary string) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		Binary:      binary,
		BitrateKbps: 128,
		Run:         defaultProcessRunner,
	}
}

// ToAudio pipes the input stream through ffmpeg into outPath. Fractional
// progress derived from ffmpeg's out_time counter is reported through the
// sink, clamped below 100; the caller owns the completion signal.
func (f *FFmpeg) ToAudio(ctx context.Context, in io.Reader, outPath string, durationSeconds int, sink pipeline.ProgressSink) error {
	if f.Run == nil {
		f.Run = defaultProcessRunner
	}

	args := []string{
		"-y",
		"-i", "pipe:0",
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", fmt.Sprintf("%dk", f.BitrateKbps),
		"-f", "mp3",
		"-nostats",
		"-loglevel", "error",
		"-progress", "pipe:1",
		outPath,
	}

	onProgress := func(line string) {
		if sink == nil || durationSeconds <= 0 {
			return
		}
		us, ok := parseOutTime(line)
		if !ok {
			return
		}
		pct := int(us / int64(durationSeconds) / 10_000)
		if pct < 0 {
			pct = 0
		}
		if pct > 99 {
			pct = 99
		}
		sink(pct)
	}

	if err := f.Run(ctx, f.Binary, args, in, onProgress); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// parseOutTime extracts microseconds from an "out_time_us=N" progress line.
func parseOutTime(line string) (int64, bool) {
	value, found := strings.CutPrefix(line, "out_time_us=")
	if !found {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return us, true
}

func defaultProcessRunner(ctx context.Context, binary string, args []string, stdin io.Reader, onProgress func(line string)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = stdin

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		onProgress(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

// tail keeps error output short enough to log.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
