package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sonroyaalmerol/kumaqueue/internal/utils"
)

const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 960 // samples per channel, 20 ms at 48 kHz
)

// PCMStreamer manages an ffmpeg process decoding one input to s16le 48 kHz stereo.
type PCMStreamer struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	cancel context.CancelFunc
}

// FFmpegArgs builds the ffmpeg argument list for inputURL. Network inputs
// reconnect on transient drops with a bounded delay.
func FFmpegArgs(inputURL string, headers string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5",
	}
	if headers != "" {
		args = append(args, "-headers", headers)
	}
	args = append(args,
		"-i", inputURL,
		"-vn",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-f", "s16le",
		"pipe:1",
	)
	return args
}

func StartPCMStream(ctx context.Context, ffmpegPath, inputURL string) (*PCMStreamer, error) {
	ctx2, cancel := context.WithCancel(ctx)

	headers := ""
	if strings.Contains(inputURL, "googlevideo.com") {
		headers = utils.BuildFFmpegHeaders(map[string]string{
			"Referer": "https://www.youtube.com/",
			"Origin":  "https://www.youtube.com",
		})
	}

	cmd := utils.ExecWith(ctx2, ffmpegPath, FFmpegArgs(inputURL, headers)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start: %w (stderr: %s)", err, stderr.String())
	}

	return &PCMStreamer{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		cancel: cancel,
	}, nil
}

func (p *PCMStreamer) Stdout() io.Reader {
	return p.stdout
}

// Wait reaps ffmpeg once stdout is drained. A non-zero exit carries stderr.
func (p *PCMStreamer) Wait() error {
	err := p.cmd.Wait()
	p.cancel()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, strings.TrimSpace(p.stderr.String()))
	}
	return nil
}

func (p *PCMStreamer) Close() {
	p.cancel()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
}
