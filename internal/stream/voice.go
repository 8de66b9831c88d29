package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// FrameEncoder is the part of Encoder used by the send loop.
type FrameEncoder interface {
	EncodeFrame(pcm []byte, onPacket OpusPacketHandler) error
	FrameBytes() int
}

// VoiceOutput plays stream URLs into one discordgo voice connection.
type VoiceOutput struct {
	vc         *discordgo.VoiceConnection
	ffmpegPath string
	log        *slog.Logger
}

func NewVoiceOutput(vc *discordgo.VoiceConnection, ffmpegPath string, log *slog.Logger) *VoiceOutput {
	if log == nil {
		log = slog.Default()
	}
	return &VoiceOutput{vc: vc, ffmpegPath: ffmpegPath, log: log.With("component", "voice", "guildID", vc.GuildID)}
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if vc.Ready && vc.OpusSend != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("voice connection not ready")
}

// Play decodes streamURL with ffmpeg and sends Opus frames until the input
// ends or ctx is cancelled. Cancellation returns ctx.Err().
func (o *VoiceOutput) Play(ctx context.Context, streamURL string) error {
	if err := waitReady(ctx, o.vc); err != nil {
		return err
	}

	pcm, err := StartPCMStream(ctx, o.ffmpegPath, streamURL)
	if err != nil {
		return err
	}
	enc, err := NewEncoder()
	if err != nil {
		pcm.Close()
		return err
	}
	defer enc.Close()

	_ = o.vc.Speaking(true)
	defer o.vc.Speaking(false)

	start := time.Now()
	sendErr := SendFrames(ctx, pcm.Stdout(), enc, o.vc.OpusSend)
	if sendErr != nil {
		pcm.Close()
		return sendErr
	}
	if err := enc.Flush(func(pkt []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o.vc.OpusSend <- append([]byte(nil), pkt...):
			return nil
		}
	}); err != nil {
		o.log.Debug("encoder flush failed", "err", err)
	}
	if err := pcm.Wait(); err != nil {
		return err
	}
	o.log.Debug("stream drained", "took", time.Since(start))
	return nil
}

func (o *VoiceOutput) Disconnect() error {
	_ = o.vc.Speaking(false)
	return o.vc.Disconnect()
}

// SendFrames reads PCM frames from r, encodes them and pushes the packets to
// out. A trailing partial frame is zero padded. Returns nil at end of input.
func SendFrames(ctx context.Context, r io.Reader, enc FrameEncoder, out chan<- []byte) error {
	br := bufio.NewReaderSize(r, 64*1024)
	frame := make([]byte, enc.FrameBytes())

	send := func(pkt []byte) error {
		cp := append([]byte(nil), pkt...)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- cp:
			return nil
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(br, frame)
		if errors.Is(err, io.EOF) {
			return nil
		}
		last := false
		if errors.Is(err, io.ErrUnexpectedEOF) {
			clear(frame[n:])
			last = true
		} else if err != nil {
			return fmt.Errorf("read pcm: %w", err)
		}
		if err := enc.EncodeFrame(frame, send); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if last {
			return nil
		}
	}
}
