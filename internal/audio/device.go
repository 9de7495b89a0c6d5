package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// StopReason distinguishes how a playback finished. Explicit Stop never
// reports ReasonEnded; the historical bug where a manual stop let a natural
// "ended" event fire afterwards and double-toggle the UI is ruled out here.
type StopReason int

const (
	// ReasonEnded means the clip ran to natural completion.
	ReasonEnded StopReason = iota
	// ReasonStopped means Stop was called before completion.
	ReasonStopped
)

// Handle tracks one playback. Exactly one completion is ever delivered, no
// matter how the playback ends or how many times Stop is called.
type Handle struct {
	once   sync.Once
	done   chan struct{}
	reason StopReason
	halt   func()
}

func newHandle(halt func()) *Handle {
	return &Handle{done: make(chan struct{}), halt: halt}
}

func (h *Handle) finish(reason StopReason) {
	h.once.Do(func() {
		h.reason = reason
		if h.halt != nil {
			h.halt()
		}
		close(h.done)
	})
}

// Stop ends the playback early. Safe to call repeatedly and after completion.
func (h *Handle) Stop() {
	h.finish(ReasonStopped)
}

// Done closes when the playback has finished for any reason.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Reason reports how the playback ended. Only meaningful after Done closes.
func (h *Handle) Reason() StopReason {
	return h.reason
}

// Wait blocks until the playback finishes and reports how.
func (h *Handle) Wait() StopReason {
	<-h.done
	return h.reason
}

// Device starts playback of one clip. The session layer guarantees at most
// one live handle by stopping the previous one before asking for another.
type Device interface {
	Play(ctx context.Context, clip *Clip) (*Handle, error)
}

// ExecDevice shells out to a system audio player with a temporary WAV file.
type ExecDevice struct {
	// Command is the player argv; the WAV path is appended as the final
	// argument. Empty means autodetect.
	Command []string
}

var playerCandidates = [][]string{
	{"aplay", "-q"},
	{"paplay"},
	{"pw-play"},
	{"ffplay", "-autoexit", "-nodisp", "-loglevel", "quiet"},
	{"afplay"},
	{"mpv", "--really-quiet"},
}

// NewExecDevice builds a player from an override command line, or autodetects
// one on PATH. The override comes from the player config key.
func NewExecDevice(override string) (*ExecDevice, error) {
	if cmd := strings.Fields(override); len(cmd) > 0 {
		if _, err := exec.LookPath(cmd[0]); err != nil {
			return nil, fmt.Errorf("%w: configured player %q not found", ErrPlayback, cmd[0])
		}
		return &ExecDevice{Command: cmd}, nil
	}
	for _, candidate := range playerCandidates {
		if _, err := exec.LookPath(candidate[0]); err == nil {
			return &ExecDevice{Command: candidate}, nil
		}
	}
	return nil, fmt.Errorf("%w: no audio player found on PATH", ErrPlayback)
}

// Play writes the clip to a temp WAV file and runs the player over it.
func (d *ExecDevice) Play(ctx context.Context, clip *Clip) (*Handle, error) {
	if len(d.Command) == 0 {
		return nil, fmt.Errorf("%w: no player command configured", ErrPlayback)
	}
	tmp, err := os.CreateTemp("", "idiom-master-*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	if _, err := tmp.Write(EncodeWAV(clip)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w: %v", ErrPlayback, err)
	}

	args := append(append([]string{}, d.Command[1:]...), tmp.Name())
	cmd := exec.CommandContext(ctx, d.Command[0], args...)
	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w: %v", ErrPlayback, err)
	}

	handle := newHandle(func() {
		if cmd.Process != nil {
			// Kill on an already-exited process only returns an error.
			_ = cmd.Process.Kill()
		}
	})
	go func() {
		_ = cmd.Wait()
		os.Remove(tmp.Name())
		handle.finish(ReasonEnded)
	}()
	return handle, nil
}

// NopDevice plays silence for the clip's duration. It stands in when no
// system player exists and keeps the full handle contract, so every playback
// test runs against it.
type NopDevice struct{}

func (NopDevice) Play(ctx context.Context, clip *Clip) (*Handle, error) {
	if clip == nil || clip.Frames() == 0 {
		return nil, ErrNoData
	}
	quit := make(chan struct{})
	handle := newHandle(func() { close(quit) })
	go func() {
		select {
		case <-time.After(clip.Duration()):
			handle.finish(ReasonEnded)
		case <-ctx.Done():
			handle.finish(ReasonStopped)
		case <-quit:
		}
	}()
	return handle, nil
}
