// Starts the synthesis engine process, speaks a line protocol over
// stdin/stdout, and exposes a single CloneAndGenerate method.

package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sumitkumar005/voiceclone-studio/app/config"
)

// Generated audio is always written at 24 kHz.
const outputSampleRate = 24000

var errEngineNotInitialized = errors.New("engine not initialized")

type EngineStatus string

const (
	EngineReady  EngineStatus = "ready"
	EngineFailed EngineStatus = "failed"
)

// synthCommand is one line of the engine's stdin protocol.
type synthCommand struct {
	Reference  string `json:"reference"`
	Text       string `json:"text"`
	Output     string `json:"output"`
	SampleRate int    `json:"sample_rate"`
}

// TTSEngine wraps the synthesis process. One instance lives for the process
// lifetime; construction loads the backbone and codec models, which can take
// the better part of a minute on first boot. Protocol I/O is serialized with
// a mutex, and concurrent calls are bounded by worker slots so synthesis does
// not stall request handling beyond the configured parallelism.
type TTSEngine struct {
	cmd    *exec.Cmd
	in     *bufio.Writer
	out    *bufio.Scanner
	mu     sync.Mutex
	status EngineStatus
	slots  chan struct{}
}

var engine *TTSEngine

// MustInitEngine constructs the process-wide engine once at startup. A failed
// construction is not fatal: the instance is left in a failed state and every
// synthesis call errors immediately, while the rest of the API keeps serving.
func MustInitEngine() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for engine: %v", err)
	}

	e, err := NewTTSEngine(cfg.Engine)
	if err != nil {
		log.Printf("TTS engine unavailable: %v", err)
		engine = &TTSEngine{status: EngineFailed, slots: make(chan struct{}, 1)}
		return
	}
	engine = e
}

func NewTTSEngine(cfg config.EngineConfig) (*TTSEngine, error) {
	if cfg.Path == "" {
		return nil, errors.New("ENGINE_PATH must be set")
	}

	device := cfg.Device
	if device == "" || device == "auto" {
		device = detectDevice()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	cmd := exec.Command(cfg.Path,
		"--backbone", cfg.Backbone,
		"--codec", cfg.Codec,
		"--device", device,
		"--sample-rate", strconv.Itoa(outputSampleRate),
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	e := &TTSEngine{
		cmd:   cmd,
		in:    bufio.NewWriter(stdin),
		out:   bufio.NewScanner(stdout),
		slots: make(chan struct{}, workers),
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	log.Printf("TTS engine loading models on %s", device)
	// Handshake: the engine prints "ready" once both models are loaded.
	for e.out.Scan() {
		line := e.out.Text()
		if line == "ready" {
			e.status = EngineReady
			break
		}
		if strings.HasPrefix(line, "error") {
			break
		}
	}
	if e.status != EngineReady {
		_ = cmd.Process.Kill()
		return nil, errors.New("engine did not report ready")
	}
	log.Printf("TTS engine ready on %s", device)
	return e, nil
}

// detectDevice falls back to general-purpose compute when no accelerator is
// visible.
func detectDevice() string {
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return "cuda"
	}
	return "cpu"
}

func (e *TTSEngine) Status() EngineStatus {
	if e == nil {
		return EngineFailed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == "" {
		return EngineFailed
	}
	return e.status
}

func (e *TTSEngine) Close() error {
	if e == nil || e.cmd == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.send("quit")
	return e.cmd.Wait()
}

// CloneAndGenerate encodes the reference audio and synthesizes speech for the
// given text conditioned on it, writing the waveform to outputPath. The call
// blocks for the duration of synthesis; it occupies one bounded worker slot.
func (e *TTSEngine) CloneAndGenerate(ctx context.Context, referenceAudio, text, outputPath string) error {
	if e == nil {
		return errEngineNotInitialized
	}

	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.slots }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != EngineReady {
		return errEngineNotInitialized
	}

	payload, err := json.Marshal(synthCommand{
		Reference:  referenceAudio,
		Text:       text,
		Output:     outputPath,
		SampleRate: outputSampleRate,
	})
	if err != nil {
		return err
	}
	if err := e.send(string(payload)); err != nil {
		return err
	}

	var failure error
	readDone := make(chan error, 1)
	go func() {
		for e.out.Scan() {
			line := e.out.Text()
			// Progress lines are ignored; the exchange ends with either
			// "done" or "error <message>".
			if line == "done" {
				break
			}
			if msg, ok := strings.CutPrefix(line, "error "); ok {
				failure = fmt.Errorf("voice generation failed: %s", msg)
				break
			}
		}
		readDone <- e.out.Err()
	}()

	select {
	case <-ctx.Done():
		_ = e.send("stop")
		select {
		case err = <-readDone:
		case <-time.After(500 * time.Millisecond):
			// The reader goroutine is still attached to stdout and the
			// protocol state is unknown; a later call would attach a second
			// reader to the same scanner and race with this one. Take the
			// engine out of service before releasing the lock.
			e.status = EngineFailed
			if e.cmd != nil && e.cmd.Process != nil {
				_ = e.cmd.Process.Kill()
			}
			return ctx.Err()
		}
	case err = <-readDone:
	}
	if err != nil && err != bufio.ErrBufferFull {
		return err
	}
	return failure
}

func (e *TTSEngine) send(cmd string) error {
	_, err := fmt.Fprintln(e.in, cmd)
	if err != nil {
		return err
	}
	return e.in.Flush()
}
