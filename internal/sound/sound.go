//go:build !ci

package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const sampleRate = beep.SampleRate(44100)

// 内置提示音：名称 → 频率与时长，可被 assets/sounds 下的同名文件覆盖
var builtinTones = map[string]struct {
	freq     float64
	duration time.Duration
}{
	KeyPress: {freq: 880, duration: 30 * time.Millisecond},
	Rejected: {freq: 220, duration: 80 * time.Millisecond},
	GameOver: {freq: 660, duration: 400 * time.Millisecond},
}

type SoundManager struct {
	buffers map[string]*beep.Buffer
	enabled bool
	mu      sync.RWMutex
}

func NewSoundManager() *SoundManager {
	return &SoundManager{
		buffers: make(map[string]*beep.Buffer),
		enabled: false,
	}
}

// Init 初始化扬声器并加载声音；dir 为空时使用 assets/sounds
func (sm *SoundManager) Init(dir string) error {
	// Init speaker with smaller buffer for lower latency
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	if err := sm.load(dir); err != nil {
		return err
	}

	sm.mu.Lock()
	sm.enabled = true
	sm.mu.Unlock()
	return nil
}

// load 加载声音文件，再为缺失的名称生成内置提示音
func (sm *SoundManager) load(dir string) error {
	if dir == "" {
		dir = "assets/sounds"
	}
	if err := sm.loadSoundFiles(dir); err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for name, tone := range builtinTones {
		if _, ok := sm.buffers[name]; ok {
			continue
		}
		buf, err := toneBuffer(tone.freq, tone.duration)
		if err != nil {
			return err
		}
		sm.buffers[name] = buf
	}
	return nil
}

func toneBuffer(freq float64, d time.Duration) (*beep.Buffer, error) {
	tone, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tone: %w", err)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2})
	buffer.Append(beep.Take(sampleRate.N(d), tone))
	return buffer, nil
}

// loadSoundFiles loads all sound files from the given directory
func (sm *SoundManager) loadSoundFiles(soundDir string) error {
	files, err := os.ReadDir(soundDir)
	if err != nil {
		// It's okay if directory doesn't exist, builtin tones are used
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sound directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".mp3" && ext != ".wav" {
			continue
		}

		// Continue loading other files even if one fails
		_ = sm.loadSoundFile(filepath.Join(soundDir, name), strings.TrimSuffix(name, filepath.Ext(name)), ext)
	}

	return nil
}

// loadSoundFile loads a single sound file into the buffer
func (sm *SoundManager) loadSoundFile(path, baseName, ext string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		return err
	}
	defer func() { _ = streamer.Close() }()

	// Resample if necessary
	var resampled beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		resampled = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 4})
	buffer.Append(resampled)

	sm.mu.Lock()
	sm.buffers[baseName] = buffer
	sm.mu.Unlock()
	return nil
}

// Has 是否已加载指定声音
func (sm *SoundManager) Has(name string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.buffers[name]
	return ok
}

func (sm *SoundManager) Play(name string) {
	sm.mu.RLock()
	buffer, ok := sm.buffers[name]
	enabled := sm.enabled
	sm.mu.RUnlock()

	if !enabled || !ok {
		return
	}
	speaker.Play(buffer.Streamer(0, buffer.Len()))
}

func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.enabled = false
}
