// Package bootstrap assembles the runtime dependency graph.
package bootstrap

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"livetrans/internal/analysis"
	"livetrans/internal/audio"
	"livetrans/internal/config"
	"livetrans/internal/logging"
	"livetrans/internal/metrics"
	"livetrans/internal/ports"
	"livetrans/internal/providers/gemini"
	"livetrans/internal/usecase"
)

// Options carry the runtime surfaces the host owns: the event sink driving
// the presentation layer and the playback device.
type Options struct {
	ConfigPath string
	Sink       ports.EventSink
	Output     ports.AudioOutput
	Registry   prometheus.Registerer // nil uses the default registerer
}

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Controller *usecase.SessionController
	Analysis   *analysis.Scheduler
	FileGen    *gemini.Generator
	Output     ports.AudioOutput
	Logging    logging.Runtime
	Metrics    *metrics.Metrics
}

// Build wires all backend dependencies for the current runtime.
func Build(opts Options) (Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return Services{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Services{}, err
	}

	logRuntime, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return Services{}, fmt.Errorf("init logging: %w", err)
	}

	m := metrics.New(opts.Registry)
	provider := gemini.NewProvider(gemini.Config{})

	output := opts.Output
	if output == nil {
		output, err = audio.NewPulseOutput(cfg.Audio.OutputSampleRate)
		if err != nil {
			logRuntime.Close()
			return Services{}, err
		}
	}

	scheduler := analysis.New(
		analysis.Summarizers{
			Checkin:   provider.Generator(cfg.Gemini.APIKey, cfg.Gemini.CheckinModel),
			Milestone: provider.Generator(cfg.Gemini.APIKey, cfg.Gemini.MilestoneModel),
		},
		opts.Sink,
		logRuntime.Logger,
		m,
		analysis.Config{
			CheckinInterval:   cfg.Analysis.CheckinInterval,
			MilestoneInterval: cfg.Analysis.MilestoneInterval,
			RecentSegments:    cfg.Analysis.RecentSegments,
			TargetLanguage:    cfg.Session.TargetLanguage,
		},
	)

	var capture ports.AudioCapture
	switch cfg.Audio.Backend {
	case "ffmpeg":
		capture = audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, "")
	default:
		capture = audio.NewPulseCapture()
	}

	controller := usecase.NewSessionController(
		capture,
		provider,
		output,
		scheduler,
		opts.Sink,
		logRuntime.Logger,
		m,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				FrameSize:  cfg.Audio.FrameSize,
				Device:     cfg.Audio.InputDevice,
			},
			Live: ports.LiveConfig{
				Model:             cfg.Gemini.LiveModel,
				SystemInstruction: liveSystemInstruction(cfg.Session.TargetLanguage),
				InputSampleRate:   cfg.Audio.SampleRate,
				OutputSampleRate:  cfg.Audio.OutputSampleRate,
				TranscribeInput:   true,
				TranscribeOutput:  true,
			},
			OutputSampleRate: cfg.Audio.OutputSampleRate,
			OutputChannels:   1,
			StartMuted:       cfg.Session.StartMuted,
		},
	)

	return Services{
		Config:     cfg,
		Controller: controller,
		Analysis:   scheduler,
		FileGen:    provider.Generator(cfg.Gemini.APIKey, cfg.Gemini.FileModel),
		Output:     output,
		Logging:    logRuntime,
		Metrics:    m,
	}, nil
}

func liveSystemInstruction(language string) string {
	return fmt.Sprintf(`You are Smart Translate.
1. Listen to the user.
2. Translate speech to %s immediately.
3. Keep output concise and accurate.
4. Do not engage in conversation, just translate.`, language)
}
