package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"livetrans/internal/analysis"
	"livetrans/internal/bootstrap"
	"livetrans/internal/codec"
	"livetrans/internal/metrics"
	"livetrans/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	analyzeFile := flag.String("analyze", "", "analyze an audio file and exit")
	analyzeMode := flag.String("mode", "summary", "file analysis mode: transcript or summary")
	flag.Parse()

	if err := run(*configPath, *analyzeFile, *analyzeMode); err != nil {
		fmt.Fprintln(os.Stderr, "livetrans:", err)
		os.Exit(1)
	}
}

func run(configPath, analyzeFile, analyzeMode string) error {
	sink := ui.NewSink()

	opts := bootstrap.Options{ConfigPath: configPath, Sink: sink}
	if analyzeFile != "" {
		// One-shot analysis never touches the playback device.
		opts.Output = silentOutput{}
	}

	services, err := bootstrap.Build(opts)
	if err != nil {
		return err
	}
	defer services.Logging.Close()
	defer services.Output.Close()

	cfg := services.Config
	logger := services.Logging.Logger
	logger.Info("starting",
		slog.String("live_model", cfg.Gemini.LiveModel),
		slog.String("audio_backend", cfg.Audio.Backend),
		slog.String("target_language", cfg.Session.TargetLanguage),
	)

	if analyzeFile != "" {
		return runFileAnalysis(services, analyzeFile, analyzeMode)
	}

	if cfg.Metrics.Enabled {
		server := metrics.Serve(cfg.Metrics.Address)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
		logger.Info("metrics listener started", slog.String("address", cfg.Metrics.Address))
	}

	model := ui.New(services.Controller, ui.Options{
		Credential: cfg.Gemini.APIKey,
		ModelName:  cfg.Gemini.LiveModel,
		Language:   cfg.Session.TargetLanguage,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	sink.Attach(program)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	services.Controller.Disconnect()
	return nil
}

func runFileAnalysis(services bootstrap.Services, path, modeName string) error {
	mode := analysis.FileMode(modeName)
	if mode != analysis.FileModeTranscript && mode != analysis.FileModeSummary {
		return fmt.Errorf("unknown analysis mode %q", modeName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	prompt := analysis.FileAnalysisPrompt(mode, services.Config.Session.TargetLanguage)
	text, err := services.FileGen.AnalyzeAudio(ctx, data, audioMIME(path), prompt)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func audioMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mp3"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".aac":
		return "audio/aac"
	default:
		return "audio/wav"
	}
}

type silentOutput struct{}

func (silentOutput) Now() float64                       { return 0 }
func (silentOutput) Schedule(_ codec.Buffer, _ float64) {}
func (silentOutput) Close() error                       { return nil }
