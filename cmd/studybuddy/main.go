package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/lgarcia/studybuddy/internal/audio"
	"github.com/lgarcia/studybuddy/internal/config"
	"github.com/lgarcia/studybuddy/internal/llm"
	"github.com/lgarcia/studybuddy/internal/logger"
	"github.com/lgarcia/studybuddy/internal/pipeline"
	"github.com/lgarcia/studybuddy/internal/server"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")
	flag.Parse()

	// Load configuration; a missing API key is fatal before serving anything.
	cfg, err := config.Load(configFile)
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)

	// One OpenAI client covers chat, transcription, and synthesis.
	llmClient := llm.NewClient(cfg.LLM)

	transcriber := audio.NewTranscriber(llmClient, cfg.Audio)
	synthesizer := audio.NewSynthesizer(llmClient, cfg.Audio)
	pipe := pipeline.New(llmClient, transcriber, synthesizer, cfg.LLM)

	srv := server.New(pipe)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr, "model", cfg.LLM.Model)
	if err := http.ListenAndServe(serverAddr, srv.Handler()); err != nil {
		logger.L.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
