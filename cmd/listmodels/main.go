// Command listmodels prints the model identifiers the configured API key can
// access, chat-capable models first. Useful when picking a value for
// llm.model in config.yaml.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lgarcia/studybuddy/internal/config"
	"github.com/lgarcia/studybuddy/internal/llm"
	"github.com/lgarcia/studybuddy/internal/logger"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	client := llm.NewClient(cfg.LLM)
	list, err := client.ListModels(context.Background())
	if err != nil {
		logger.L.Error("failed to list models", "error", err)
		os.Exit(1)
	}

	var chat, other []string
	for _, m := range list.Models {
		if strings.HasPrefix(m.ID, "gpt") || strings.HasPrefix(m.ID, "o") {
			chat = append(chat, m.ID)
		} else {
			other = append(other, m.ID)
		}
	}
	sort.Strings(chat)
	sort.Strings(other)

	fmt.Println("Available models:")
	fmt.Println(strings.Repeat("-", 35))
	for _, id := range chat {
		fmt.Printf("- %s\n", id)
	}
	for _, id := range other {
		fmt.Printf("- %s\n", id)
	}
}
