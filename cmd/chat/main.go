// Package main is an interactive terminal client for the dialogue engine.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/config"
	"github.com/converso-ai/dialogue-engine/internal/engine"
	"github.com/converso-ai/dialogue-engine/internal/llm"
	"github.com/converso-ai/dialogue-engine/internal/store"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
)

var (
	userID  string
	backend string
)

func main() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive LLM-topics assistant session",
		RunE:  run,
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to resume a profile (random when empty)")
	cmd.Flags().StringVar(&backend, "backend", "", "profile backend override: sqlite, nats or memory")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	cfg := config.Load()
	if backend != "" {
		cfg.ProfileBackend = backend
	}

	log, err := logger.New("warn")
	if err != nil {
		return err
	}
	defer log.Sync()

	if userID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		userID = id.String()
	}

	var profileStore store.Store
	switch cfg.ProfileBackend {
	case "memory":
		profileStore = store.NewMemoryStore()
	default:
		profileStore, err = store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open profile store: %w", err)
		}
	}
	defer profileStore.Close()

	classifierClient, err := classifier.NewOpenAIClient(cfg.OpenAIAPIKey, "")
	if err != nil {
		return err
	}

	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" && cfg.DefaultLLM == "anthropic" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		return err
	}

	eng := engine.New(cfg, classifierClient, llmClient, profileStore, nil, log)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Printf("session %s (ctrl-d to quit)\n\n", userID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		env, stream, err := eng.ProcessTurnStream(ctx, userID, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Print("assistant> ")
		if stream == nil {
			fmt.Println(env.FixedMessage)
		} else {
			for {
				fragment, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					fmt.Fprintf(os.Stderr, "\nstream error: %v\n", err)
					break
				}
				fmt.Print(fragment.Text)
			}
			fmt.Println()
		}
		fmt.Println()

		if !eng.SessionStatus(userID).Active {
			return nil
		}
	}
}
