package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/backend"
)

const commandTimeout = 30 * time.Second

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Read or change the backend system prompt",
}

var getPromptCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current system prompt",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := newBackendClient()
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		prompt, err := client.GetPrompt(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch prompt: %v", err)
		}
		fmt.Println(prompt)
	},
}

var setPromptCmd = &cobra.Command{
	Use:   "set [prompt]",
	Short: "Replace the system prompt",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			log.Fatalf("Prompt cannot be empty")
		}

		client := newBackendClient()
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := client.SetPrompt(ctx, prompt); err != nil {
			log.Fatalf("Failed to save prompt: %v", err)
		}
		fmt.Println("Prompt updated; it takes effect in the next reply.")
	},
}

func newBackendClient() *backend.Client {
	cfg := mustLoadConfig()
	if !cfg.IsValid() {
		log.Fatalf("Profile '%s' has no backend URL; run: rorichat profile edit %s", cfg.ActiveProfile, cfg.ActiveProfile)
	}
	return backend.NewClient(cfg.GetBaseURL(), cfg.GetRequestTimeout(), nil)
}

func init() {
	promptCmd.AddCommand(getPromptCmd)
	promptCmd.AddCommand(setPromptCmd)
}
