package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .gearbox.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to gearbox! Let's configure your diagnosis assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory (session database, knowledge base)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 2. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP API port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 3. LLM-backed symptom analysis.
	llmPrompt := promptui.Select{
		Label: "Symptom analysis backend",
		Items: []string{
			"rules  — built-in pattern table, no API key needed",
			"llm    — OpenAI-compatible model (requires OPENAI_API_KEY)",
		},
	}
	llmIdx, _, err := llmPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.LLM.Enabled = llmIdx == 1

	if cfg.LLM.Enabled {
		modelPrompt := promptui.Prompt{
			Label:   "Model",
			Default: cfg.LLM.Model,
		}
		model, err := modelPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		cfg.LLM.Model = model

		baseURLPrompt := promptui.Prompt{
			Label:   "API base URL (blank for api.openai.com)",
			Default: cfg.LLM.BaseURL,
		}
		baseURL, err := baseURLPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
		cfg.LLM.BaseURL = baseURL

		if os.Getenv("OPENAI_API_KEY") == "" {
			fmt.Println("\nNote: Set OPENAI_API_KEY in your environment before starting the server.")
		}
	}

	configPath := ".gearbox.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
