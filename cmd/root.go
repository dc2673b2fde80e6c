/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/glossator/internal/settings"
)

var version = "0.1.0"

var (
	cfgFile string
	verbose bool

	v      = viper.New()
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   "glossator",
	Short: "Glossary-driven literary translation assistant",
	Long: `A CLI application that translates novels chapter by chapter with an AI
provider while keeping names and terms consistent through a project glossary.

New terms are extracted from the chapters, confirmed by a person and then
enforced in every translation prompt.

Supported providers: Gemini, OpenAI, DeepSeek, OpenRouter, Ollama, Google Translate

Configuration is read from glossator.yaml, GLOSSATOR_* environment variables
and a .env file. Command-line flags take precedence.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./glossator.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("db", "./data/glossator.db", "Database path")
	pf.StringP("project", "p", "default", "Project ID")
	pf.String("provider", "", "AI provider: gemini, openai, deepseek, openrouter, ollama, google")
	pf.String("model", "", "Model override for the selected provider")
	pf.StringP("source", "s", "auto", "Source language (auto detects it from the chapters)")
	pf.StringP("target", "t", "", "Target language, e.g. Vietnamese")

	for key, flag := range map[string]string{
		"db":          "db",
		"project":     "project",
		"provider":    "provider",
		"model":       "model",
		"source_lang": "source",
		"target_lang": "target",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig layers defaults, the config file, the environment and flags.
func initConfig() error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	settings.Defaults(v)
	v.SetDefault("db", "./data/glossator.db")
	v.SetDefault("project", "default")
	v.SetDefault("source_lang", "auto")
	v.SetDefault("target_lang", "")

	v.SetEnvPrefix("GLOSSATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("glossator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/glossator")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return nil
}
