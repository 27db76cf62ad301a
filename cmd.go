package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	app "github.com/rocketscienceinc/tictactoe-engine/internal"
	"github.com/rocketscienceinc/tictactoe-engine/internal/config"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/tui"
)

type rootFlags struct {
	configPath string
	envPath    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:          "tictactoe",
		Short:        "Tic-tac-toe game engine",
		Long:         `Plays tic-tac-toe in the terminal or serves it to remote presenters over HTTP and WebSocket.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "config.yml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&flags.envPath, "env", ".env", "path to .env file (ignored if missing)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newPlayCmd(),
		newConfigCmd(flags),
	)

	return rootCmd
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := initConfig(flags)

			if port != "" {
				conf.HTTPPort = port
			}

			logger := initLogger(conf.SlogLevel(), cmd.OutOrStdout())

			if err := app.RunApp(logger, conf); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides http-port)")

	return cmd
}

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play a local game in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			program := tea.NewProgram(
				tui.New(entity.NewGame()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)

			if _, err := program.Run(); err != nil {
				return fmt.Errorf("terminal ui failed: %w", err)
			}

			return nil
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.Load(flags.envPath, flags.configPath)
			if err != nil {
				return err
			}

			return printConfig(cmd.OutOrStdout(), conf)
		},
	}
}

func printConfig(w io.Writer, conf *config.Config) error {
	redacted := *conf
	if redacted.Redis.Password != "" {
		redacted.Redis.Password = "***"
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(&redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return encoder.Close()
}
