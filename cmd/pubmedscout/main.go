// Package main is the entry point for the pubmedscout CLI: the terminal
// client by default, plus the API backend and a few scripting commands.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/csheth/pubmedscout/internal/chatapi"
	"github.com/csheth/pubmedscout/internal/config"
	"github.com/csheth/pubmedscout/internal/logging"
	"github.com/csheth/pubmedscout/internal/searchapi"
	"github.com/csheth/pubmedscout/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries state shared by every subcommand of one invocation.
type app struct {
	v          *viper.Viper
	cfg        config.Config
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "pubmedscout",
		Short: "Search PubMed and chat with papers from the terminal",
		Long: `pubmedscout is a terminal client for searching PubMed and asking questions
about a paper. The client talks to a small API (run it with "pubmedscout serve")
that queries NCBI E-utilities, ranks results by embedding similarity and answers
questions with OpenAI or Ollama.

Configuration comes from ./pubmedscout.yaml or ~/.config/pubmedscout/pubmedscout.yaml,
PUBMEDSCOUT_* environment variables, and flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			used, err := config.Init(a.v, cfgFile)
			if err != nil {
				return err
			}
			a.configFile = used
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		RunE: a.runTUI,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./pubmedscout.yaml or ~/.config/pubmedscout/pubmedscout.yaml)")
	flags.String("api-url", "", "base URL of the pubmedscout API (default http://localhost:8000)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.Flags().Bool("no-alt-screen", false, "disable the alternate screen buffer")
	root.Flags().String("route", "", "open on a route: / or /chat/<pmid>[/<title>]")
	_ = a.v.BindPFlag("no_alt_screen", root.Flags().Lookup("no-alt-screen"))

	root.AddCommand(newServeCmd(a), newSearchCmd(a), newCiteCmd(a))
	return root
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	logger := zerolog.Nop()
	if logFile, err := logging.OpenFile(logging.DefaultLogPath()); err == nil {
		defer logFile.Close()
		logger = logging.New(logFile, logging.Options{Level: a.cfg.LogLevel})
	}
	if a.configFile != "" {
		logger.Info().Str("config", a.configFile).Msg("using config file")
	}
	route, _ := cmd.Flags().GetString("route")

	model := tui.New(tui.Config{
		Search:       searchapi.New(a.cfg.APIURL),
		Chat:         chatapi.New(a.cfg.APIURL, nil),
		Logger:       &logger,
		InitialRoute: route,
	})
	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !a.cfg.NoAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "pubmedscout:", err)
		os.Exit(1)
	}
}
