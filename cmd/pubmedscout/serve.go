package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/csheth/pubmedscout/internal/llm"
	"github.com/csheth/pubmedscout/internal/logging"
	"github.com/csheth/pubmedscout/internal/pubmed"
	"github.com/csheth/pubmedscout/internal/server"
	"github.com/csheth/pubmedscout/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the search and chat API",
		Long: `serve exposes GET /api/search and POST /api/chat. Searches go to NCBI
E-utilities and are ranked by embedding similarity; chat answers are grounded
in the paper's PMC full text when available, otherwise its abstract. Fetched
paper text is cached in SQLite.`,
		RunE: a.runServe,
	}
	flags := cmd.Flags()
	flags.String("addr", "", "listen address (default :8000)")
	flags.Int("max-results", 0, "default number of search results (1-200)")
	flags.String("db", "", "SQLite path for cached paper text (default in-memory)")
	flags.String("llm-provider", "", "openai or ollama")
	flags.String("llm-model", "", "chat model override")
	flags.String("llm-endpoint", "", "custom OpenAI base URL or Ollama host")
	flags.String("ncbi-api-key", "", "NCBI API key for higher rate limits")
	_ = a.v.BindPFlag("serve.addr", flags.Lookup("addr"))
	_ = a.v.BindPFlag("serve.max_results", flags.Lookup("max-results"))
	_ = a.v.BindPFlag("serve.db_path", flags.Lookup("db"))
	_ = a.v.BindPFlag("llm.provider", flags.Lookup("llm-provider"))
	_ = a.v.BindPFlag("llm.model", flags.Lookup("llm-model"))
	_ = a.v.BindPFlag("llm.endpoint", flags.Lookup("llm-endpoint"))
	_ = a.v.BindPFlag("ncbi.api_key", flags.Lookup("ncbi-api-key"))
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(os.Stderr, logging.Options{Level: a.cfg.LogLevel, Console: true})
	if a.configFile != "" {
		logger.Info().Str("config", a.configFile).Msg("using config file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	llmClient, err := llm.New(llm.Config{
		Provider:         a.cfg.LLM.Provider,
		Model:            a.cfg.LLM.Model,
		EmbeddingModel:   a.cfg.LLM.EmbeddingModel,
		Endpoint:         a.cfg.LLM.Endpoint,
		APIKey:           a.cfg.LLM.APIKey,
		MaxContextTokens: a.cfg.LLM.MaxContextTokens,
	})
	if err != nil {
		return fmt.Errorf("configure llm: %w", err)
	}

	db, err := store.Open(a.cfg.Serve.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	papers := pubmed.NewClient(pubmed.ClientConfig{
		BaseURL: a.cfg.NCBI.BaseURL,
		APIKey:  a.cfg.NCBI.APIKey,
		Email:   a.cfg.NCBI.Email,
	})
	srv := server.New(server.Options{
		Papers:            papers,
		LLM:               llmClient,
		Store:             db,
		Logger:            logger,
		DefaultMaxResults: a.cfg.Serve.MaxResults,
	})
	return srv.ListenAndServe(ctx, a.cfg.Serve.Addr)
}
