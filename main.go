package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	orchestratorx "github.com/tanpawarit/dep-brain/agent/agents/orchestrator"
	stagex "github.com/tanpawarit/dep-brain/agent/agents/stage"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	llmx "github.com/tanpawarit/dep-brain/agent/llm"
	memoryx "github.com/tanpawarit/dep-brain/agent/memory"
	searchx "github.com/tanpawarit/dep-brain/agent/search"
	statex "github.com/tanpawarit/dep-brain/agent/state"
	configx "github.com/tanpawarit/dep-brain/pkg/config"
	logx "github.com/tanpawarit/dep-brain/pkg/logger"
	_ "github.com/tanpawarit/dep-brain/pkg/logger/autoload"
)

const flowAuto = "auto"

type brain interface {
	Dispatch(ctx context.Context, query string) (*statex.QueryState, error)
	Run(ctx context.Context, flow contractx.Flow, query string) (*statex.QueryState, error)
}

type options struct {
	envFile  string
	flow     string
	showLogs bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("query failed")
		fmt.Fprintln(os.Stderr, "Error: the query could not be processed.")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "dep-brain <query>",
		Short:         "Route a query through a multi-stage reasoning pipeline",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env", "", "Path to a .env file (default ./.env if present)")
	cmd.Flags().StringVar(&opts.flow, "flow", flowAuto,
		"Flow to run: auto, sequential, parallel, logical, creative, fast")
	cmd.Flags().BoolVar(&opts.showLogs, "show-logs", false, "Print the pipeline log after the answer")
	return cmd
}

func runQuery(cmd *cobra.Command, opts *options, query string) error {
	flow, auto, err := parseFlowFlag(opts.flow)
	if err != nil {
		return err
	}

	configx.SetEnvFile(opts.envFile)
	if logCfg, err := configx.New[logx.Config]("LOG"); err == nil {
		logx.Init(*logCfg)
	}

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return err
	}
	searchCfg, err := configx.New[searchx.Config]("SEARCH")
	if err != nil {
		return err
	}
	memCfg, err := configx.New[memoryx.Config]("MEMORY")
	if err != nil {
		return err
	}
	brainCfg, err := configx.New[orchestratorx.Config]("BRAIN")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	searcher, err := searchx.NewTavilyClient(*searchCfg)
	if err != nil {
		return err
	}
	if !searcher.Available() {
		log.Warn().Msg("SEARCH_API_KEY not set, web search disabled")
	}

	store, err := memoryx.New(ctx, *memCfg)
	if err != nil {
		log.Warn().Err(err).Str("backend", memCfg.Backend).Msg("long-term memory unavailable, continuing without it")
		store = memoryx.Noop{}
	}
	defer store.Close()

	registry, err := stagex.NewRegistry(ctx, *llmCfg, searcher, store, stagex.Options{
		TopK:   memCfg.TopK,
		Recall: memCfg.Recall,
	})
	if err != nil {
		return err
	}

	orch, err := orchestratorx.New(registry, store, *brainCfg)
	if err != nil {
		return err
	}
	defer orch.Wait()

	return execute(ctx, orch, flow, auto, query, cmd.OutOrStdout(), opts.showLogs)
}

func execute(
	ctx context.Context,
	b brain,
	flow contractx.Flow,
	auto bool,
	query string,
	out io.Writer,
	showLogs bool,
) error {
	var (
		qs  *statex.QueryState
		err error
	)
	if auto {
		qs, err = b.Dispatch(ctx, query)
	} else {
		qs, err = b.Run(ctx, flow, query)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, qs.FinalOutput)
	if showLogs {
		printLogs(out, qs)
	}
	return nil
}

func printLogs(out io.Writer, qs *statex.QueryState) {
	fmt.Fprintf(out, "\n--- %s flow (query %s) ---\n", qs.Flow, qs.ID)
	for _, e := range qs.Logs() {
		fmt.Fprintf(out, "[%s] %s\n", e.Source, e.Message)
	}
}

func parseFlowFlag(raw string) (contractx.Flow, bool, error) {
	if v := strings.ToLower(strings.TrimSpace(raw)); v == "" || v == flowAuto {
		return "", true, nil
	}
	flow, ok := contractx.ParseFlow(raw)
	if !ok {
		return "", false, fmt.Errorf("%w: invalid --flow %q", contractx.ErrValidation, raw)
	}
	return flow, false, nil
}
