// Command finch runs the Twitter bot: an agent runtime with the Twitter
// plugin composing and publishing tweets on a timer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finchbot/finch/agent"
	"github.com/finchbot/finch/config"
	"github.com/finchbot/finch/llm"
	"github.com/finchbot/finch/memory"
	"github.com/finchbot/finch/personality"
	"github.com/finchbot/finch/plugin"
	"github.com/finchbot/finch/twitter"
	"github.com/finchbot/finch/xclient"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "finch",
		Short:         "An autonomous Twitter bot with a configurable personality",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	return cmd
}

func run() error {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetLogLevel(),
	}))
	slog.SetDefault(log)

	config.LoadEnv(log)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	persona, err := personality.Load(cfg.PersonalityPath)
	if err != nil {
		return err
	}
	log.Info("personality loaded", slog.String("name", persona.Name))

	client, err := xclient.New(xclient.Config{
		Username:   cfg.TwitterUsername,
		Password:   cfg.TwitterPassword,
		Email:      cfg.TwitterEmail,
		TOTPSecret: cfg.TOTPSecret,
		Proxy:      cfg.Proxy,
	})
	if err != nil {
		return fmt.Errorf("twitter client: %w", err)
	}

	session := twitter.NewSession(client, twitter.Credentials{
		Username: cfg.TwitterUsername,
		Password: cfg.TwitterPassword,
		Email:    cfg.TwitterEmail,
	}, twitter.WithLogger(log))
	poster := twitter.NewPoster(session, log)

	store, err := memory.Open(memory.Config{
		Path:   cfg.DBPath,
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	provider := llm.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)

	rt := agent.NewRuntime(provider, agent.WithRuntimeLogger(log))
	rt.Register(plugin.NewTwitter(session, poster, persona, store,
		plugin.WithTweetInterval(cfg.TweetInterval),
		plugin.WithLogger(log),
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting agent runtime", slog.Duration("tweet_interval", cfg.TweetInterval))
	rt.Start(ctx)

	<-ctx.Done()
	log.Info("shutting down")
	rt.Stop()
	return nil
}
