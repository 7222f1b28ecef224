package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"beatwatch/internal/classifier"
	"beatwatch/internal/config"
	"beatwatch/internal/digest"
	"beatwatch/internal/logging"
	"beatwatch/internal/notifications"
	"beatwatch/internal/reddit"
	"beatwatch/internal/store"
	"beatwatch/internal/supervisor"
	"beatwatch/internal/watcher"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the watcher until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			// One id per daemon run so every line from this process can be
			// correlated across restarts sharing a log file.
			logger = logger.With(logging.String(logging.FieldSessionID, uuid.NewString()))

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			cls := buildClassifier(cfg)
			notifier := notifications.NewService(cfg, logger)
			client := reddit.NewClient(cfg.Reddit)

			backoff := time.Duration(cfg.Watcher.StreamBackoff) * time.Second
			watchers := make([]supervisor.Runner, 0, 2)
			for _, kind := range []string{watcher.KindSubmission, watcher.KindComment} {
				feed := watcher.NewSubmissionFeed(client)
				if kind == watcher.KindComment {
					feed = watcher.NewCommentFeed(client)
				}
				w, err := watcher.New(watcher.Config{
					Kind:          kind,
					Feed:          feed,
					Classifier:    cls,
					Records:       st,
					Notifier:      notifier,
					Backoff:       backoff,
					InsertRetries: cfg.Watcher.InsertRetries,
					Logger:        logger,
				})
				if err != nil {
					return fmt.Errorf("build %s watcher: %w", kind, err)
				}
				watchers = append(watchers, w)
			}

			opts := []supervisor.Option{supervisor.WithReadiness(cls)}
			job, err := digest.New(cfg, st, notifier, logger)
			if err != nil {
				return fmt.Errorf("build digest job: %w", err)
			}
			if job != nil {
				opts = append(opts, supervisor.WithJob(job))
			}

			sup, err := supervisor.New(cfg, logger, watchers, opts...)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sup.Start(runCtx); err != nil {
				return err
			}
			logger.Info("watching subreddit", logging.Args(
				logging.String("subreddit", cfg.Reddit.Subreddit),
				logging.String(logging.FieldEventType, "startup"),
			)...)

			<-runCtx.Done()
			sup.Stop()
			return nil
		},
	}
}

func buildClassifier(cfg *config.Config) *classifier.Client {
	opts := []classifier.Option{
		classifier.WithConfidenceThreshold(cfg.Classifier.ConfidenceThreshold),
	}
	if cfg.Classifier.RequestTimeout > 0 {
		opts = append(opts, classifier.WithTimeout(time.Duration(cfg.Classifier.RequestTimeout)*time.Second))
	}
	if cfg.Classifier.PrefilterEnabled {
		opts = append(opts, classifier.WithPrefilter(classifier.NewPrefilter()))
	}
	return classifier.NewClient(cfg.Classifier.BaseURL, opts...)
}
