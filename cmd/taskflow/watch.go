package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"taskflow/internal/notify"
	"taskflow/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func watchCmd(a *app) *cobra.Command {
	var failuresOnly bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print task notifications published to the redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rdb := storage.NewRedisClient(storage.RedisConfigFromConfig(a.cfg))
			defer rdb.Close()

			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.GetRedisAddr(), err)
			}

			consumer := newWatchConsumer(a, rdb, failuresOnly)
			return consumer.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&failuresOnly, "failures", false, "only print load, save and validation failures")

	return cmd
}

func newWatchConsumer(a *app, rdb *redis.Client, failuresOnly bool) *notify.Consumer {
	consumer := notify.NewConsumer(notify.ConsumerConfig{
		RedisClient: rdb,
		Queue:       a.cfg.Notify.Queue,
		PollTimeout: 2 * time.Second,
		Logger:      a.log,
	})

	consumer.HandleAll(func(_ context.Context, event notify.Event) error {
		if failuresOnly && !event.Kind.Failure() {
			return nil
		}
		line := fmt.Sprintf("%s  %-17s", event.At.Format(time.RFC3339), event.Kind)
		if event.TaskID != "" {
			line += "  " + event.TaskID
		}
		_, err := fmt.Fprintln(a.out, line)
		return err
	})

	return consumer
}
