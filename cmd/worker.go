/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guardpost/apiserver/internal/logging"
	"github.com/guardpost/apiserver/internal/mq"
	"github.com/guardpost/apiserver/internal/notify"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver queued notification emails",
	Long: `Consumes the notification queue and sends each email over SMTP.
Messages are acknowledged before delivery, so a failed send is logged and
dropped rather than retried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("connect mq: %w", err)
		}
		defer broker.Close()

		logger := logging.L().Named("worker")
		var transport notify.Transport
		if strings.TrimSpace(cfg.Mail.Host) == "" {
			logger.Warn("SMTP_HOST not set, queued emails will only be logged")
			transport = notify.NewLogTransport(logger)
		} else {
			transport, err = notify.NewSMTPTransport(cfg.Mail)
			if err != nil {
				return err
			}
		}

		err = notify.NewWorker(broker, cfg.MQ.NotifyChannel, transport, logger).Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
