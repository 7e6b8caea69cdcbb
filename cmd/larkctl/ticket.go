// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ticketCmd)
	ticketCmd.AddCommand(ticketResendCmd)
}

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Manage the app ticket of a marketplace app",
}

var ticketResendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Ask the platform to push the app ticket to the event callback again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conf, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		sdkLog, err := sdkLogger(conf)
		if err != nil {
			return err
		}
		c, err := makeClient(ctx, conf, sdkLog, nil)
		if err != nil {
			return err
		}
		if c.Tickets() == nil {
			return errors.New("app tickets are only used by marketplace apps, set app_type to isv")
		}

		// The client may already have requested one on startup.
		c.Tickets().Wait()
		if err = c.Tickets().Resend(ctx); err != nil {
			return err
		}
		log.Info("requested an app ticket resend", "app_id", conf.AppID)
		return nil
	},
}
