// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/larkkit/lark-sdk-go/utils"
)

var (
	tenantKey string
	showToken bool
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tenantKey, "tenant-key", "", "Tenant to get the token for, required for marketplace apps.")
	tokenCmd.Flags().BoolVar(&showToken, "show", false, "Print the whole token instead of its last characters.")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Get a tenant access token for the configured app",
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

		token, err := c.Tokens().TenantAccessToken(ctx, tenantKey)
		if err != nil {
			return err
		}
		if !showToken {
			token = utils.LastN(token, 6)
		}
		fmt.Println(token)
		return nil
	},
}
