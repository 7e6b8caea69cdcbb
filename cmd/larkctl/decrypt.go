// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/larkkit/lark-sdk-go/encrypter"
	"github.com/larkkit/lark-sdk-go/utils"
)

var encryptKey string

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().StringVar(&encryptKey, "key", "", "Encrypt key; defaults to the configured one.")
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [ciphertext|-]",
	Short: "Decrypt an event payload",
	Long: "Decrypts the value of an event's \"encrypt\" field, or a whole {\"encrypt\": ...} body. " +
		"Reads from stdin when the argument is \"-\" or missing.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := encryptKey
		if key == "" {
			conf, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			key = conf.EncryptKey
		}
		if key == "" {
			return errors.New("no encrypt key, use --key or configure encrypt_key")
		}

		in := ""
		if len(args) == 1 && args[0] != "-" {
			in = args[0]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return errors.Wrap(err, "failed to read stdin")
			}
			in = string(data)
		}
		in = strings.TrimSpace(in)

		if strings.HasPrefix(in, "{") {
			body := struct {
				Encrypt string `json:"encrypt"`
			}{}
			if err := json.Unmarshal([]byte(in), &body); err != nil {
				return errors.Wrap(err, "failed to parse body")
			}
			in = body.Encrypt
		}

		plain, err := encrypter.NewAESCipher(key).Decrypt(in)
		if err != nil {
			return err
		}
		var v interface{}
		if json.Unmarshal([]byte(plain), &v) == nil {
			plain = utils.Pretty(v)
		}
		fmt.Println(plain)
		return nil
	},
}
