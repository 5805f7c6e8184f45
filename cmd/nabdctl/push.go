// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/YASSERRMD/nabd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push NAME PAYLOAD",
		Short: "Push a single message onto an existing region",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := nabd.Open(args[0], nabd.WithFlags(nabd.FlagProducer))
			if err != nil {
				logger.Warn("open failed", zap.String("name", args[0]), zap.Error(err))
				return err
			}
			defer r.Close()

			if err := r.Push([]byte(args[1])); err != nil {
				logger.Warn("push failed", zap.String("name", args[0]), zap.Error(err))
				return err
			}
			logger.Info("pushed", zap.String("name", args[0]), zap.Int("bytes", len(args[1])))
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %d bytes to %s\n", len(args[1]), args[0])
			return nil
		},
	}
	return cmd
}
