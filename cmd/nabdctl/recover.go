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

func newRecoverCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "recover NAME",
		Short: "Repair a corrupted or version-mismatched region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := nabd.Recover(args[0], force); err != nil {
				logger.Warn("recover failed", zap.String("name", args[0]), zap.Bool("force", force), zap.Error(err))
				return err
			}
			logger.Info("recovered", zap.String("name", args[0]), zap.Bool("force", force))
			fmt.Fprintf(cmd.OutOrStdout(), "recovered %s (force=%v)\n", args[0], force)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "discard pending messages and reset to empty regardless of classification")
	return cmd
}
