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

func newPopCmd() *cobra.Command {
	var bufSize int
	var groupID uint32

	cmd := &cobra.Command{
		Use:   "pop NAME",
		Short: "Pop a single message from an existing region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := nabd.Open(args[0], nabd.WithFlags(nabd.FlagConsumer))
			if err != nil {
				logger.Warn("open failed", zap.String("name", args[0]), zap.Error(err))
				return err
			}
			defer r.Close()

			buf := make([]byte, bufSize)
			var n int
			if groupID != 0 {
				h, err := r.ConsumerJoin(groupID)
				if err != nil {
					logger.Warn("consumer join failed", zap.String("name", args[0]), zap.Uint32("group", groupID), zap.Error(err))
					return err
				}
				n, err = h.Pop(buf)
				if err != nil {
					logger.Warn("pop failed", zap.String("name", args[0]), zap.Uint32("group", groupID), zap.Error(err))
					return err
				}
			} else {
				n, err = r.Pop(buf)
				if err != nil {
					logger.Warn("pop failed", zap.String("name", args[0]), zap.Error(err))
					return err
				}
			}

			logger.Info("popped", zap.String("name", args[0]), zap.Int("bytes", n))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", buf[:n])
			return nil
		},
	}
	cmd.Flags().IntVar(&bufSize, "buf-size", 4096, "destination buffer size in bytes")
	cmd.Flags().Uint32Var(&groupID, "group", 0, "consumer group id to pop from (0 = single-consumer tail)")
	return cmd
}
