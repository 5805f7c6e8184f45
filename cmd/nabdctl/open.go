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

func newOpenCmd() *cobra.Command {
	var capacity, slotSize int
	var spmc bool

	cmd := &cobra.Command{
		Use:   "open NAME",
		Short: "Create a region if absent and report its geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []nabd.OptionFunc{
				nabd.WithFlags(nabd.FlagCreate | nabd.FlagProducer | nabd.FlagConsumer),
				nabd.WithCapacity(capacity),
				nabd.WithSlotSize(slotSize),
			}
			if spmc {
				opts = append(opts, nabd.WithSPMC())
			}

			r, err := nabd.Open(args[0], opts...)
			if err != nil {
				logger.Warn("open failed", zap.String("name", args[0]), zap.Error(err))
				return err
			}
			defer r.Close()

			logger.Info("region opened",
				zap.String("name", args[0]),
				zap.Int("capacity", r.Cap()),
				zap.Int("slot_size", r.SlotSize()),
				zap.Bool("spmc", spmc),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "opened %s: capacity=%d slot_size=%d spmc=%v\n",
				args[0], r.Cap(), r.SlotSize(), spmc)
			return nil
		},
	}
	cmd.Flags().IntVar(&capacity, "capacity", 1024, "ring capacity in slots (rounded up to a power of two)")
	cmd.Flags().IntVar(&slotSize, "slot-size", 4096, "bytes per slot, including the 8-byte header")
	cmd.Flags().BoolVar(&spmc, "spmc", false, "allocate the multi-consumer table for fan-out")
	return cmd
}
