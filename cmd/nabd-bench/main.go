// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command nabd-bench drives a producer and a consumer goroutine against a
// region and reports throughput via nabd's own Snapshot/Throughput helpers.
// It is an external collaborator: it adds no invariants of its own, only
// configuration (flags) and reporting (zap logging).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/YASSERRMD/nabd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newBenchCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBenchCmd() *cobra.Command {
	var (
		name       string
		capacity   int
		slotSize   int
		payloadLen int
		duration   time.Duration
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "nabd-bench",
		Short: "Push/pop throughput benchmark for a nabd region",
		RunE: func(cmd *cobra.Command, args []string) error {
			var logger *zap.Logger
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			defer logger.Sync()

			r, err := nabd.Open(name,
				nabd.WithFlags(nabd.FlagCreate|nabd.FlagProducer|nabd.FlagConsumer),
				nabd.WithCapacity(capacity),
				nabd.WithSlotSize(slotSize),
			)
			if err != nil {
				return err
			}
			defer r.Close()
			defer nabd.Unlink(name)

			logger.Info("region opened",
				zap.String("name", name),
				zap.Int("capacity", r.Cap()),
				zap.Int("slot_size", r.SlotSize()),
			)

			payload := make([]byte, payloadLen)
			stop := make(chan struct{})
			done := make(chan struct{})

			go func() {
				defer close(done)
				buf := make([]byte, slotSize)
				for {
					select {
					case <-stop:
						return
					default:
						if _, err := r.Pop(buf); err != nil {
							time.Sleep(time.Microsecond)
						}
					}
				}
			}()

			start := r.TakeSnapshot(uint64(time.Now().UnixNano()))
			deadline := time.Now().Add(duration)
			for time.Now().Before(deadline) {
				if err := r.PushBackoff(payload, 0, time.Microsecond); err != nil {
					logger.Warn("push failed", zap.Error(err))
				}
			}
			close(stop)
			<-done
			end := r.TakeSnapshot(uint64(time.Now().UnixNano()))

			logger.Info("benchmark complete",
				zap.Float64("throughput_msgs_per_sec", nabd.Throughput(start, end)),
				zap.Int("fill_level_pct", r.FillLevel()),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "/nabd-bench", "region name")
	cmd.Flags().IntVar(&capacity, "capacity", 4096, "ring capacity in slots")
	cmd.Flags().IntVar(&slotSize, "slot-size", 256, "bytes per slot")
	cmd.Flags().IntVar(&payloadLen, "payload-len", 64, "bytes per pushed message")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run the producer")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "development console logging instead of production JSON")
	return cmd
}
