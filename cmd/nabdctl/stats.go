// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"strconv"

	"github.com/YASSERRMD/nabd"
	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type statsReport struct {
	Name      string            `json:"name"`
	Capacity  int               `json:"capacity"`
	SlotSize  int               `json:"slot_size"`
	FillLevel int               `json:"fill_level_pct"`
	Head      uint64            `json:"head"`
	Tail      uint64            `json:"tail"`
	Pending   uint64            `json:"pending"`
	Groups    []nabd.GroupStats `json:"groups,omitempty"`
}

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats NAME",
		Short: "Report fill level, occupancy, and per-group lag for a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := nabd.Open(args[0], nabd.WithFlags(nabd.FlagConsumer))
			if err != nil {
				logger.Warn("open failed", zap.String("name", args[0]), zap.Error(err))
				return err
			}
			defer r.Close()

			rep := statsReport{
				Name:      args[0],
				Capacity:  r.Cap(),
				SlotSize:  r.SlotSize(),
				FillLevel: r.FillLevel(),
				Head:      r.Head(),
				Tail:      r.Tail(),
				Pending:   r.Pending(),
				Groups:    r.Groups(),
			}
			logger.Info("stats collected",
				zap.String("name", args[0]),
				zap.Int("fill_level_pct", rep.FillLevel),
				zap.Uint64("pending", rep.Pending),
			)

			if asJSON {
				return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout()).Encode(rep)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"field", "value"})
			table.Append([]string{"capacity", humanize.Comma(int64(rep.Capacity))})
			table.Append([]string{"slot_size", humanize.Bytes(uint64(rep.SlotSize))})
			table.Append([]string{"fill_level", strconv.Itoa(rep.FillLevel) + "%"})
			table.Append([]string{"head", strconv.FormatUint(rep.Head, 10)})
			table.Append([]string{"tail", strconv.FormatUint(rep.Tail, 10)})
			table.Append([]string{"pending", humanize.Comma(int64(rep.Pending))})
			table.Render()

			if len(rep.Groups) > 0 {
				gt := tablewriter.NewWriter(cmd.OutOrStdout())
				gt.SetHeader([]string{"group_id", "tail", "lag"})
				for _, g := range rep.Groups {
					gt.Append([]string{
						strconv.FormatUint(uint64(g.GroupID), 10),
						strconv.FormatUint(g.Tail, 10),
						humanize.Comma(int64(g.Lag)),
					})
				}
				gt.Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON instead of a table")
	return cmd
}
