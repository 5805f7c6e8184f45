// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"strconv"

	"github.com/YASSERRMD/nabd"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDiagnoseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagnose NAME",
		Short: "Classify a region's state without disturbing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := nabd.Diagnose(args[0])
			if err != nil {
				logger.Warn("diagnose failed", zap.String("name", args[0]), zap.Error(err))
				return err
			}
			logger.Info("diagnosed", zap.String("name", args[0]), zap.String("state", d.State.String()))

			if asJSON {
				return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout()).Encode(d)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"field", "value"})
			table.Append([]string{"magic_ok", strconv.FormatBool(d.MagicOK)})
			table.Append([]string{"version_ok", strconv.FormatBool(d.VersionOK)})
			table.Append([]string{"state", d.State.String()})
			table.Append([]string{"head", strconv.FormatUint(d.Head, 10)})
			table.Append([]string{"tail", strconv.FormatUint(d.Tail, 10)})
			table.Append([]string{"capacity", strconv.FormatUint(d.Capacity, 10)})
			table.Append([]string{"pending", strconv.FormatUint(d.Pending, 10)})
			table.Append([]string{"last_activity_ns", strconv.FormatUint(d.LastActivityNs, 10)})
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the diagnosis as JSON instead of a table")
	return cmd
}
