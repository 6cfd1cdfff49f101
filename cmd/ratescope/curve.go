package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"rateScope/internal/rates"
)

type curveRow struct {
	rates.CurvePoint
	BorrowAPRText string `json:"borrow_apr_text"`
}

func newCurveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the rate curve of a model for a given full utilization rate",
		RunE:  runCurve,
	}
	addModelFlags(cmd.Flags())
	cmd.Flags().String("anchor", "", "full utilization rate, defaults to the model minimum")
	cmd.Flags().Int("steps", 20, "number of utilization intervals to sample")
	return cmd
}

func runCurve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := modelFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	anchor := &m.MinFullUtilizationRate
	if raw, _ := cmd.Flags().GetString("anchor"); raw != "" {
		if anchor, err = parseFlagUint256(raw); err != nil {
			return fmt.Errorf("--anchor: %w", err)
		}
	}
	steps, _ := cmd.Flags().GetInt("steps")

	points, err := rates.Curve(m, anchor, steps)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, p := range points {
		if err := enc.Encode(curveRow{CurvePoint: p, BorrowAPRText: rates.FormatPercent(p.BorrowAPR)}); err != nil {
			return err
		}
	}
	return nil
}
