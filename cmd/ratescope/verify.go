package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type verifyResult struct {
	Name  string   `json:"name,omitempty"`
	Pool  string   `json:"pool"`
	Asset string   `json:"asset"`
	Match bool     `json:"match"`
	Diff  []string `json:"diff,omitempty"`
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare configured rate models with the models stored on-chain",
		RunE:  runVerify,
	}
	addChainFlags(cmd.Flags())
	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	checked, mismatched := 0, 0
	for _, asset := range cfg.Assets {
		if !asset.HasModel() {
			logger.Info("skip asset without configured model", zap.String("name", asset.Name))
			continue
		}
		ref, err := asset.Ref(cfg.Pool)
		if err != nil {
			return err
		}
		want, err := asset.InterestRateModel()
		if err != nil {
			return err
		}
		got, err := sess.reader.InterestRateConfig(ctx, ref)
		if err != nil {
			return fmt.Errorf("read model for %s: %w", ref, err)
		}

		diff := want.Diff(got)
		result := verifyResult{Name: asset.Name, Pool: ref.Pool, Asset: ref.Asset, Match: len(diff) == 0, Diff: diff}
		if err := enc.Encode(result); err != nil {
			return err
		}
		checked++
		if !result.Match {
			mismatched++
			logger.Warn("model mismatch", zap.String("asset", ref.String()), zap.Strings("fields", diff))
		}
	}

	if checked == 0 {
		return fmt.Errorf("no asset has a configured model")
	}
	if mismatched > 0 {
		return fmt.Errorf("%d of %d models differ from on-chain config", mismatched, checked)
	}
	return nil
}
