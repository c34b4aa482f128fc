package main

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billdocs/internal/batch"
	"github.com/JonMunkholm/billdocs/internal/bundle"
	"github.com/JonMunkholm/billdocs/internal/config"
	"github.com/JonMunkholm/billdocs/internal/core"
	"github.com/JonMunkholm/billdocs/internal/markup"
	"github.com/JonMunkholm/billdocs/internal/pipeline"
	"github.com/JonMunkholm/billdocs/internal/render"
)

// newProcessor wires the per-file pipeline. The returned chain must be
// closed once processing is over.
func newProcessor(cfg *config.Config) (*pipeline.Processor, *render.Chain, error) {
	rules, err := billingRules(cfg.Billing)
	if err != nil {
		return nil, nil, err
	}
	chain, err := render.FromConfig(cfg.Render)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(markup.New(), chain, bundle.New(), rules), chain, nil
}

// billingRules converts the configured premium and deductions.
func billingRules(cfg config.BillingConfig) (core.Rules, error) {
	specs, err := cfg.DeductionSpecs()
	if err != nil {
		return core.Rules{}, fmt.Errorf("billing rules: %w", err)
	}
	rates := make([]core.DeductionRate, len(specs))
	for i, s := range specs {
		rates[i] = core.NewDeductionRate(s.Key, s.Percent)
	}
	return core.Rules{
		PremiumPercent: decimal.NewFromFloat(cfg.PremiumPercent),
		Deductions:     rates,
	}, nil
}

// batchOptions maps config onto orchestrator options.
func batchOptions(cfg config.BatchConfig) batch.Options {
	return batch.Options{
		Mode:         cfg.Mode,
		Workers:      cfg.EffectiveWorkers(),
		ReclaimEvery: cfg.ReclaimEvery,
		Extensions:   cfg.Extensions,
	}
}

// userError prefixes err with its user-facing message and error code when
// it maps to one.
func userError(err error) error {
	if err == nil || !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
}
