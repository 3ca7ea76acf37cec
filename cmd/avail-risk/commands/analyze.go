package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"avail-risk/internal/engine"
	"avail-risk/internal/probability"
)

var (
	entityID   string
	entityIDs  []string
	values     []float64
	threshold  float64
	horizon    string
	year       int
	exposure   float64
	target     float64
	trials     int
	bootstrap  int
	penaltyFac float64
	bonusFac   float64
	price      float64
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// thresholdFlag returns --threshold when given, else the contractual value.
func thresholdFlag(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("threshold") {
		return threshold
	}
	return cfg.Contract.Threshold
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Per-year availability statistics of an entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ys, err := eng.AggregateStats(entityID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ys)
	},
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit candidate distributions to an entity or to --values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if entityID != "" && len(values) > 0 {
			return fmt.Errorf("use either --entity or --values")
		}
		if entityID != "" {
			fd, err := eng.FitEntity(entityID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fd)
		}
		fd, err := eng.FitDistribution(values)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), fd)
	},
}

var probabilityCmd = &cobra.Command{
	Use:   "probability",
	Short: "Probability of availability falling below a threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := probability.ParseHorizon(horizon)
		if err != nil {
			return err
		}
		est, err := eng.EstimateProbability(cmd.Context(), entityID, thresholdFlag(cmd), h)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), est)
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Contractual penalty or bonus of an entity for one year",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := eng.ContractParams()
		p.Threshold = thresholdFlag(cmd)
		if cmd.Flags().Changed("penalty-factor") {
			p.PenaltyFactor = penaltyFac
		}
		if cmd.Flags().Changed("bonus-factor") {
			p.BonusFactor = bonusFac
		}
		if cmd.Flags().Changed("price") {
			p.EnergyPrice = price
		}
		var mwh *float64
		if cmd.Flags().Changed("exposure") {
			mwh = &exposure
		}

		out, err := eng.ComputeFinancialImpact(entityID, year, p, mwh)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Monte-Carlo simulation of the portfolio's total annual penalty",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := engine.PortfolioParams{EntityIDs: entityIDs, TargetPenalty: target}
		if cmd.Flags().Changed("trials") {
			p.Trials = &trials
		}
		if cmd.Flags().Changed("bootstrap") {
			p.BootstrapSamples = &bootstrap
		}
		res, err := eng.RunPortfolioSimulation(cmd.Context(), p)
		if err != nil {
			return err
		}
		res.TrialTotals = nil
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Annual mean availability with its moving average",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := eng.AnnualTrend(entityID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), tr)
	},
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Seasonal decomposition of monthly availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := eng.Decompose(entityID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), d)
	},
}

var intervalCmd = &cobra.Command{
	Use:   "interval",
	Short: "Bootstrap confidence interval of mean availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		mi, err := eng.MeanConfidenceInterval(cmd.Context(), entityID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), mi)
	},
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, probabilityCmd, impactCmd, trendCmd, decomposeCmd, intervalCmd} {
		c.Flags().StringVarP(&entityID, "entity", "e", "", "wind farm identifier")
		_ = c.MarkFlagRequired("entity")
	}
	fitCmd.Flags().StringVarP(&entityID, "entity", "e", "", "wind farm identifier")
	fitCmd.Flags().Float64SliceVar(&values, "values", nil, "raw availability sample, comma separated")

	for _, c := range []*cobra.Command{probabilityCmd, impactCmd} {
		c.Flags().Float64Var(&threshold, "threshold", 0, "availability threshold (default: contractual threshold)")
	}
	probabilityCmd.Flags().StringVar(&horizon, "horizon", string(probability.Monthly), "monthly or annual")

	impactCmd.Flags().IntVar(&year, "year", 0, "contract year")
	_ = impactCmd.MarkFlagRequired("year")
	impactCmd.Flags().Float64Var(&exposure, "exposure", 0, "annual energy exposure in MWh (default: derived from turbine count)")
	impactCmd.Flags().Float64Var(&penaltyFac, "penalty-factor", 0, "penalty factor (default: configured)")
	impactCmd.Flags().Float64Var(&bonusFac, "bonus-factor", 0, "bonus factor (default: configured)")
	impactCmd.Flags().Float64Var(&price, "price", 0, "energy price per MWh (default: configured)")

	simulateCmd.Flags().StringSliceVar(&entityIDs, "entities", nil, "entities in the portfolio (default: all)")
	simulateCmd.Flags().Float64Var(&target, "target", 0, "total annual penalty threshold")
	simulateCmd.Flags().IntVar(&trials, "trials", 0, "trial count (default: configured)")
	simulateCmd.Flags().IntVar(&bootstrap, "bootstrap", 0, "bootstrap sample count (default: configured)")
}
