package mcp

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"avail-risk/internal/probability"
)

type LoadDatasetInput struct {
	Path string `json:"path" jsonschema:"Path of a .jsonl or .xlsx long-format dataset (entity_id, year, month, turbine_count, availability)"`
}

type ListEntitiesInput struct{}

type EntityInput struct {
	EntityID string `json:"entity_id" jsonschema:"The wind farm identifier"`
}

type FitDistributionInput struct {
	EntityID string    `json:"entity_id,omitempty" jsonschema:"Fit the pooled monthly availability of this wind farm"`
	Sample   []float64 `json:"sample,omitempty" jsonschema:"Fit this raw availability sample instead of an entity"`
}

type EstimateProbabilityInput struct {
	EntityID  string   `json:"entity_id" jsonschema:"The wind farm identifier"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"Availability threshold; defaults to the contractual threshold"`
	Horizon   string   `json:"horizon" jsonschema:"monthly or annual"`
}

type FinancialImpactInput struct {
	EntityID       string   `json:"entity_id" jsonschema:"The wind farm identifier"`
	Year           int      `json:"year" jsonschema:"Contract year whose mean availability is evaluated"`
	Threshold      *float64 `json:"threshold,omitempty" jsonschema:"Contractual availability; defaults to the configured value"`
	PenaltyFactor  *float64 `json:"penalty_factor,omitempty"`
	BonusFactor    *float64 `json:"bonus_factor,omitempty"`
	EnergyPrice    *float64 `json:"energy_price_per_mwh,omitempty"`
	EnergyExposure *float64 `json:"energy_exposure_mwh,omitempty" jsonschema:"Annual energy at stake; derived from the turbine count when omitted"`
}

type PortfolioInput struct {
	EntityIDs            []string `json:"entity_ids,omitempty" jsonschema:"Wind farms in the portfolio; every loaded farm when omitted"`
	TargetPenalty        float64  `json:"target_penalty" jsonschema:"Total annual penalty whose exceedance probability is reported"`
	TrialCount           *int     `json:"trial_count,omitempty"`
	BootstrapSampleCount *int     `json:"bootstrap_sample_count,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "load_dataset",
		Description: "Load a monthly availability dataset, replacing the current one. Guidance: call 'list_entities' next to see the wind farms it contains.",
	}, toolHandler("load_dataset", s.handleLoadDataset))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_entities",
		Description: "List the loaded wind farms with their record counts, missing months, year range and latest turbine count.",
	}, toolHandler("list_entities", s.handleListEntities))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "aggregate_stats",
		Description: "Per-year availability statistics of a wind farm: mean, sample standard deviation, median and sample count. Years without a valid month are omitted.",
	}, toolHandler("aggregate_stats", s.handleAggregateStats))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "fit_distribution",
		Description: "Fit Normal, LogNormal, Beta, Weibull and Gamma distributions to monthly availability and select the best by Kolmogorov-Smirnov p-value (ties broken by AIC). " +
			"Provide either 'entity_id' or 'sample'. \n\n" +
			"If no family is accepted the result falls back to the EMPIRICAL distribution with a low confidence tag. YOU MUST report that confidence tag to the user.",
	}, toolHandler("fit_distribution", s.handleFitDistribution))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "estimate_probability",
		Description: "Estimate the probability that a wind farm's availability falls below a threshold over a monthly or annual horizon. " +
			"Annual parametric estimates are simulated from the fitted distribution; empirical ones use historical annual means.",
		InputSchema: estimateProbabilitySchema(),
	}, toolHandler("estimate_probability", s.handleEstimateProbability))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compute_financial_impact",
		Description: "Compute the contractual penalty or bonus and the energy delta of a wind farm for one year. Omitted terms use the configured contract.",
	}, toolHandler("compute_financial_impact", s.handleComputeFinancialImpact))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "run_portfolio_simulation",
		Description: "Run a Monte-Carlo simulation of the total annual penalty of a wind farm portfolio. " +
			"Returns the probability of exceeding 'target_penalty', a bootstrap confidence interval of the mean total and the P5/P50/P95 spread. \n\n" +
			"STRICT GUARDRAIL: do not quote probabilities if the tool fails.",
	}, toolHandler("run_portfolio_simulation", s.handleRunPortfolioSimulation))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_annual_trend",
		Description: "Annual mean availability of a wind farm with its trailing moving average.",
	}, toolHandler("get_annual_trend", s.handleAnnualTrend))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_seasonal_decomposition",
		Description: "Additive decomposition of a wind farm's monthly availability into trend, seasonal and residual components. Requires at least two years of history.",
	}, toolHandler("get_seasonal_decomposition", s.handleSeasonalDecomposition))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_mean_confidence_interval",
		Description: "Bootstrap 95% confidence interval for the mean monthly availability of a wind farm.",
	}, toolHandler("get_mean_confidence_interval", s.handleMeanConfidenceInterval))
}

func estimateProbabilitySchema() *jsonschema.Schema {
	schema, err := jsonschema.For[EstimateProbabilityInput](nil)
	if err != nil {
		panic(fmt.Sprintf("estimate_probability schema: %v", err))
	}
	schema.Properties["horizon"].Enum = []any{string(probability.Monthly), string(probability.Annual)}
	return schema
}
