package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avail-risk/internal/config"
	"avail-risk/internal/dataset"
	"avail-risk/internal/engine"
	"avail-risk/internal/fitting"
	"avail-risk/internal/probability"
	"avail-risk/internal/riskerr"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Contract: config.Contract{Threshold: 95, PenaltyFactor: 1, BonusFactor: 1, EnergyPrice: 100, EnergyPerTurbinePerDay: 20},
		Simulation: config.Simulation{
			Trials: 200, BootstrapSamples: 100, Seed: 7, Workers: 2, BatchSize: 50, AnnualDraws: 12,
		},
		Analysis: config.Analysis{
			MovingAverageWindow: 3, AcceptancePValue: 0.05, MinAnnualYears: 3,
			AvailabilityScale: string(dataset.Percent), FitCacheSize: 8,
		},
	}
}

func farm(entity string, years int, v float64) []dataset.Record {
	var recs []dataset.Record
	for y := 2022; y < 2022+years; y++ {
		for m := 1; m <= 12; m++ {
			recs = append(recs, dataset.Record{
				EntityID: entity, Year: y, Month: m, TurbineCount: 5,
				Availability: dataset.Float(v),
			})
		}
	}
	return recs
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	e, err := engine.New(testConfig(), nil)
	require.NoError(t, err)
	_, err = e.AddRecords(append(farm("WF-1", 2, 96), farm("WF-2", 1, 92)...))
	require.NoError(t, err)
	return NewServer(e, "test")
}

func TestHandleFitDistribution(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	env, err := s.handleFitDistribution(ctx, FitDistributionInput{EntityID: "WF-1"})
	require.NoError(t, err)
	fd := env.Data.(*fitting.FittedDistribution)
	assert.Equal(t, "WF-1", fd.EntityID)
	assert.True(t, fd.IsEmpirical())
	assert.NotEmpty(t, env.Warnings)

	_, err = s.handleFitDistribution(ctx, FitDistributionInput{EntityID: "WF-1", Sample: []float64{90, 91}})
	assert.ErrorIs(t, err, riskerr.ErrInput)

	_, err = s.handleFitDistribution(ctx, FitDistributionInput{})
	assert.ErrorIs(t, err, riskerr.ErrInput)
}

func TestHandleEstimateProbability(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	env, err := s.handleEstimateProbability(ctx, EstimateProbabilityInput{EntityID: "WF-2", Horizon: "monthly"})
	require.NoError(t, err)
	est := env.Data.(probability.Estimate)
	assert.Equal(t, 95.0, est.Threshold, "defaults to the contractual threshold")
	assert.Equal(t, 1.0, est.Probability)

	env, err = s.handleEstimateProbability(ctx, EstimateProbabilityInput{EntityID: "WF-1", Horizon: "annual"})
	require.NoError(t, err)
	est = env.Data.(probability.Estimate)
	assert.Equal(t, probability.TagInsufficientHistory, est.ConfidenceTag)
	assert.NotEmpty(t, env.Warnings)

	_, err = s.handleEstimateProbability(ctx, EstimateProbabilityInput{EntityID: "WF-1", Horizon: "weekly"})
	assert.ErrorIs(t, err, riskerr.ErrInput)
}

func TestHandleComputeFinancialImpact_Overrides(t *testing.T) {
	s := newTestServer(t)
	threshold := 96.0
	exposure := 1000.0

	env, err := s.handleComputeFinancialImpact(context.Background(), FinancialImpactInput{
		EntityID: "WF-2", Year: 2022, Threshold: &threshold, EnergyExposure: &exposure,
	})
	require.NoError(t, err)
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	// 1 * 100 * 1000 * (96/92 - 1)
	assert.Contains(t, string(data), `"penalty_amount":"4347.83"`)

	zero := 0.0
	env, err = s.handleComputeFinancialImpact(context.Background(), FinancialImpactInput{
		EntityID: "WF-2", Year: 2022, Threshold: &threshold, EnergyExposure: &zero,
	})
	require.NoError(t, err)
	data, err = json.Marshal(env.Data)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"penalty_amount":"0"`)
	assert.Contains(t, string(data), `"energy_exposure_mwh":0`)
}

func TestHandleLoadDataset(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleLoadDataset(ctx, LoadDatasetInput{})
	assert.ErrorIs(t, err, riskerr.ErrInput)

	path := filepath.Join(t.TempDir(), "farms.jsonl")
	store := dataset.NewStore(dataset.BoundFor(dataset.Percent))
	_, err = store.Append(farm("WF-9", 1, 94))
	require.NoError(t, err)
	require.NoError(t, store.SaveJSONL(path))

	env, err := s.handleLoadDataset(ctx, LoadDatasetInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, engine.LoadSummary{Path: path, Records: 12, Entities: 1}, env.Data)

	env, err = s.handleListEntities(ctx, ListEntitiesInput{})
	require.NoError(t, err)
	entities := env.Data.([]engine.EntitySummary)
	require.Len(t, entities, 1)
	assert.Equal(t, "WF-9", entities[0].EntityID)
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{riskerr.NewInput("x", "bad"), "invalid input"},
		{riskerr.NewFitFailure("beta", "diverged"), "fit failure"},
		{&riskerr.DivisionError{Value: 0}, "division error"},
		{&riskerr.SimulationError{Field: "trial_count", Value: 0}, "invalid simulation parameters"},
		{context.Canceled, "cancelled"},
		{assert.AnError, "internal error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorClass(tt.err))
	}
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	_, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, newTestServer(t))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"load_dataset", "list_entities", "aggregate_stats", "fit_distribution",
		"estimate_probability", "compute_financial_impact", "run_portfolio_simulation",
		"get_annual_trend", "get_seasonal_decomposition", "get_mean_confidence_interval",
	}, names)
}

func TestServer_CallTool(t *testing.T) {
	session := connect(t, newTestServer(t))
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "aggregate_stats",
		Arguments: map[string]any{"entity_id": "WF-1"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	var env struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &env))
	require.Len(t, env.Data, 2)
	assert.Equal(t, 96.0, env.Data[0]["mean"])
	assert.Equal(t, 0.0, env.Data[0]["sample_std"])

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "aggregate_stats",
		Arguments: map[string]any{"entity_id": "WF-404"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "invalid input")
}

func TestServer_RunPortfolioSimulation(t *testing.T) {
	session := connect(t, newTestServer(t))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "run_portfolio_simulation",
		Arguments: map[string]any{"target_penalty": 0, "trial_count": 100},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &env))
	assert.Equal(t, 100.0, env.Data["trial_count"])
	assert.Equal(t, 1.0, env.Data["exceedance_probability"], "WF-2 is always in penalty")
	assert.NotContains(t, env.Data, "trial_totals")
}
