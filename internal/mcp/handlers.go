package mcp

import (
	"context"
	"fmt"

	"avail-risk/internal/engine"
	"avail-risk/internal/fitting"
	"avail-risk/internal/probability"
	"avail-risk/internal/riskerr"
)

func (s *Server) handleLoadDataset(_ context.Context, in LoadDatasetInput) (ResponseEnvelope, error) {
	if in.Path == "" {
		return ResponseEnvelope{}, riskerr.NewInput("path", "is required")
	}
	summary, err := s.engine.LoadDataset(in.Path)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(summary, nil, []string{"Call 'list_entities' to see the loaded wind farms."}), nil
}

func (s *Server) handleListEntities(_ context.Context, _ ListEntitiesInput) (ResponseEnvelope, error) {
	entities := s.engine.Entities()
	var guidance []string
	if len(entities) == 0 {
		guidance = []string{"No dataset is loaded. Call 'load_dataset' first."}
	}
	return WrapResponse(entities, nil, guidance), nil
}

func (s *Server) handleAggregateStats(_ context.Context, in EntityInput) (ResponseEnvelope, error) {
	ys, err := s.engine.AggregateStats(in.EntityID)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	var warnings []string
	for _, y := range ys {
		if y.SampleCount < 12 {
			warnings = append(warnings, fmt.Sprintf("%d has only %d valid months.", y.Year, y.SampleCount))
		}
	}
	return WrapResponse(ys, warnings, nil), nil
}

func (s *Server) handleFitDistribution(_ context.Context, in FitDistributionInput) (ResponseEnvelope, error) {
	var (
		fd  *fitting.FittedDistribution
		err error
	)
	switch {
	case in.EntityID != "" && len(in.Sample) > 0:
		return ResponseEnvelope{}, riskerr.NewInput("entity_id", "provide either entity_id or sample, not both")
	case in.EntityID != "":
		fd, err = s.engine.FitEntity(in.EntityID)
	default:
		fd, err = s.engine.FitDistribution(in.Sample)
	}
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(fd, fitWarnings(fd), []string{"Use 'estimate_probability' to turn the fit into a breach probability."}), nil
}

func fitWarnings(fd *fitting.FittedDistribution) []string {
	var warnings []string
	if fd.IsEmpirical() {
		warnings = append(warnings, "No parametric family was accepted; results use the empirical distribution and carry low confidence.")
	}
	if fd.FilteredCount > 0 {
		warnings = append(warnings, fmt.Sprintf("%d non-positive values were excluded from the LogNormal candidate.", fd.FilteredCount))
	}
	return warnings
}

func (s *Server) handleEstimateProbability(ctx context.Context, in EstimateProbabilityInput) (ResponseEnvelope, error) {
	horizon, err := probability.ParseHorizon(in.Horizon)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	threshold := s.engine.Config().Contract.Threshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}

	est, err := s.engine.EstimateProbability(ctx, in.EntityID, threshold, horizon)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	var warnings []string
	switch est.ConfidenceTag {
	case fitting.TagFallback, probability.TagInsufficientHistory:
		warnings = append(warnings, "Low confidence: "+est.ConfidenceTag+".")
	}
	return WrapResponse(est, warnings, nil), nil
}

func (s *Server) handleComputeFinancialImpact(_ context.Context, in FinancialImpactInput) (ResponseEnvelope, error) {
	p := s.engine.ContractParams()
	if in.Threshold != nil {
		p.Threshold = *in.Threshold
	}
	if in.PenaltyFactor != nil {
		p.PenaltyFactor = *in.PenaltyFactor
	}
	if in.BonusFactor != nil {
		p.BonusFactor = *in.BonusFactor
	}
	if in.EnergyPrice != nil {
		p.EnergyPrice = *in.EnergyPrice
	}

	out, err := s.engine.ComputeFinancialImpact(in.EntityID, in.Year, p, in.EnergyExposure)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(out, nil, nil), nil
}

func (s *Server) handleRunPortfolioSimulation(ctx context.Context, in PortfolioInput) (ResponseEnvelope, error) {
	res, err := s.engine.RunPortfolioSimulation(ctx, engine.PortfolioParams{
		EntityIDs:        in.EntityIDs,
		TargetPenalty:    in.TargetPenalty,
		Trials:           in.TrialCount,
		BootstrapSamples: in.BootstrapSampleCount,
	})
	if err != nil {
		return ResponseEnvelope{}, err
	}

	// Trial totals are large and only useful to programmatic callers.
	summary := *res
	summary.TrialTotals = nil
	return WrapResponse(summary, nil, nil), nil
}

func (s *Server) handleAnnualTrend(_ context.Context, in EntityInput) (ResponseEnvelope, error) {
	tr, err := s.engine.AnnualTrend(in.EntityID)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	var warnings []string
	if len(tr.Years) < tr.Window {
		warnings = append(warnings, fmt.Sprintf("Fewer years (%d) than the moving average window (%d).", len(tr.Years), tr.Window))
	}
	return WrapResponse(tr, warnings, nil), nil
}

func (s *Server) handleSeasonalDecomposition(_ context.Context, in EntityInput) (ResponseEnvelope, error) {
	d, err := s.engine.Decompose(in.EntityID)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(d, nil, nil), nil
}

func (s *Server) handleMeanConfidenceInterval(ctx context.Context, in EntityInput) (ResponseEnvelope, error) {
	mi, err := s.engine.MeanConfidenceInterval(ctx, in.EntityID)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return WrapResponse(mi, nil, nil), nil
}
