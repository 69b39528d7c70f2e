package pipeline

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxCompanyPageRunes = 8000

// CompanyAnalysis is the companyAnalysis pipeline state of employer items.
type CompanyAnalysis struct {
	PriorityScore int           `json:"priorityScore"`
	Tier          entities.Tier `json:"tier"`
}

func (s *Stages) fetchEmployer(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	if item.URL == "" {
		return Outcome{}, DataIntegrity(errors.New("employer item has no url"))
	}

	page, err := s.Fetcher.Fetch(ctx, item.URL)
	if err != nil {
		if isGone(err) {
			return Finish(entities.StatusSkipped, "company page is no longer available", nil), nil
		}
		return Outcome{}, err
	}

	text := web.PageText(page, maxCompanyPageRunes)
	if text == "" {
		return Finish(entities.StatusSkipped, "company page has no text", nil), nil
	}
	return Advance(entities.SubTaskExtract, entities.PipelineState{entities.StateCompanyPage: text}), nil
}

func (s *Stages) extractEmployer(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	page, ok := item.PipelineState.String(entities.StateCompanyPage)
	if !ok {
		return Outcome{}, DataIntegrity(fmt.Errorf("pipeline state key %q is not text", entities.StateCompanyPage))
	}

	info, err := s.Analyzer.ExtractCompany(ctx, item.URL, page)
	if err != nil {
		return Outcome{}, err
	}
	if item.CompanyName != "" {
		info.Name = item.CompanyName
	}
	if info.Website == "" {
		info.Website = item.URL
	}

	state, err := encodeState(map[string]any{entities.StateCompanyInfo: info})
	if err != nil {
		return Outcome{}, err
	}
	return Advance(entities.SubTaskAnalyze, state), nil
}

func (s *Stages) analyzeEmployer(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	var info analysis.CompanyInfo
	if err := decodeState(item, entities.StateCompanyInfo, &info); err != nil {
		return Outcome{}, err
	}

	ranks, err := s.Settings.TechnologyRanks(ctx)
	if err != nil {
		return Outcome{}, err
	}

	score := analysis.PriorityScore(info, ranks)
	state, err := encodeState(map[string]any{
		entities.StateCompanyAnalysis: CompanyAnalysis{PriorityScore: score, Tier: entities.TierForScore(score)},
	})
	if err != nil {
		return Outcome{}, err
	}
	return Advance(entities.SubTaskSave, state), nil
}

func (s *Stages) saveEmployer(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	var info analysis.CompanyInfo
	if err := decodeState(item, entities.StateCompanyInfo, &info); err != nil {
		return Outcome{}, err
	}
	var scored CompanyAnalysis
	if err := decodeState(item, entities.StateCompanyAnalysis, &scored); err != nil {
		return Outcome{}, err
	}
	if info.Name == "" {
		return Outcome{}, DataIntegrity(errors.New("company info has no name"))
	}

	if err := s.Companies.Upsert(ctx, &entities.Company{
		Name:           info.Name,
		Website:        info.Website,
		About:          info.About,
		TechStack:      info.TechStack,
		RemoteFriendly: info.RemoteFriendly,
		PriorityScore:  scored.PriorityScore,
	}); err != nil {
		return Outcome{}, err
	}

	company, err := s.Companies.GetByName(ctx, info.Name)
	if err != nil {
		return Outcome{}, err
	}
	if company == nil {
		return Outcome{}, fmt.Errorf("company %q was not stored", info.Name)
	}

	linked, err := s.Sources.LinkCompany(ctx, company.Name, company.ID)
	if err != nil {
		return Outcome{}, err
	}
	if linked > 0 {
		log.Infof("linked %d sources to company %s (tier %s)", linked, company.Name, company.Tier)
	}

	return Finish(entities.StatusSuccess,
		fmt.Sprintf("company %s stored with tier %s", company.Name, company.Tier),
		entities.PipelineState{entities.StateCompanyID: float64(company.ID)}), nil
}
