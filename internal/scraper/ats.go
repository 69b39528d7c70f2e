package scraper

import (
	"context"

	"github.com/maxaizer/job-finder/internal/clients/ats"
	"github.com/maxaizer/job-finder/internal/entities"
)

type atsClient interface {
	Greenhouse(ctx context.Context, boardToken, companyName string) ([]entities.Posting, error)
	Lever(ctx context.Context, companySlug, companyName string) ([]entities.Posting, error)
	Ashby(ctx context.Context, boardToken, companyName string) ([]entities.Posting, error)
	Workday(ctx context.Context, board ats.WorkdayBoard, companyName string) ([]entities.Posting, error)
	WorkdayPosting(ctx context.Context, board ats.WorkdayBoard, postingURL string) (entities.Posting, error)
}

type Greenhouse struct{ client atsClient }

func NewGreenhouse(client atsClient) *Greenhouse { return &Greenhouse{client: client} }

func (s *Greenhouse) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	if err := requireConfig(source, entities.ConfigBoardToken); err != nil {
		return nil, err
	}
	return s.client.Greenhouse(ctx, source.Config[entities.ConfigBoardToken], source.CompanyName())
}

type Lever struct{ client atsClient }

func NewLever(client atsClient) *Lever { return &Lever{client: client} }

func (s *Lever) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	if err := requireConfig(source, entities.ConfigCompanySlug); err != nil {
		return nil, err
	}
	return s.client.Lever(ctx, source.Config[entities.ConfigCompanySlug], source.CompanyName())
}

type Ashby struct{ client atsClient }

func NewAshby(client atsClient) *Ashby { return &Ashby{client: client} }

func (s *Ashby) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	if err := requireConfig(source, entities.ConfigBoardToken); err != nil {
		return nil, err
	}
	return s.client.Ashby(ctx, source.Config[entities.ConfigBoardToken], source.CompanyName())
}

type Workday struct{ client atsClient }

func NewWorkday(client atsClient) *Workday { return &Workday{client: client} }

func workdayBoard(source entities.Source) (ats.WorkdayBoard, error) {
	if err := requireConfig(source, entities.ConfigHost, entities.ConfigTenant, entities.ConfigSite); err != nil {
		return ats.WorkdayBoard{}, err
	}
	return ats.WorkdayBoard{
		Host:   source.Config[entities.ConfigHost],
		Tenant: source.Config[entities.ConfigTenant],
		Site:   source.Config[entities.ConfigSite],
	}, nil
}

func (s *Workday) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	board, err := workdayBoard(source)
	if err != nil {
		return nil, err
	}
	return s.client.Workday(ctx, board, source.CompanyName())
}

func (s *Workday) FetchPosting(ctx context.Context, source entities.Source, url string) (entities.Posting, error) {
	board, err := workdayBoard(source)
	if err != nil {
		return entities.Posting{}, err
	}
	posting, err := s.client.WorkdayPosting(ctx, board, url)
	if err != nil {
		return entities.Posting{}, err
	}
	posting.Company = source.CompanyName()
	return posting, nil
}
