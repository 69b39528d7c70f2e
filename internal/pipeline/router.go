package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxaizer/job-finder/internal/entities"
)

type Handler interface {
	Handle(ctx context.Context, item *entities.QueueItem) (Outcome, error)
}

type HandlerFunc func(ctx context.Context, item *entities.QueueItem) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	return f(ctx, item)
}

type Route struct {
	Kind    entities.ItemKind
	SubTask entities.SubTask
}

func (r Route) String() string {
	if r.SubTask == entities.SubTaskNone {
		return string(r.Kind)
	}
	return string(r.Kind) + "/" + string(r.SubTask)
}

// AllKinds are the item kinds the router must cover.
var AllKinds = []entities.ItemKind{
	entities.KindPosting,
	entities.KindEmployer,
	entities.KindScrapeRequest,
	entities.KindSourceDiscovery,
}

// Router maps every (kind, subTask) pair to exactly one handler.
type Router struct {
	handlers map[Route]Handler
}

// NewRouter fails unless handlers cover every stage of every kind and
// nothing else.
func NewRouter(handlers map[Route]Handler) (*Router, error) {
	var missing, unknown []string

	for _, kind := range AllKinds {
		for _, stage := range kind.Stages() {
			route := Route{Kind: kind, SubTask: stage}
			if handlers[route] == nil {
				missing = append(missing, route.String())
			}
		}
	}
	for route := range handlers {
		if !route.Kind.ValidSubTask(route.SubTask) {
			unknown = append(unknown, route.String())
		}
	}

	if len(missing) > 0 || len(unknown) > 0 {
		return nil, fmt.Errorf("invalid routing table: missing [%s], unknown [%s]",
			strings.Join(missing, ", "), strings.Join(unknown, ", "))
	}
	return &Router{handlers: handlers}, nil
}

func (r *Router) Route(kind entities.ItemKind, subTask entities.SubTask) (Handler, error) {
	handler, ok := r.handlers[Route{Kind: kind, SubTask: subTask}]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownRoute, Route{Kind: kind, SubTask: subTask})
	}
	return handler, nil
}

// requiredState lists the pipeline state keys each stage reads. An item
// reaching a stage without them is malformed.
var requiredState = map[Route][]string{
	{entities.KindPosting, entities.SubTaskFilter}:   {entities.StatePostingData},
	{entities.KindPosting, entities.SubTaskAnalyze}:  {entities.StatePostingData, entities.StateFilterResult},
	{entities.KindPosting, entities.SubTaskSave}:     {entities.StatePostingData, entities.StateFilterResult, entities.StateAnalysis},
	{entities.KindEmployer, entities.SubTaskExtract}: {entities.StateCompanyPage},
	{entities.KindEmployer, entities.SubTaskAnalyze}: {entities.StateCompanyInfo},
	{entities.KindEmployer, entities.SubTaskSave}:    {entities.StateCompanyInfo, entities.StateCompanyAnalysis},
}

func RequiredState(kind entities.ItemKind, subTask entities.SubTask) []string {
	return requiredState[Route{Kind: kind, SubTask: subTask}]
}
