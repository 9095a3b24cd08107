package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

var (
	ErrNoRetainer   = errors.New("client has no active retainer")
	ErrInvalidMonth = errors.New("invalid month")
)

type lister[T any] interface {
	Filter(ctx context.Context, q store.Query, sortBy string, limit int) ([]T, error)
}

// Reporter loads store data for the billing calculations.
type Reporter struct {
	clients   lister[model.Client]
	retainers lister[model.Retainer]
	entries   lister[model.TimeEntry]
	users     lister[model.User]
	now       func() time.Time
}

func NewReporter(
	clients lister[model.Client],
	retainers lister[model.Retainer],
	entries lister[model.TimeEntry],
	users lister[model.User],
) *Reporter {
	return &Reporter{clients: clients, retainers: retainers, entries: entries, users: users, now: time.Now}
}

func (rp *Reporter) WithClock(now func() time.Time) *Reporter {
	rp.now = now
	return rp
}

func (rp *Reporter) period(month string) (Period, error) {
	p, err := ParseMonth(month, rp.now())
	if err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrInvalidMonth, err)
	}
	return p, nil
}

type RetainerReport struct {
	ClientID string          `json:"client_id"`
	Month    string          `json:"month"`
	Retainer model.Retainer  `json:"retainer"`
	Summary  RetainerSummary `json:"summary"`
}

func (rp *Reporter) RetainerSummary(ctx context.Context, clientID, month string) (RetainerReport, error) {
	p, err := rp.period(month)
	if err != nil {
		return RetainerReport{}, err
	}

	var (
		retainers []model.Retainer
		entries   []model.TimeEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		retainers, err = rp.retainers.Filter(gctx, store.Query{"client_id": clientID, "is_active": true}, "", 1)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = rp.entries.Filter(gctx, store.Query{"client_id": clientID}, "", 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return RetainerReport{}, err
	}
	if len(retainers) == 0 {
		return RetainerReport{}, ErrNoRetainer
	}

	s := SummarizeRetainerUsage(retainers[0], EntriesInPeriod(entries, p, clientID))
	return RetainerReport{
		ClientID: clientID,
		Month:    p.Label(),
		Retainer: retainers[0],
		Summary:  s.Rounded(),
	}, nil
}

type SubcontractorReport struct {
	Month     string     `json:"month"`
	Users     []UserCost `json:"users"`
	TotalCost float64    `json:"total_cost"`
}

func (rp *Reporter) Subcontractors(ctx context.Context, month string) (SubcontractorReport, error) {
	p, err := rp.period(month)
	if err != nil {
		return SubcontractorReport{}, err
	}

	var (
		entries []model.TimeEntry
		users   []model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = rp.entries.Filter(gctx, nil, "", 0)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = rp.users.Filter(gctx, nil, "", 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return SubcontractorReport{}, err
	}

	costs := SummarizeSubcontractorCost(EntriesInPeriod(entries, p, ""), users)
	total := 0.0
	for _, c := range costs {
		total += c.Cost
	}
	return SubcontractorReport{
		Month:     p.Label(),
		Users:     RoundUserCosts(costs),
		TotalCost: Round2(total),
	}, nil
}

func (rp *Reporter) Monthly(ctx context.Context, month string) (MonthlyReport, error) {
	p, err := rp.period(month)
	if err != nil {
		return MonthlyReport{}, err
	}

	var (
		clients   []model.Client
		retainers []model.Retainer
		entries   []model.TimeEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = rp.clients.Filter(gctx, nil, "name", 0)
		return err
	})
	g.Go(func() error {
		var err error
		retainers, err = rp.retainers.Filter(gctx, nil, "", 0)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = rp.entries.Filter(gctx, nil, "", 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthlyReport{}, err
	}
	return BuildMonthlyReport(clients, retainers, entries, p), nil
}
