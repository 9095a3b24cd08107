// Package client exposes the client, retainer and team-member collections.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Resources struct {
	Clients   *Resource[model.Client]
	Retainers *Resource[model.Retainer]
	Users     *Resource[model.User]
}

func NewResources(clients *store.Collection[model.Client], retainers *store.Collection[model.Retainer], users *store.Collection[model.User]) *Resources {
	res := &Resources{
		Clients: NewResource(clients, "/api/clients").
			WithFilters("name", "status").
			WithCheck(checkClient),
		Retainers: NewResource(retainers, "/api/retainers").
			WithFilters("", "client_id"),
		Users: NewResource(users, "/api/users").
			WithFilters("email", "email", "role"),
	}
	res.Retainers.WithCheck(func(ctx context.Context, r *model.Retainer, _ string) error {
		return checkRetainer(ctx, r, clients)
	})
	res.Users.WithCheck(func(ctx context.Context, u *model.User, id string) error {
		return checkUser(ctx, u, id, users)
	})
	return res
}

func checkClient(_ context.Context, c *model.Client, _ string) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalid)
	}
	switch c.Status {
	case "":
		c.Status = StatusActive
	case StatusActive, StatusInactive:
	default:
		return fmt.Errorf("%w: client status must be active or inactive", ErrInvalid)
	}
	return nil
}

func checkRetainer(ctx context.Context, r *model.Retainer, clients *store.Collection[model.Client]) error {
	if strings.TrimSpace(r.ClientID) == "" {
		return fmt.Errorf("%w: retainer client_id is required", ErrInvalid)
	}
	if _, err := clients.Get(ctx, r.ClientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: unknown client %s", ErrInvalid, r.ClientID)
		}
		return err
	}
	if r.MonthlyHours < 0 || r.HourlyRate < 0 || r.OverageRate < 0 {
		return fmt.Errorf("%w: retainer hours and rates must not be negative", ErrInvalid)
	}
	return nil
}

// checkUser keeps emails lowercase and unique; rates feed the timer snapshot.
func checkUser(ctx context.Context, u *model.User, id string, users *store.Collection[model.User]) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalid)
	}
	if u.HourlyRate < 0 {
		return fmt.Errorf("%w: hourly_rate must not be negative", ErrInvalid)
	}
	same, err := users.Filter(ctx, store.Query{"email": u.Email}, "", 0)
	if err != nil {
		return err
	}
	for _, other := range same {
		if other.ID != id {
			return fmt.Errorf("%w: email %s already in use", ErrInvalid, u.Email)
		}
	}
	return nil
}
