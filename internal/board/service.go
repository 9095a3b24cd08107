// Package board manages boards and their column layouts.
package board

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

type Repo interface {
	List(ctx context.Context, sortBy string) ([]model.Board, error)
	Filter(ctx context.Context, q store.Query, sortBy string, limit int) ([]model.Board, error)
	Get(ctx context.Context, id string) (model.Board, error)
	Create(ctx context.Context, b model.Board) (model.Board, error)
	Update(ctx context.Context, id string, patch map[string]any) (model.Board, error)
	Delete(ctx context.Context, id string) error
}

// TaskCounter reports tasks that still reference a board.
type TaskCounter interface {
	Filter(ctx context.Context, q store.Query, sortBy string, limit int) ([]model.Task, error)
}

type Service struct {
	boards Repo
	tasks  TaskCounter
	logger *zap.Logger
}

func NewService(boards Repo, tasks TaskCounter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{boards: boards, tasks: tasks, logger: logger}
}

type Input struct {
	Name     string         `json:"name"`
	ClientID string         `json:"client_id"`
	Columns  []model.Column `json:"columns"`
}

type Patch struct {
	Name     *string         `json:"name,omitempty"`
	ClientID *string         `json:"client_id,omitempty"`
	Columns  *[]model.Column `json:"columns,omitempty"`
}

func (s *Service) List(ctx context.Context, clientID string) ([]model.Board, error) {
	if clientID != "" {
		return s.boards.Filter(ctx, store.Query{"client_id": clientID}, "name", 0)
	}
	return s.boards.List(ctx, "name")
}

func (s *Service) Get(ctx context.Context, id string) (model.Board, error) {
	return s.boards.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (model.Board, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Board{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	cols := in.Columns
	if len(cols) == 0 {
		cols = DefaultColumns()
	}
	if err := ValidateColumns(cols); err != nil {
		return model.Board{}, err
	}
	return s.boards.Create(ctx, model.Board{Name: name, ClientID: in.ClientID, Columns: cols})
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (model.Board, error) {
	patch := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.Board{}, fmt.Errorf("%w: name is required", ErrInvalid)
		}
		patch["name"] = name
	}
	if p.ClientID != nil {
		patch["client_id"] = *p.ClientID
	}
	if p.Columns != nil {
		if err := ValidateColumns(*p.Columns); err != nil {
			return model.Board{}, err
		}
		patch["columns"] = *p.Columns
	}
	if len(patch) == 0 {
		return s.boards.Get(ctx, id)
	}
	return s.boards.Update(ctx, id, patch)
}

// Delete refuses while tasks still point at the board.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.boards.Get(ctx, id); err != nil {
		return err
	}
	if s.tasks != nil {
		ts, err := s.tasks.Filter(ctx, store.Query{"board_id": id}, "", 1)
		if err != nil {
			return err
		}
		if len(ts) > 0 {
			return ErrHasTasks
		}
	}
	if err := s.boards.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("board_deleted", zap.String("board_id", id))
	return nil
}
