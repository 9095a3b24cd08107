package task

import (
	"context"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

// Repo is the task collection of the entity store.
type Repo interface {
	List(ctx context.Context, sortBy string) ([]model.Task, error)
	Filter(ctx context.Context, q store.Query, sortBy string, limit int) ([]model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Update(ctx context.Context, id string, patch map[string]any) (model.Task, error)
	Delete(ctx context.Context, id string) error
}

// BoardLister resolves boards for people columns and status labels.
type BoardLister interface {
	List(ctx context.Context, sortBy string) ([]model.Board, error)
	Get(ctx context.Context, id string) (model.Board, error)
}

var (
	_ Repo        = (*store.Collection[model.Task])(nil)
	_ BoardLister = (*store.Collection[model.Board])(nil)
)
