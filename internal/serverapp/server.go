package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/auth"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/billing"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/board"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/client"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/clock"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/config"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/httpmw"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/integration"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/task"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/timetrack"
)

// Collection names in the entity store.
const (
	CollTasks       = "tasks"
	CollBoards      = "boards"
	CollClients     = "clients"
	CollRetainers   = "retainers"
	CollTimeEntries = "time_entries"
	CollUsers       = "users"
)

type Options struct {
	Config  *config.Config
	Backend store.Backend
	Logger  *zap.Logger
	Clock   clock.Clock
	// Model overrides the Gemini model built from Config.LLM.
	Model integration.Model
}

// Collections are the typed views of every entity the server stores.
type Collections struct {
	Tasks       *store.Collection[model.Task]
	Boards      *store.Collection[model.Board]
	Clients     *store.Collection[model.Client]
	Retainers   *store.Collection[model.Retainer]
	TimeEntries *store.Collection[model.TimeEntry]
	Users       *store.Collection[model.User]
}

func NewCollections(b store.Backend) Collections {
	return Collections{
		Tasks:       store.NewCollection[model.Task](b, CollTasks),
		Boards:      store.NewCollection[model.Board](b, CollBoards),
		Clients:     store.NewCollection[model.Client](b, CollClients),
		Retainers:   store.NewCollection[model.Retainer](b, CollRetainers),
		TimeEntries: store.NewCollection[model.TimeEntry](b, CollTimeEntries),
		Users:       store.NewCollection[model.User](b, CollUsers),
	}
}

// NewReporter wires the billing reporter; the CLI uses it without a server.
func NewReporter(c Collections) *billing.Reporter {
	return billing.NewReporter(c.Clients, c.Retainers, c.TimeEntries, c.Users)
}

func NewHandler(ctx context.Context, opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("store backend is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	cfg := opts.Config
	logger := opts.Logger
	colls := NewCollections(opts.Backend)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "harkflow",
			"time":    opts.Clock.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := opts.Backend.List(r.Context(), CollTasks); err != nil {
			logger.Warn("readiness_failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth.RequireUser(h))
	}

	taskSvc := task.NewService(colls.Tasks, colls.Boards, task.Options{
		Clock:                      opts.Clock,
		Logger:                     logger.Named("task"),
		NotStartedLabel:            cfg.Tasks.NotStartedLabel,
		RollbackOnSuccessorFailure: cfg.Tasks.Rollback(),
	})
	taskHandler := task.NewHandler(taskSvc)
	api("/api/tasks", taskHandler.TasksRoot)
	api("/api/tasks/", taskHandler.TasksSub)

	boardHandler := board.NewHandler(board.NewService(colls.Boards, colls.Tasks, logger.Named("board")))
	api("/api/boards", boardHandler.BoardsRoot)
	api("/api/boards/", boardHandler.BoardsSub)

	resources := client.NewResources(colls.Clients, colls.Retainers, colls.Users)
	api("/api/clients", resources.Clients.Root)
	api("/api/clients/", resources.Clients.Sub)
	api("/api/retainers", resources.Retainers.Root)
	api("/api/retainers/", resources.Retainers.Sub)
	api("/api/users", resources.Users.Root)
	api("/api/users/", resources.Users.Sub)

	timeSvc := timetrack.NewService(colls.TimeEntries, colls.Users, timetrack.Options{
		Clock:       opts.Clock,
		Logger:      logger.Named("timetrack"),
		DefaultRate: cfg.Billing.DefaultHourlyRate,
	})
	timeHandler := timetrack.NewHandler(timeSvc)
	api("/api/time-entries", timeHandler.EntriesRoot)
	api("/api/time-entries/", timeHandler.EntriesSub)

	billingHandler := billing.NewHandler(NewReporter(colls).WithClock(opts.Clock.Now))
	api("GET /api/clients/{id}/retainer-summary", billingHandler.RetainerSummary)
	api("/api/reports/subcontractors", billingHandler.Subcontractors)
	api("/api/reports/monthly", billingHandler.Monthly)

	uploader, err := integration.NewUploader(cfg.Uploads.Dir, cfg.Uploads.MaxBytes, logger.Named("uploads"))
	if err != nil {
		return nil, err
	}
	llmModel := opts.Model
	if llmModel == nil && cfg.LLM.APIKey != "" {
		gm, err := integration.NewGeminiModel(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		llmModel = gm
	}
	if llmModel == nil {
		logger.Info("llm_disabled", zap.String("hint", "set HARKFLOW_LLM_API_KEY to enable"))
	}
	llm := integration.NewLLM(llmModel, logger.Named("llm"))
	intHandler := integration.NewHandler(uploader, llm, integration.NewAssistant(taskSvc, llm, opts.Clock))
	api("/api/integrations/upload", intHandler.Upload)
	api("/api/integrations/llm", intHandler.InvokeLLM)
	api("/api/assistant/ask", intHandler.Ask)
	mux.Handle(integration.FilesPrefix, uploader.Files())

	return httpmw.Chain(
		mux,
		httpmw.WithRequestID(logger.Named("http")),
		httpmw.WithAccessLog,
		httpmw.WithRecover,
		auth.FromHeader,
	), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
