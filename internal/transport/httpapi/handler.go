package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/metrics"
	"rncflow/internal/infrastructure/realtime"
	"rncflow/internal/ports"
	"rncflow/internal/usecase/account"
	rncusecase "rncflow/internal/usecase/rnc"
)

const maxBodyBytes = 1 << 20

type WorkflowService interface {
	Open(ctx context.Context, draft rnc.Draft, actor rnc.Actor) (rnc.RNC, error)
	Analyze(ctx context.Context, number uint64, analysis rnc.Analysis, actor rnc.Actor) (rnc.RNC, error)
	Rework(ctx context.Context, number uint64, rework rnc.Rework, actor rnc.Actor) (rnc.RNC, error)
	Close(ctx context.Context, number uint64, note string, actor rnc.Actor) (rnc.RNC, error)
	Update(ctx context.Context, number uint64, update rnc.Update, actor rnc.Actor) (rnc.RNC, error)
	ListAs(ctx context.Context, input rncusecase.ListInput, actor rnc.Actor) ([]rnc.RNC, error)
	Get(ctx context.Context, number uint64) (rnc.RNC, error)
	CurrentByPart(ctx context.Context, partCode string) (rnc.RNC, error)
	Statistics(ctx context.Context) (rnc.Statistics, error)
}

type AccountService interface {
	Login(ctx context.Context, email string, password string) (ports.Token, rnc.User, error)
	Logout(ctx context.Context, credential string) error
	CreateUser(ctx context.Context, input account.RegisterUserInput, actor rnc.Actor) (rnc.User, error)
	FindPart(ctx context.Context, code string) (rnc.Part, error)
}

type Options struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	// BaseContext supplies the logger and attributes every request starts from.
	BaseContext context.Context
}

type Handler struct {
	workflow WorkflowService
	accounts AccountService
	auth     ports.Authenticator
	hub      *realtime.Hub
	metrics  *metrics.Metrics

	baseCtx        context.Context
	pingInterval   time.Duration
	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
}

func NewHandler(
	workflow WorkflowService,
	accounts AccountService,
	auth ports.Authenticator,
	hub *realtime.Hub,
	m *metrics.Metrics,
	opts Options,
) *Handler {
	h := &Handler{
		workflow:       workflow,
		accounts:       accounts,
		auth:           auth,
		hub:            hub,
		metrics:        m,
		baseCtx:        opts.BaseContext,
		pingInterval:   opts.PingInterval,
		allowedOrigins: make(map[string]struct{}, len(opts.AllowedOrigins)),
	}
	for _, origin := range opts.AllowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			h.allowedOrigins[strings.ToLower(origin)] = struct{}{}
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		// Origins are checked before Upgrade so a refusal is a plain 403.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestContext)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/ws/rncs", h.serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/auth/logout", h.logout)

			r.Get("/rnc", h.listRNC)
			r.Post("/rnc", h.openRNC)
			r.Get("/rnc/mine", h.listMine)
			r.Get("/rnc/statistics", h.statistics)
			r.Get("/rnc/{num}", h.getRNC)
			r.Patch("/rnc/{num}", h.updateRNC)
			r.Post("/rnc/{num}/analysis", h.analyzeRNC)
			r.Post("/rnc/{num}/rework", h.reworkRNC)
			r.Post("/rnc/{num}/close", h.closeRNC)

			r.Post("/users", h.createUser)

			r.Get("/part/{code}", h.getPart)
			r.Get("/part/{code}/rnc", h.currentByPart)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.hub != nil {
		body["connections"] = h.hub.Count()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	token, user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		UserID:    user.ID,
		Name:      user.Name,
		Role:      string(user.Role),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), bearerToken(r)); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) openRNC(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req openRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	created, err := h.workflow.Open(r.Context(), rnc.Draft{
		Title:         req.Title,
		CriticalLevel: req.CriticalLevel,
		PartCode:      req.PartCode,
		Observations:  req.Observations,
	}, actor)
	h.countAction(rnc.ActionOpen, err)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportView(created))
}

func (h *Handler) countAction(action rnc.Action, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		_, kind := statusFor(err)
		outcome = kind.String()
	}
	h.metrics.WorkflowActions.WithLabelValues(string(action), outcome).Inc()
}

func (h *Handler) analyzeRNC(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	h.mutate(w, r, rnc.ActionAnalyze, &req, func(ctx context.Context, number uint64, actor rnc.Actor) (rnc.RNC, error) {
		return h.workflow.Analyze(ctx, number, req.toDomain(), actor)
	})
}

func (h *Handler) reworkRNC(w http.ResponseWriter, r *http.Request) {
	var req reworkRequest
	h.mutate(w, r, rnc.ActionRework, &req, func(ctx context.Context, number uint64, actor rnc.Actor) (rnc.RNC, error) {
		return h.workflow.Rework(ctx, number, req.toDomain(), actor)
	})
}

func (h *Handler) closeRNC(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	h.mutate(w, r, rnc.ActionClose, &req, func(ctx context.Context, number uint64, actor rnc.Actor) (rnc.RNC, error) {
		return h.workflow.Close(ctx, number, req.Notes, actor)
	})
}

func (h *Handler) updateRNC(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	h.mutate(w, r, rnc.ActionUpdate, &req, func(ctx context.Context, number uint64, actor rnc.Actor) (rnc.RNC, error) {
		return h.workflow.Update(ctx, number, rnc.Update{
			Title:         req.Title,
			CriticalLevel: req.CriticalLevel,
			Observations:  req.Observations,
			ResponsibleID: req.ResponsibleID,
		}, actor)
	})
}

// mutate decodes body into req and runs apply against the report named in the path.
func (h *Handler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	action rnc.Action,
	req any,
	apply func(ctx context.Context, number uint64, actor rnc.Actor) (rnc.RNC, error),
) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	number, err := numberParam(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := decodeJSON(w, r, req); err != nil {
		respondError(r.Context(), w, err)
		return
	}

	updated, err := apply(r.Context(), number, actor)
	h.countAction(action, err)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportView(updated))
}

func (h *Handler) getRNC(w http.ResponseWriter, r *http.Request) {
	number, err := numberParam(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	item, err := h.workflow.Get(r.Context(), number)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportView(item))
}

func (h *Handler) listRNC(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	input, err := listInputFrom(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	h.writeList(w, r, input, actor)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	input, err := listInputFrom(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	input.OpenByID = &actor.UserID
	h.writeList(w, r, input, actor)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, input rncusecase.ListInput, actor rnc.Actor) {
	items, err := h.workflow.ListAs(r.Context(), input, actor)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportViews(items))
}

func (h *Handler) currentByPart(w http.ResponseWriter, r *http.Request) {
	item, err := h.workflow.CurrentByPart(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportView(item))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	user, err := h.accounts.CreateUser(r.Context(), account.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, actor)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(user))
}

func (h *Handler) getPart(w http.ResponseWriter, r *http.Request) {
	part, err := h.accounts.FindPart(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartView(part))
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.workflow.Statistics(r.Context())
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func actorFrom(w http.ResponseWriter, r *http.Request) (rnc.Actor, bool) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errs.KindUnauthorized, "missing identity")
		return rnc.Actor{}, false
	}
	return identity.Actor(), true
}

func numberParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "num")
	number, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || number == 0 {
		return 0, errs.Newf(errs.KindValidation, "invalid report number %q", raw)
	}
	return number, nil
}

func listInputFrom(r *http.Request) (rncusecase.ListInput, error) {
	q := r.URL.Query()
	input := rncusecase.ListInput{
		Status:    q.Get("status"),
		Condition: q.Get("condition"),
	}

	var err error
	if input.Limit, err = intQuery(q.Get("limit")); err != nil {
		return rncusecase.ListInput{}, err
	}
	if input.Offset, err = intQuery(q.Get("offset")); err != nil {
		return rncusecase.ListInput{}, err
	}
	if raw := strings.TrimSpace(q.Get("open_by_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return rncusecase.ListInput{}, errs.Newf(errs.KindValidation, "invalid open_by_id %q", raw)
		}
		input.OpenByID = &id
	}
	return input, nil
}

func intQuery(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Newf(errs.KindValidation, "invalid integer %q", raw)
	}
	return n, nil
}
