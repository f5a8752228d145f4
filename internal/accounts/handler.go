package accounts

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler serves the chart of accounts and the default account
// configuration.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{
		logger:   logger,
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Get("/accounts/{id}", h.getAccount)
	r.Get("/configurations", h.listConfigurations)
	r.Put("/configurations/{type}", h.upsertConfiguration)
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Balance  string `json:"balance"`
	IsActive bool   `json:"is_active"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:       a.ID,
		Code:     a.Code,
		Name:     a.Name,
		Category: string(a.Category),
		Balance:  a.Balance.StringFixed(2),
		IsActive: a.IsActive,
	}
}

type configurationResponse struct {
	ConfigType  string    `json:"config_type"`
	DisplayName string    `json:"display_name"`
	AccountID   int64     `json:"account_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (shared.Identity, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing organization identity")
		return shared.Identity{}, false
	}
	return identity, true
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accounts, err := h.repo.ListAccounts(r.Context(), identity.OrgID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	responses := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, toAccountResponse(account))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": responses})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	account, err := h.repo.GetAccount(r.Context(), identity.OrgID, accountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

type createAccountRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.repo.CreateAccount(r.Context(), Account{
		OrgID:    identity.OrgID,
		Code:     req.Code,
		Name:     req.Name,
		Category: Category(req.Category),
	})
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

type upsertConfigurationRequest struct {
	AccountID int64 `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) upsertConfiguration(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	configType := ConfigType(chi.URLParam(r, "type"))
	if _, known := configTypeNames[configType]; !known {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown configuration type")
		return
	}
	var req upsertConfigurationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	config, err := h.repo.UpsertConfiguration(r.Context(), identity.OrgID, configType, req.AccountID)
	if err != nil {
		h.logger.Error("upsert configuration", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, configurationResponse{
		ConfigType:  string(config.ConfigType),
		DisplayName: config.ConfigType.DisplayName(),
		AccountID:   config.AccountID,
		UpdatedAt:   config.UpdatedAt,
	})
}

// listConfigurations returns the mapped roles alongside any still missing,
// so operators can see at a glance whether posting is unblocked.
func (h *Handler) listConfigurations(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	configs, err := h.repo.ListConfigurations(r.Context(), identity.OrgID)
	if err != nil {
		h.logger.Error("list configurations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	mapped := make(map[ConfigType]bool, len(configs))
	responses := make([]configurationResponse, 0, len(configs))
	for _, config := range configs {
		mapped[config.ConfigType] = true
		responses = append(responses, configurationResponse{
			ConfigType:  string(config.ConfigType),
			DisplayName: config.ConfigType.DisplayName(),
			AccountID:   config.AccountID,
			UpdatedAt:   config.UpdatedAt,
		})
	}
	missing := make([]string, 0)
	for _, role := range RequiredConfigTypes {
		if !mapped[role] {
			missing = append(missing, string(role))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"configurations": responses,
		"missing":        missing,
	})
}
