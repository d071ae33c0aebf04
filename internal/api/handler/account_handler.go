package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/service"
)

type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create enrolls a new account (primary or external).
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	svc := domain.ParseService(req.Service)
	if svc == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown service")
	}
	auth := req.authentication(svc)
	if auth == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing credentials for service")
	}

	created, err := h.accounts.Create(c.Request().Context(), &domain.Account{
		Service:        svc,
		Username:       req.Username,
		StudentName:    domain.StudentName{First: req.FirstName, Last: req.LastName},
		ClassName:      req.ClassName,
		SchoolName:     req.SchoolName,
		Authentication: auth,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAccountResponse(created))
}

// List returns every stored account.
func (h *AccountHandler) List(c echo.Context) error {
	accounts, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAccountResponse(account))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one account by local ID.
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.accounts.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Link attaches an external account to a primary one.
func (h *AccountHandler) Link(c echo.Context) error {
	var req linkAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.accounts.Link(c.Request().Context(), c.Param("id"), req.ExternalLocalID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Remove deletes an account.
func (h *AccountHandler) Remove(c echo.Context) error {
	if err := h.accounts.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
