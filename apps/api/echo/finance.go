package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
)

type financeApi struct {
	svc       finance.Service
	memberSvc member.Service
	validate  *validator.Validate
}

func registerFinanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := financeApi{
		svc:       deps.FinanceSvc,
		memberSvc: deps.MemberSvc,
		validate:  deps.Validate,
	}

	fg := g.Group("/finance", jwt, manageFinanceMiddleware())
	fg.POST("/transactions", api.record)
	fg.GET("/transactions", api.query)
	fg.GET("/transactions/:id", api.retrieve)
	fg.PUT("/transactions/:id", api.update)
	fg.DELETE("/transactions/:id", api.destroy)
	fg.GET("/summary", api.summary)
}

// Handlers

func (api *financeApi) record(ctx echo.Context) error {
	var data finance.NewTransaction
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransaction")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	txn, err := api.svc.Record(ctx.Request().Context(), data, mbr)
	if err != nil {
		return errors.Wrap(err, "recording transaction")
	}
	return ctx.JSON(http.StatusCreated, txn)
}

func (api *financeApi) query(ctx echo.Context) error {
	filter := finance.QueryFilter{
		Kind:     ctx.QueryParam("kind"),
		Category: ctx.QueryParam("category"),
	}
	var err error
	if filter.From, err = bindDateParam(ctx, "from"); err != nil {
		return err
	}
	if filter.To, err = bindDateParam(ctx, "to"); err != nil {
		return err
	}
	filter.Clean()

	txns, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying transactions")
	}
	if txns == nil {
		txns = []finance.Transaction{}
	}
	return ctx.JSON(http.StatusOK, txns)
}

func (api *financeApi) retrieve(ctx echo.Context) error {
	txn, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding transaction")
	}
	return ctx.JSON(http.StatusOK, txn)
}

func (api *financeApi) update(ctx echo.Context) error {
	var data finance.UpdateTransaction
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTransaction")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	txn, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating transaction")
	}
	return ctx.JSON(http.StatusOK, txn)
}

func (api *financeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting transaction")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// summary reports income/expense/balance over [from, to); defaults to the
// current calendar month.
func (api *financeApi) summary(ctx echo.Context) error {
	from, err := bindDateParam(ctx, "from")
	if err != nil {
		return err
	}
	to, err := bindDateParam(ctx, "to")
	if err != nil {
		return err
	}

	now := time.Now()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}

	sum, err := api.svc.Summarize(ctx.Request().Context(), from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing transactions")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func bindDateParam(ctx echo.Context, name string) (time.Time, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+", want YYYY-MM-DD")
	}
	return parsed, nil
}
