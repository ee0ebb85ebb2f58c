package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/event"
	"github.com/secmun/podium/core/member"
)

type eventApi struct {
	svc       event.Service
	memberSvc member.Service
	validate  *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := eventApi{
		svc:       deps.EventSvc,
		memberSvc: deps.MemberSvc,
		validate:  deps.Validate,
	}

	eg := g.Group("/events", jwt)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.POST("", api.create, manageEventsMiddleware())
	eg.PUT("/:id", api.update, manageEventsMiddleware())
	eg.DELETE("/:id", api.destroy, manageEventsMiddleware())

	eg.POST("/:id/register", api.register)
	eg.GET("/:id/registrations", api.registrations, manageEventsMiddleware())
	eg.GET("/registrations/mine", api.myRegistrations)
	eg.PUT("/registrations/:id/assign", api.assign, manageEventsMiddleware())
	eg.PUT("/registrations/:id/decide", api.decide, approveApplicantsMiddleware())
}

// Handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	evt, err := api.svc.Create(ctx.Request().Context(), data, mbr)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	events, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	evt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) register(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	reg, err := api.svc.Register(ctx.Request().Context(), ctx.Param("id"), mbr)
	if err != nil {
		return errors.Wrap(err, "registering for event")
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *eventApi) registrations(ctx echo.Context) error {
	regs, err := api.svc.Registrations(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) myRegistrations(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	regs, err := api.svc.MyRegistrations(ctx.Request().Context(), mbr)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) assign(ctx echo.Context) error {
	var data event.Assignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Assignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reg, err := api.svc.Assign(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *eventApi) decide(ctx echo.Context) error {
	var data event.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	reg, err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), data, mbr)
	if err != nil {
		return errors.Wrap(err, "deciding registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}
