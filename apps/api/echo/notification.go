package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/member"
	"github.com/secmun/podium/core/notification"
)

type notificationApi struct {
	svc       notification.Service
	memberSvc member.Service
	validate  *validator.Validate
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{
		svc:       deps.NotificationSvc,
		memberSvc: deps.MemberSvc,
		validate:  deps.Validate,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.recent)
	ng.POST("", api.announce, manageEventsMiddleware())
}

// Handlers

func (api *notificationApi) announce(ctx echo.Context) error {
	var data notification.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	notif, err := api.svc.Announce(ctx.Request().Context(), data, mbr)
	if err != nil {
		return errors.Wrap(err, "sending announcement")
	}
	return ctx.JSON(http.StatusCreated, notif)
}

func (api *notificationApi) recent(ctx echo.Context) error {
	notifs, err := api.svc.Recent(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}
