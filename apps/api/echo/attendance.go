package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/member"
)

type attendanceApi struct {
	svc       attendance.Service
	memberSvc member.Service
	validate  *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:       deps.AttendanceSvc,
		memberSvc: deps.MemberSvc,
		validate:  deps.Validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.GET("/sessions", api.sessions)
	ag.POST("/mark", api.mark)
	ag.GET("/summary", api.summary)
	ag.GET("/report", api.report)
	ag.GET("/report/export", api.exportReport)

	eg := ag.Group("/entries", manageMembersMiddleware())
	eg.POST("", api.createEntry)
	eg.PUT("/:id", api.updateEntry)
	eg.DELETE("/:id", api.deleteEntry)
	ag.GET("/entries", api.queryEntries)
}

// Handlers

func (api *attendanceApi) sessions(ctx echo.Context) error {
	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	date := attendance.Midnight(time.Now())
	if raw := ctx.QueryParam("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		}
		date = parsed
	}

	rctx := ctx.Request().Context()
	if err := api.svc.EnsureSessionsForDate(rctx, date, mbr); err != nil {
		return errors.Wrap(err, "ensuring sessions")
	}
	sessions, err := api.svc.SessionsForDate(rctx, date, mbr)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []attendance.SessionStatus{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), data.SessionID, mbr, data.Status)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	mbr, mq, err := api.bindMonthQuery(ctx)
	if err != nil {
		return err
	}

	sum, err := api.svc.SummarizeMonth(ctx.Request().Context(), mbr, mq.Month, mq.Year)
	if err != nil {
		return errors.Wrap(err, "summarizing month")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	mbr, mq, err := api.bindMonthQuery(ctx)
	if err != nil {
		return err
	}

	rep, err := api.svc.ReportMonth(ctx.Request().Context(), mbr, mq.Month, mq.Year)
	if err != nil {
		return errors.Wrap(err, "building month report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *attendanceApi) exportReport(ctx echo.Context) error {
	mbr, mq, err := api.bindMonthQuery(ctx)
	if err != nil {
		return err
	}

	blob, err := api.svc.ExportMonthXLSX(ctx.Request().Context(), mbr, mq.Month, mq.Year)
	if err != nil {
		return errors.Wrap(err, "exporting month report")
	}

	fname := fmt.Sprintf("attendance-%04d-%02d.xlsx", mq.Year, mq.Month)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fname))
	return ctx.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", blob)
}

func (api *attendanceApi) bindMonthQuery(ctx echo.Context) (member.Member, attendance.MonthQuery, error) {
	mbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return member.Member{}, attendance.MonthQuery{}, errors.Wrap(err, "getting context member")
	}

	now := time.Now()
	mq := attendance.MonthQuery{Month: int(now.Month()), Year: now.Year()}
	if err := ctx.Bind(&mq); err != nil {
		return member.Member{}, attendance.MonthQuery{}, errors.Wrap(err, "binding to MonthQuery")
	}
	if err := mq.Validate(api.validate); err != nil {
		return member.Member{}, attendance.MonthQuery{}, err
	}
	return mbr, mq, nil
}

func (api *attendanceApi) createEntry(ctx echo.Context) error {
	var data attendance.NewScheduleEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheduleEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.CreateEntry(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *attendanceApi) updateEntry(ctx echo.Context) error {
	var data attendance.UpdateScheduleEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScheduleEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.UpdateEntry(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *attendanceApi) deleteEntry(ctx echo.Context) error {
	if err := api.svc.DeleteEntry(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting schedule entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// queryEntries returns either a class group's timetable or a member's
// personal entries depending on the query params. Students may only see
// their own; secretariat members may inspect anyone's.
func (api *attendanceApi) queryEntries(ctx echo.Context) error {
	ctxMbr, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	rctx := ctx.Request().Context()
	if cgID := ctx.QueryParam("class_group_id"); cgID != "" {
		entries, err := api.svc.EntriesForClassGroup(rctx, cgID)
		if err != nil {
			return errors.Wrap(err, "querying class entries")
		}
		if entries == nil {
			entries = []attendance.ScheduleEntry{}
		}
		return ctx.JSON(http.StatusOK, entries)
	}

	mbrID := ctx.QueryParam("member_id")
	if mbrID == "" {
		mbrID = ctxMbr.ID
	}
	if mbrID != ctxMbr.ID && !ctxMbr.Permissions.ManageMembers {
		return errHttpForbidden
	}
	entries, err := api.svc.EntriesForMember(rctx, mbrID)
	if err != nil {
		return errors.Wrap(err, "querying member entries")
	}
	if entries == nil {
		entries = []attendance.ScheduleEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
