package echoapi

import (
	"net/http"
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

var errMbrNotFoundInCtx = errors.New("member object not found in echo.Context")

type memberApi struct {
	svc        member.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := memberApi{
		svc:        deps.MemberSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	mg := g.Group("/members")

	// un-authed endpoints
	mg.POST("/login", api.login)
	mg.POST("/password-reset", api.resetPassword)
	mg.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := mg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("/register", api.create, manageMembersMiddleware())
	ag.GET("", api.query, manageMembersMiddleware())
	ag.DELETE("", api.destroyMultiple, manageMembersMiddleware())
	ag.GET("/roles", api.queryRoles, manageMembersMiddleware())
	ag.GET("/class-groups", api.queryClassGroups)
	ag.POST("/class-groups", api.createClassGroup, manageMembersMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxMemberOrManagerMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, manageMembersMiddleware())
}

// Handlers

func (api *memberApi) create(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	mbr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, mbr)
}

func (api *memberApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *memberApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == member.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *memberApi) confirmPasswordReset(ctx echo.Context) error {
	var data member.ResetMemberPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetMemberPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []member.Member{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) update(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}

	var data member.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}

	ctxMbr, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if !ctxMbr.Permissions.ManageMembers {
		// role, office, activation and identity changes are reserved for the secretariat
		if data.IsActive != nil || data.Role != "" || data.Office != nil ||
			data.Username != "" || data.Email != "" || data.ClassGroupID != nil {
			return errHttpForbidden
		}
	}

	if err := data.Validate(mbr, api.validate, api.svc); err != nil {
		return err
	}

	mbr, err = api.svc.Update(ctx.Request().Context(), mbr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, mbr)
}

func (api *memberApi) destroy(ctx echo.Context) error {
	mbr, ok := ctx.Get("object").(member.Member)
	if !ok {
		return errors.Wrap(errMbrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxMember cannot delete themselves
	ctxMbr, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if mbr.ID == ctxMbr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), mbr.ID); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxMember cannot delete themselves
	ctxMbr, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, ctxMbr.ID); i < len(query.IDs) {
		if match := query.IDs[i]; ctxMbr.ID == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting members")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, member.Roles)
}

func (api *memberApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *memberApi) queryClassGroups(ctx echo.Context) error {
	groups, err := api.svc.ClassGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying class groups")
	}
	if groups == nil {
		groups = []member.ClassGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *memberApi) createClassGroup(ctx echo.Context) error {
	var data NewClassGroupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassGroupRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cg, err := api.svc.CreateClassGroup(ctx.Request().Context(), data.Name)
	if err != nil {
		return errors.Wrap(err, "creating class group")
	}
	return ctx.JSON(http.StatusCreated, cg)
}

func ctxMemberOrManagerMiddleware(svc member.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxMbr, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}

			if ctx.Param("id") == ctxMbr.ID || ctxMbr.Permissions.ManageMembers {
				if mbr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", mbr)
					return next(ctx)
				} else if errors.Cause(err) != member.ErrNotFound {
					return errors.Wrap(err, "finding member by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}

	NewClassGroupRequest struct {
		Name string `json:"name" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (cg *NewClassGroupRequest) Validate(validate *validator.Validate) error {
	cg.Name = core.CleanString(cg.Name)
	return validate.Struct(cg)
}
