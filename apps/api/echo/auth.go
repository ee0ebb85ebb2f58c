package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

var (
	// appJWTConfig is the default JWT auth middleware config; the signing key
	// is injected via initAuth before the server starts.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "memberToken",
		Claims:        new(Claims),
	}
	contextMemberKey = "member"

	authConf *core.Config
)

func initAuth(conf *core.Config) {
	authConf = conf
	appJWTConfig.SigningKey = conf.SecretKey
}

// Claims represents the authorization claims transmitted via a JWT.
// The capability flags mirror the ones derived on the Member; middlewares
// gate endpoints on them without a DB roundtrip.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt      int64  `json:"oriat,omitempty"`
	Username          string `json:"username,omitempty"`
	Email             string `json:"email,omitempty"`
	RoleLabel         string `json:"role_label,omitempty"`
	ManageMembers     bool   `json:"manage_members,omitempty"`
	ApproveApplicants bool   `json:"approve_applicants,omitempty"`
	ManageFinance     bool   `json:"manage_finance,omitempty"`
	ManageEvents      bool   `json:"manage_events,omitempty"`
}

func GetMemberClaims(mbr member.Member, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    authConf.AppName,
			Subject:   mbr.ID,
			Audience:  "SECMUN",
			ExpiresAt: now.Add(authConf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:      oriat,
		Username:          mbr.Username,
		Email:             mbr.Email,
		RoleLabel:         mbr.RoleLabel,
		ManageMembers:     mbr.Permissions.ManageMembers,
		ApproveApplicants: mbr.Permissions.ApproveApplicants,
		ManageFinance:     mbr.Permissions.ManageFinance,
		ManageEvents:      mbr.Permissions.ManageEvents,
	}
	return claims
}

func authenticate(ctx context.Context, uname, pwd string, svc member.Service) (*Claims, error) {
	mbr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err == member.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding member by username or email")
	}
	if err = mbr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if mbr.IsActive != nil && !*mbr.IsActive {
		return nil, errAccountDeactivated
	}
	mbr, err = svc.SetLastLogin(ctx, mbr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetMemberClaims(mbr), nil
}

// GenerateToken generates a signed JWT token string representing the member Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey.([]byte))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextMember(ctx echo.Context, svc member.Service, clms ...Claims) (member.Member, error) {
	if mbr, ok := ctx.Get(contextMemberKey).(member.Member); ok {
		return mbr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return member.Member{}, errors.Wrap(err, "getting context claims")
		}
	}

	mbr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "finding member by ID")
	}
	ctx.Set(contextMemberKey, mbr)
	return mbr, nil
}

func refreshToken(ctx echo.Context, svc member.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	mbr, err := getContextMember(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context member")
	}

	// check if member is still active
	if mbr.IsActive != nil && !*mbr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(authConf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetMemberClaims(mbr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
