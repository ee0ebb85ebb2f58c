package member

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
)

var (
	// errors
	ErrNotFound     = errors.New("member not found")
	ErrMemberExists = errors.New("a member with this username or email already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedMembers ...Member) error
		CreateMember(ctx context.Context, mbr Member) (Member, error)
		QueryMembers(ctx context.Context, filter *QueryFilter, ordering []DBOrdering) ([]Member, error)
		GetMember(ctx context.Context, filter GetFilter) (Member, error)
		UpdateMember(ctx context.Context, mbr Member) (Member, error)
		UpdateOrCreateMember(ctx context.Context, mbr Member) (Member, error)
		DeleteMembersByID(ctx context.Context, ids []string) (int, error)

		QueryClassGroups(ctx context.Context) ([]ClassGroup, error)
		GetClassGroupByID(ctx context.Context, id string) (ClassGroup, error)
		CreateClassGroup(ctx context.Context, cg ClassGroup) (ClassGroup, error)
	}

	// DBOrdering describes a single ORDER BY term.
	DBOrdering struct {
		Field     string
		Ascending bool
	}

	Service interface {
		CheckUniqueness(uname, email string, excl ...Member) error
		Create(ctx context.Context, nm NewMember) (Member, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []DBOrdering) ([]Member, error)
		GetByID(ctx context.Context, id string) (Member, error)
		GetByUsername(ctx context.Context, uname string) (Member, error)
		GetByEmail(ctx context.Context, email string) (Member, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (Member, error)
		Update(ctx context.Context, id string, um UpdateMember) (Member, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, mbr Member) (Member, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetMemberPassword) error

		ClassGroups(ctx context.Context) ([]ClassGroup, error)
		GetClassGroup(ctx context.Context, id string) (ClassGroup, error)
		CreateClassGroup(ctx context.Context, name string) (ClassGroup, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(uname, email string, excl ...Member) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, excl...); err != nil {
		if errors.Cause(err) != ErrMemberExists {
			return err
		}
		return core.NewValidationError(err,
			core.FieldError{Field: "username", Error: err.Error()},
			core.FieldError{Field: "email", Error: err.Error()},
		)
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nm NewMember) (Member, error) {
	now := time.Now().UTC()
	mbr := Member{
		ID:           uuid.New().String(),
		Name:         nm.Name,
		Username:     nm.Username,
		Email:        nm.Email,
		Role:         nm.Role,
		Office:       nm.Office,
		ClassGroupID: nm.ClassGroupID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	mbr.SetActive(true)
	DerivePermissions(&mbr)
	if err := mbr.SetPassword(nm.Password); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}

	mbr, err := svc.repo.CreateMember(ctx, mbr)
	if err != nil {
		return Member{}, err
	}
	svc.sendWelcomeMail(mbr)
	return mbr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []DBOrdering) ([]Member, error) {
	if filter != nil && filter.IsEmpty() {
		filter = nil
	}
	return svc.repo.QueryMembers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (Member, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.repo.GetMember(ctx, GetFilter{UsernameOrEmail: []string{uname, uname}})
}

func (svc *service) Update(ctx context.Context, id string, um UpdateMember) (Member, error) {
	mbr, err := svc.repo.GetMember(ctx, GetFilter{ID: id})
	if err != nil {
		return Member{}, err
	}

	mbr.Name = um.Name
	mbr.Username = um.Username
	mbr.Email = um.Email
	if um.IsActive != nil {
		mbr.IsActive = um.IsActive
	}
	if um.Role != "" {
		mbr.Role = um.Role
	}
	if um.Office != nil {
		mbr.Office = *um.Office
	}
	if um.ClassGroupID != nil {
		mbr.ClassGroupID = um.ClassGroupID
	}
	if um.Password != "" {
		if err := mbr.SetPassword(um.Password); err != nil {
			return Member{}, errors.Wrap(err, "setting password")
		}
	}
	mbr.UpdatedAt = time.Now().UTC()

	// flags are never patched directly; they follow role & office
	DerivePermissions(&mbr)

	return svc.repo.UpdateMember(ctx, mbr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteMembersByID(ctx, ids)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, mbr Member) (Member, error) {
	mbr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateMember(ctx, mbr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	mbr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(mbr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetMemberPassword) error {
	id, err := DecodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	mbr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(mbr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = mbr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	mbr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateMember(ctx, mbr); err != nil {
		return err
	}
	svc.sendPasswordResetDoneMail(mbr)
	return nil
}

func (svc *service) ClassGroups(ctx context.Context) ([]ClassGroup, error) {
	return svc.repo.QueryClassGroups(ctx)
}

func (svc *service) GetClassGroup(ctx context.Context, id string) (ClassGroup, error) {
	return svc.repo.GetClassGroupByID(ctx, id)
}

func (svc *service) CreateClassGroup(ctx context.Context, name string) (ClassGroup, error) {
	return svc.repo.CreateClassGroup(ctx, ClassGroup{ID: uuid.New().String(), Name: name})
}

// Mails

func (svc *service) sendWelcomeMail(mbr Member) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: mbr.Name, Address: mbr.Email}},
		Subject:      "Welcome to the Secretariat",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{Name: mbr.Name},
	})
}

func (svc *service) sendPasswordResetMail(mbr Member) {
	token, err := MakeToken(mbr)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: mbr.Name, Address: mbr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{Name: mbr.Name, UID: EncodeUID(mbr), Token: token},
	})
}

func (svc *service) sendPasswordResetDoneMail(mbr Member) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: mbr.Name, Address: mbr.Email}},
		Subject: "Password Reset Complete",
		BodyStr: fmt.Sprintf("Hi %s,\n\nYour password has been reset.", mbr.Name),
	})
}
