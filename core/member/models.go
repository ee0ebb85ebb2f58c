package member

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/secmun/podium/core"
)

// Organizational roles
const (
	RolePresident             = "president"
	RoleSecretaryGeneral      = "secretary-general"
	RoleDirectorGeneral       = "director-general"
	RoleUnderSecretaryGeneral = "under-secretary-general"
	RoleTeacher               = "teacher"
	RoleMember                = "member"
)

// Offices an under-secretary-general may head
const (
	OfficeFinance   = "finance"
	OfficeLogistics = "logistics"
	OfficeAcademics = "academics"
	OfficeNone      = ""
)

// Coarse role labels derived alongside the permission flags
const (
	LabelLeadership = "leadership"
	LabelTeacher    = "teacher"
	LabelMember     = "member"
)

var (
	AllRoles = []string{
		RolePresident,
		RoleSecretaryGeneral,
		RoleDirectorGeneral,
		RoleUnderSecretaryGeneral,
		RoleTeacher,
		RoleMember,
	}

	AllOffices = []string{OfficeFinance, OfficeLogistics, OfficeAcademics, OfficeNone}

	// leadership roles always hold every capability
	leadershipRoles = map[string]bool{
		RolePresident:        true,
		RoleSecretaryGeneral: true,
		RoleDirectorGeneral:  true,
	}

	Roles = []Role{
		{Name: "Member", Value: RoleMember},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Under-Secretary-General", Value: RoleUnderSecretaryGeneral},
		{Name: "Director-General", Value: RoleDirectorGeneral},
		{Name: "Secretary-General", Value: RoleSecretaryGeneral},
		{Name: "President", Value: RolePresident},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Permissions are the boolean capability flags of a Member.
// They are always recomputed from Role and Office via DerivePermissions;
// there is no other mutation path.
type Permissions struct {
	ManageMembers     bool `json:"manage_members"`
	ApproveApplicants bool `json:"approve_applicants"`
	ManageFinance     bool `json:"manage_finance"`
	ManageEvents      bool `json:"manage_events"`
}

type Member struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	IsActive     *bool       `json:"is_active"`
	Role         string      `json:"role"`
	Office       string      `json:"office,omitempty"`
	RoleLabel    string      `json:"role_label"`
	Permissions  Permissions `json:"permissions"`
	ClassGroupID *string     `json:"class_group_id"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	LastLogin    time.Time   `json:"last_login"` // UTC
}

// DerivePermissions recomputes the capability flags and the coarse role label
// of `m` from its Role and Office. It is a pure function of those two fields
// and is idempotent.
func DerivePermissions(m *Member) {
	grantAll := leadershipRoles[m.Role] || m.Role == RoleTeacher

	m.Permissions = Permissions{
		ManageMembers:     grantAll,
		ApproveApplicants: grantAll,
		ManageFinance:     grantAll,
		ManageEvents:      grantAll,
	}

	switch {
	case leadershipRoles[m.Role]:
		m.RoleLabel = LabelLeadership
	case m.Role == RoleTeacher:
		m.RoleLabel = LabelTeacher
	default:
		m.RoleLabel = LabelMember
	}

	// additive exception: a finance USG keeps the purse strings
	if m.Role == RoleUnderSecretaryGeneral && m.Office == OfficeFinance {
		m.Permissions.ManageFinance = true
	}
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

func (m *Member) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd))
}

func (m *Member) SetActive(active bool) { m.IsActive = &active }

func (m *Member) IsLeadership() bool { return m.RoleLabel == LabelLeadership }
func (m *Member) IsTeacher() bool    { return m.RoleLabel == LabelTeacher }

// ClassGroup is the class a student member belongs to; sessions and global
// schedule entries are owned by a class group.
type ClassGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewMember contains information needed to create a new Member.
type NewMember struct {
	Name            string  `json:"name" validate:"required"`
	Username        string  `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string  `json:"role" validate:"omitempty,orgrole"`
	Office          string  `json:"office" validate:"omitempty,orgoffice"`
	ClassGroupID    *string `json:"class_group_id" validate:"omitempty,uuid4"`
}

func (nm *NewMember) Validate(validate *validator.Validate, svc Service) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Username = core.CleanString(nm.Username, true /* lower */)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	if nm.Role == "" {
		nm.Role = RoleMember
	}

	if err := validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckUniqueness(nm.Username, nm.Email)
}

// UpdateMember defines what information may be provided to modify an existing Member.
type UpdateMember struct {
	Name            string  `json:"name"`
	Username        string  `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string  `json:"email" validate:"omitempty,email"`
	IsActive        *bool   `json:"is_active"`
	Role            string  `json:"role" validate:"omitempty,orgrole"`
	Office          *string `json:"office" validate:"omitempty,orgoffice"`
	ClassGroupID    *string `json:"class_group_id" validate:"omitempty,uuid4"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (um *UpdateMember) Validate(origMbr Member, validate *validator.Validate, svc Service) error {
	name := core.CleanString(um.Name)
	if name != "" {
		um.Name = name
	} else {
		um.Name = origMbr.Name
	}

	uname := core.CleanString(um.Username, true /* lower */)
	if uname != "" {
		um.Username = uname
	} else {
		um.Username = origMbr.Username
	}

	email := core.CleanString(um.Email, true /* lower */)
	if email != "" {
		um.Email = email
	} else {
		um.Email = origMbr.Email
	}

	if err := validate.Struct(um); err != nil {
		return err
	}
	return svc.CheckUniqueness(um.Username, um.Email, origMbr)
}

type ResetMemberPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetMemberPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	RoleLabel   string    `query:"role_label"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.RoleLabel == "" && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.RoleLabel = core.CleanString(qf.RoleLabel, true /* lower */)
}

// GetFilter selects a single Member by one of its unique attributes.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}
