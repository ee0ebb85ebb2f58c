package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/member"
)

type memberRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Username          string         `db:"username"`
	Email             string         `db:"email"`
	IsActive          bool           `db:"is_active"`
	Role              string         `db:"role"`
	Office            string         `db:"office"`
	RoleLabel         string         `db:"role_label"`
	ManageMembers     bool           `db:"manage_members"`
	ApproveApplicants bool           `db:"approve_applicants"`
	ManageFinance     bool           `db:"manage_finance"`
	ManageEvents      bool           `db:"manage_events"`
	ClassGroupID      sql.NullString `db:"class_group_id"`
	PasswordHash      []byte         `db:"password_hash"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	LastLogin         sql.NullTime   `db:"last_login"`
}

func (r memberRow) toModel() member.Member {
	mbr := member.Member{
		ID:        r.ID,
		Name:      r.Name,
		Username:  r.Username,
		Email:     r.Email,
		Role:      r.Role,
		Office:    r.Office,
		RoleLabel: r.RoleLabel,
		Permissions: member.Permissions{
			ManageMembers:     r.ManageMembers,
			ApproveApplicants: r.ApproveApplicants,
			ManageFinance:     r.ManageFinance,
			ManageEvents:      r.ManageEvents,
		},
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	mbr.SetActive(r.IsActive)
	if r.ClassGroupID.Valid {
		mbr.ClassGroupID = &r.ClassGroupID.String
	}
	if r.LastLogin.Valid {
		mbr.LastLogin = r.LastLogin.Time.UTC()
	}
	return mbr
}

func memberToRow(mbr member.Member) memberRow {
	row := memberRow{
		ID:                mbr.ID,
		Name:              mbr.Name,
		Username:          mbr.Username,
		Email:             mbr.Email,
		Role:              mbr.Role,
		Office:            mbr.Office,
		RoleLabel:         mbr.RoleLabel,
		ManageMembers:     mbr.Permissions.ManageMembers,
		ApproveApplicants: mbr.Permissions.ApproveApplicants,
		ManageFinance:     mbr.Permissions.ManageFinance,
		ManageEvents:      mbr.Permissions.ManageEvents,
		PasswordHash:      mbr.PasswordHash,
		CreatedAt:         mbr.CreatedAt,
		UpdatedAt:         mbr.UpdatedAt,
	}
	if mbr.IsActive != nil {
		row.IsActive = *mbr.IsActive
	}
	if mbr.ClassGroupID != nil {
		row.ClassGroupID = sql.NullString{String: *mbr.ClassGroupID, Valid: true}
	}
	if !mbr.LastLogin.IsZero() {
		row.LastLogin = sql.NullTime{Time: mbr.LastLogin, Valid: true}
	}
	return row
}

const memberColumns = `id, name, username, email, is_active, role, office, role_label,
manage_members, approve_applicants, manage_finance, manage_events,
class_group_id, password_hash, created_at, updated_at, last_login`

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedMembers ...member.Member) error {
	q := `SELECT COUNT(*) FROM member WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedMembers) > 0 {
		ids := make([]string, 0, len(excludedMembers))
		for _, mbr := range excludedMembers {
			ids = append(ids, mbr.ID)
		}
		q += ` AND id <> ALL($3)`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if count > 0 {
		return member.ErrMemberExists
	}
	return nil
}

func (repo *memberRepository) CreateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	q := `INSERT INTO member (` + memberColumns + `) VALUES (
:id, :name, :username, :email, :is_active, :role, :office, :role_label,
:manage_members, :approve_applicants, :manage_finance, :manage_events,
:class_group_id, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, memberToRow(mbr)); err != nil {
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return mbr, nil
}

func (repo *memberRepository) QueryMembers(ctx context.Context, filter *member.QueryFilter, ordering []member.DBOrdering) ([]member.Member, error) {
	q := `SELECT ` + memberColumns + ` FROM member`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + strings.ToLower(filter.Search) + "%")
			conds = append(conds, fmt.Sprintf(
				"(LOWER(name) LIKE %[1]s OR LOWER(username) LIKE %[1]s OR LOWER(email) LIKE %[1]s)", p))
		}
		if filter.Role != "" {
			conds = append(conds, "role = "+arg(filter.Role))
		}
		if filter.RoleLabel != "" {
			conds = append(conds, "role_label = "+arg(filter.RoleLabel))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "created_at DESC")

	var rows []memberRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}

	members := make([]member.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toModel())
	}
	return members, nil
}

func (repo *memberRepository) GetMember(ctx context.Context, filter member.GetFilter) (member.Member, error) {
	q := `SELECT ` + memberColumns + ` FROM member WHERE `
	var args []interface{}
	switch {
	case filter.ID != "":
		q += "id = $1"
		args = append(args, filter.ID)
	case filter.Username != "":
		q += "username = $1"
		args = append(args, filter.Username)
	case filter.Email != "":
		q += "email = $1"
		args = append(args, filter.Email)
	case len(filter.UsernameOrEmail) == 2:
		q += "(username = $1 OR email = $2)"
		args = append(args, filter.UsernameOrEmail[0], filter.UsernameOrEmail[1])
	default:
		return member.Member{}, member.ErrNotFound
	}

	var row memberRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return member.Member{}, member.ErrNotFound
		}
		return member.Member{}, errors.Wrap(err, "getting member")
	}
	return row.toModel(), nil
}

func (repo *memberRepository) UpdateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	q := `UPDATE member SET
name = :name, username = :username, email = :email, is_active = :is_active,
role = :role, office = :office, role_label = :role_label,
manage_members = :manage_members, approve_applicants = :approve_applicants,
manage_finance = :manage_finance, manage_events = :manage_events,
class_group_id = :class_group_id, password_hash = :password_hash,
updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, memberToRow(mbr))
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return mbr, nil
}

func (repo *memberRepository) UpdateOrCreateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	q := `INSERT INTO member (` + memberColumns + `) VALUES (
:id, :name, :username, :email, :is_active, :role, :office, :role_label,
:manage_members, :approve_applicants, :manage_finance, :manage_events,
:class_group_id, :password_hash, :created_at, :updated_at, :last_login)
ON CONFLICT (username) DO UPDATE SET
name = EXCLUDED.name, email = EXCLUDED.email, is_active = EXCLUDED.is_active,
role = EXCLUDED.role, office = EXCLUDED.office, role_label = EXCLUDED.role_label,
manage_members = EXCLUDED.manage_members, approve_applicants = EXCLUDED.approve_applicants,
manage_finance = EXCLUDED.manage_finance, manage_events = EXCLUDED.manage_events,
class_group_id = EXCLUDED.class_group_id, password_hash = EXCLUDED.password_hash,
updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.NamedExecContext(ctx, q, memberToRow(mbr)); err != nil {
		return member.Member{}, errors.Wrap(err, "upserting member")
	}
	return repo.GetMember(ctx, member.GetFilter{Username: mbr.Username})
}

func (repo *memberRepository) DeleteMembersByID(ctx context.Context, ids []string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM member WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting members")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting members")
	}
	return int(n), nil
}

func (repo *memberRepository) QueryClassGroups(ctx context.Context) ([]member.ClassGroup, error) {
	var groups []member.ClassGroup
	q := `SELECT id, name FROM class_group ORDER BY name`
	if err := repo.db.SelectContext(ctx, &groups, q); err != nil {
		return nil, errors.Wrap(err, "querying class groups")
	}
	return groups, nil
}

func (repo *memberRepository) GetClassGroupByID(ctx context.Context, id string) (member.ClassGroup, error) {
	var cg member.ClassGroup
	if err := repo.db.GetContext(ctx, &cg, `SELECT id, name FROM class_group WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return member.ClassGroup{}, member.ErrNotFound
		}
		return member.ClassGroup{}, errors.Wrap(err, "getting class group")
	}
	return cg, nil
}

func (repo *memberRepository) CreateClassGroup(ctx context.Context, cg member.ClassGroup) (member.ClassGroup, error) {
	if _, err := repo.db.ExecContext(ctx, `INSERT INTO class_group (id, name) VALUES ($1, $2)`, cg.ID, cg.Name); err != nil {
		return member.ClassGroup{}, errors.Wrap(err, "inserting class group")
	}
	return cg, nil
}

// orderBy renders an ORDER BY clause, falling back to `dflt` when no
// ordering terms were given.
func orderBy(ordering []member.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		terms = append(terms, ord.String())
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}
