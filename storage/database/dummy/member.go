package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/secmun/podium/core/member"
)

type memberRepository struct {
	members     *memberTable
	classGroups *classGroupTable
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *DB) *memberRepository {
	return &memberRepository{members: db.member, classGroups: db.classGroup}
}

func (repo *memberRepository) query() []member.Member {
	members := make([]member.Member, 0, len(repo.members.table))
	for _, m := range repo.members.table {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.After(members[j].CreatedAt) })
	return members
}

func (repo *memberRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedMembers ...member.Member) error {
	repo.members.RLock()
	defer repo.members.RUnlock()

	excluded := make(map[string]bool, len(excludedMembers))
	for _, mbr := range excludedMembers {
		excluded[mbr.ID] = true
	}

	for _, mbr := range repo.query() {
		if excluded[mbr.ID] {
			continue
		}
		if mbr.Username == username || mbr.Email == email {
			return member.ErrMemberExists
		}
	}
	return nil
}

func (repo *memberRepository) CreateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	repo.members.Lock()
	defer repo.members.Unlock()

	if mbr.ID == "" {
		return member.Member{}, errEmptyID
	}
	repo.members.table[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *memberRepository) QueryMembers(ctx context.Context, filter *member.QueryFilter, ordering []member.DBOrdering) ([]member.Member, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	members := repo.query()
	if filter == nil {
		return members, nil
	}

	if filter.Search != "" {
		var filtered []member.Member
		needle := strings.ToLower(filter.Search)
		for _, m := range members {
			if strings.Contains(strings.ToLower(m.Name), needle) ||
				strings.Contains(strings.ToLower(m.Username), needle) ||
				strings.Contains(strings.ToLower(m.Email), needle) {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	if filter.Role != "" {
		var filtered []member.Member
		for _, m := range members {
			if m.Role == filter.Role {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	if filter.RoleLabel != "" {
		var filtered []member.Member
		for _, m := range members {
			if m.RoleLabel == filter.RoleLabel {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	if filter.IsActive != nil {
		var filtered []member.Member
		for _, m := range members {
			if m.IsActive != nil && *m.IsActive == *filter.IsActive {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	if !filter.CreatedFrom.IsZero() {
		var filtered []member.Member
		fromUTC := filter.CreatedFrom.UTC()
		for _, m := range members {
			if !m.CreatedAt.Before(fromUTC) {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	if !filter.CreatedTo.IsZero() {
		var filtered []member.Member
		toUTC := filter.CreatedTo.UTC()
		for _, m := range members {
			if !m.CreatedAt.After(toUTC) {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	return members, nil
}

func (repo *memberRepository) GetMember(ctx context.Context, filter member.GetFilter) (member.Member, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	if filter.ID != "" {
		if mbr, ok := repo.members.table[filter.ID]; ok {
			return *mbr, nil
		}
		return member.Member{}, member.ErrNotFound
	}
	for _, mbr := range repo.query() {
		switch {
		case filter.Username != "" && mbr.Username == filter.Username:
			return mbr, nil
		case filter.Email != "" && mbr.Email == filter.Email:
			return mbr, nil
		case len(filter.UsernameOrEmail) == 2 &&
			(mbr.Username == filter.UsernameOrEmail[0] || mbr.Email == filter.UsernameOrEmail[1]):
			return mbr, nil
		}
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) UpdateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	repo.members.Lock()
	defer repo.members.Unlock()

	if _, ok := repo.members.table[mbr.ID]; !ok {
		return member.Member{}, member.ErrNotFound
	}
	repo.members.table[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *memberRepository) UpdateOrCreateMember(ctx context.Context, mbr member.Member) (member.Member, error) {
	repo.members.Lock()
	defer repo.members.Unlock()

	for id, existing := range repo.members.table {
		if existing.Username == mbr.Username {
			mbr.ID = id
			mbr.CreatedAt = existing.CreatedAt
			repo.members.table[id] = &mbr
			return mbr, nil
		}
	}
	if mbr.ID == "" {
		return member.Member{}, errEmptyID
	}
	repo.members.table[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *memberRepository) DeleteMembersByID(ctx context.Context, ids []string) (int, error) {
	repo.members.Lock()
	defer repo.members.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.members.table[id]; ok {
			delete(repo.members.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *memberRepository) QueryClassGroups(ctx context.Context) ([]member.ClassGroup, error) {
	repo.classGroups.RLock()
	defer repo.classGroups.RUnlock()

	groups := make([]member.ClassGroup, 0, len(repo.classGroups.table))
	for _, cg := range repo.classGroups.table {
		groups = append(groups, *cg)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *memberRepository) GetClassGroupByID(ctx context.Context, id string) (member.ClassGroup, error) {
	repo.classGroups.RLock()
	defer repo.classGroups.RUnlock()

	if cg, ok := repo.classGroups.table[id]; ok {
		return *cg, nil
	}
	return member.ClassGroup{}, member.ErrNotFound
}

func (repo *memberRepository) CreateClassGroup(ctx context.Context, cg member.ClassGroup) (member.ClassGroup, error) {
	repo.classGroups.Lock()
	defer repo.classGroups.Unlock()

	if cg.ID == "" {
		return member.ClassGroup{}, errEmptyID
	}
	repo.classGroups.table[cg.ID] = &cg
	return cg, nil
}
