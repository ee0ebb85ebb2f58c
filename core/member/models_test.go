package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePermissions(t *testing.T) {
	allOn := Permissions{ManageMembers: true, ApproveApplicants: true, ManageFinance: true, ManageEvents: true}
	allOff := Permissions{}

	tests := []struct {
		name      string
		role      string
		office    string
		wantPerms Permissions
		wantLabel string
	}{
		{name: "president", role: RolePresident, wantPerms: allOn, wantLabel: LabelLeadership},
		{name: "secretary-general", role: RoleSecretaryGeneral, wantPerms: allOn, wantLabel: LabelLeadership},
		{name: "director-general", role: RoleDirectorGeneral, wantPerms: allOn, wantLabel: LabelLeadership},
		{name: "teacher", role: RoleTeacher, wantPerms: allOn, wantLabel: LabelTeacher},
		{name: "plain member", role: RoleMember, wantPerms: allOff, wantLabel: LabelMember},
		{name: "usg without office", role: RoleUnderSecretaryGeneral, wantPerms: allOff, wantLabel: LabelMember},
		{
			name: "usg finance override", role: RoleUnderSecretaryGeneral, office: OfficeFinance,
			wantPerms: Permissions{ManageFinance: true}, wantLabel: LabelMember,
		},
		{name: "usg logistics", role: RoleUnderSecretaryGeneral, office: OfficeLogistics, wantPerms: allOff, wantLabel: LabelMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mbr := Member{Role: tt.role, Office: tt.office}

			// flags deliberately stale; derivation must overwrite them
			mbr.Permissions = Permissions{ManageMembers: true}

			DerivePermissions(&mbr)
			assert.Equal(t, tt.wantPerms, mbr.Permissions)
			assert.Equal(t, tt.wantLabel, mbr.RoleLabel)

			// idempotent: a second application changes nothing
			before := mbr
			DerivePermissions(&mbr)
			assert.Equal(t, before, mbr)
		})
	}
}

func TestMemberPasswords(t *testing.T) {
	var mbr Member
	if err := mbr.SetPassword("s3cretP@ss"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	assert.NoError(t, mbr.CheckPassword("s3cretP@ss"))
	assert.Error(t, mbr.CheckPassword("wrong"))
}
