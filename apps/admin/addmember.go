package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

// addMember updates or creates a member.Member
func (cli *commandLine) addMember(name, uname, email, pwd, role string) error {
	var mbr member.Member
	var err error
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if mbr, err = cli.mbrRepo.GetMember(ctx, member.GetFilter{UsernameOrEmail: []string{uname, email}}); err != nil {
		if err != member.ErrNotFound {
			return err
		}
		mbr = member.Member{
			ID:       uuid.New().String(),
			Username: uname,
			Email:    email,
		}
	}
	mbr.Name = core.CleanString(name)
	mbr.Role = core.CleanString(role, true /* lower */)
	mbr.SetActive(true)
	member.DerivePermissions(&mbr)
	if err := mbr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.mbrRepo.UpdateOrCreateMember(ctx, mbr); err != nil {
		return err
	}
	return nil
}
