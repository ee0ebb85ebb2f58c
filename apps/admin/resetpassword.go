package main

import (
	"context"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	mbr, err := cli.mbrRepo.GetMember(ctx, member.GetFilter{UsernameOrEmail: []string{uname, uname}})
	if err != nil {
		return err
	}
	if err := mbr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.mbrRepo.UpdateMember(ctx, mbr); err != nil {
		return err
	}
	return nil
}
