package main

import (
	"fmt"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
)

// issueToken prints a bearer token for the API.
func (cli *commandLine) issueToken(actor core.Actor, isAdmin bool) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, actor, isAdmin))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
