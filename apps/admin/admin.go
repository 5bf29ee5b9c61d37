package main

import (
	"context"
	"fmt"

	"github.com/trezcool/feedback/core/admin"
)

func (cli *commandLine) createAdmin(ctx context.Context, na admin.NewAdmin) error {
	if err := na.Validate(cli.validate); err != nil {
		return describeValidation(err, cli.translator)
	}
	adm, err := cli.admins.Create(ctx, na)
	if err != nil {
		return describeValidation(err, cli.translator)
	}
	fmt.Fprintf(cli.out, "Admin %q (%s) created with role %q.\n", adm.Username, adm.Email, adm.Role)
	return nil
}
