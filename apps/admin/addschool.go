package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) addSchool(name string) error {
	sch, err := cli.schoolSvc.CreateSchool(context.Background(), name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "school %q created: %s\n", sch.Name, sch.ID)
	return nil
}
