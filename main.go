package main

import (
	"os"

	"github.com/centic-tools/centic-ctl/cmd"
	"github.com/centic-tools/centic-ctl/internal/errors"
)

func main() {
	os.Exit(errors.GetExitCode(cmd.Execute()))
}
