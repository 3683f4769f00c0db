package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/etijucas/offline/internal/daemon"
	"github.com/etijucas/offline/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{ProfileName: profileName}),
	)

	app.Run()
}
