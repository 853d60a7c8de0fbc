package main

import (
	"fmt"
	"os"

	"github.com/bramsnet/meteorscan/cmd"
	"github.com/bramsnet/meteorscan/internal/buildinfo"
	"github.com/bramsnet/meteorscan/internal/conf"
)

// version and buildDate are set via -ldflags "-X main.version=... -X main.buildDate=..."
// at release build time; both default to placeholders for `go run`/local builds.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	runtimeCtx := &buildinfo.Context{Version: version, BuildDate: buildDate}

	if err := cmd.RootCommand(settings, runtimeCtx).Execute(); err != nil {
		os.Exit(1)
	}
}
