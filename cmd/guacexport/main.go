// Command guacexport writes the connections of a Guacamole database to a
// JSON file.
package main

import (
	"context"
	"os"

	internalcmd "guacmigrate/internal/cmd"
	"guacmigrate/internal/logger"
)

func main() {
	cmd := internalcmd.ExportCmd()
	log := logger.NewLogger(cmd.ErrOrStderr(), logger.Options{Level: logger.INFO})
	ctx := logger.WithContext(context.Background(), log)

	exitCode := 0
	if err := cmd.ExecuteContext(ctx); err != nil {
		exitCode = 1
	}

	os.Exit(exitCode)
}
