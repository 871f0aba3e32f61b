// Command rdm2guac prints a Remote Desktop Manager XML export as Guacamole
// connection JSON.
package main

import (
	"context"
	"os"

	internalcmd "guacmigrate/internal/cmd"
	"guacmigrate/internal/logger"
)

func main() {
	cmd := internalcmd.ConvertCmd()
	log := logger.NewLogger(cmd.ErrOrStderr(), logger.Options{Level: logger.INFO})
	ctx := logger.WithContext(context.Background(), log)

	exitCode := 0
	if err := cmd.ExecuteContext(ctx); err != nil {
		exitCode = 1
	}

	os.Exit(exitCode)
}
