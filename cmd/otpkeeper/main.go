// Command otpkeeper is the interactive OTP vault. It opens the local vault
// directly, or talks to a running otpagent when an agent address is set.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/otpkeeper/internal/client/cli"
	"github.com/dmitrijs2005/otpkeeper/internal/client/config"
	"github.com/dmitrijs2005/otpkeeper/internal/logging"
)

func main() {
	log.SetPrefix("otpkeeper: ")

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg, logging.NewText(os.Stderr, cfg.LogLevel))
	if err != nil {
		log.Fatal(err)
	}
	app.Run(ctx)
}
