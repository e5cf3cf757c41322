// Command otpagent keeps an unlocked vault in memory and serves codes to
// otpkeeper over gRPC until it is locked or the auto-lock timer fires.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/otpkeeper/internal/server"
	"github.com/dmitrijs2005/otpkeeper/internal/server/config"
)

func main() {
	log.SetPrefix("otpagent: ")

	ctx := context.Background()
	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Fatal(err)
	}
	app.Run(ctx)
}
