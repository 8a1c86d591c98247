// Command server runs the lending HTTP API together with the background
// redelivery and reminder jobs.
package main

import (
	"context"
	"log"

	"github.com/heartmarshall/mangalend-backend/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
