package main

import (
	"github.com/WhyMan1/bot-reality/internal/app"
	"github.com/projectdiscovery/gologger"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		gologger.Fatal().Msgf("Failed to initialize worker: %v", err)
	}

	shutdownChan := make(chan struct{}, 2)
	if err := application.Start(shutdownChan); err != nil {
		gologger.Fatal().Msgf("Worker stopped with error: %v", err)
	}
}
