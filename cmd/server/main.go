package main

import (
	"log"

	approuters "github.com/priyesh-kurmi/eventhive-sub000/internal/app_routers"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/configuration"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "shared/config.dev.json", "path to the JSON config file (empty for env only)")
	pflag.Parse()

	config, err := configuration.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := configuration.BuildContainer(config)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	// Setup routers
	approuters.StartServer(container)
}
