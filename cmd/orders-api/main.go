package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/form3tech-oss/pact-orders/internal/app/configuration"
	"github.com/form3tech-oss/pact-orders/internal/app/orders"
	log "github.com/sirupsen/logrus"
)

func main() {
	config, err := configuration.NewFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if err := configuration.ConfigureLogging(config.LogLevel); err != nil {
		log.Fatal(err)
	}

	repository := orders.NewRepository()
	api := orders.NewAPI(repository, orders.NewPublisher(orders.LogSink{}), config.EnableProviderStates)

	host, err := configuration.StartHost(config.Address, api)
	if err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := host.Shutdown(ctx); err != nil {
		log.Error(err)
	}
}
