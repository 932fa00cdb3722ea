package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "blogforge/src/infrastructure/job"
	"blogforge/src/log"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background step worker",
	Long: `The worker consumes step messages from AMQP, runs one step per message and
queues the next step until the job is completed or failed.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := watermillLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		logger,
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	dispatcher := jobctrl.NewStepDispatcher(amqpPublisher, deps.stepper, logger)
	dispatcher.Register(router, amqpSubscriber)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(ctx)
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
	case err := <-errCh:
		if err != nil {
			log.Error(err, "Router stopped unexpectedly")
		}
		return err
	}

	log.Info("Shutting down...")
	cancel()
	if err := <-errCh; err != nil {
		log.Error(err, "Router stopped with error")
	}
	log.Info("Router stopped")

	return nil
}
