package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "blogforge/handler/http"
	jobctrl "blogforge/src/infrastructure/job"
	"blogforge/src/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the blog job API server",
	Long: `The serve command starts an HTTP server for creating, stepping and polling blog jobs.
With --dispatch every created job is also queued for the background worker.`,
	RunE: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("dispatch", false, "queue the first step of each new job on AMQP")
	viper.BindPFlag("server.dispatch", serveCmd.Flags().Lookup("dispatch"))
}

func RunServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	var opts []httpHdlr.Option
	if viper.GetBool("server.dispatch") {
		if viper.GetString("store.backend") == "memory" {
			log.Info("Dispatching with the memory store, jobs are invisible to other processes")
		}

		amqpPublisher, err := amqp.NewPublisher(
			amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
			watermillLogger(),
		)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()

		dispatcher := jobctrl.NewStepDispatcher(amqpPublisher, deps.stepper, watermillLogger())
		opts = append(opts, httpHdlr.WithDispatcher(dispatcher))
	}

	// Setup gin router
	r := gin.Default()
	httpHdlr.NewHandler(deps.stepper, opts...).RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		log.Error(err, "Failed to start server")
		return err
	}
	log.Info("Shutting down server...")

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Info("Invalid shutdown timeout, using default 5s", "error", err.Error())
		timeout = 5 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
	return nil
}
