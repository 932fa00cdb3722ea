package cmd

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "blogforge/src/infrastructure/job"
	"blogforge/src/log"
)

var enqueueBriefFile string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [job-id]",
	Short: "Queue a job step for the worker",
	Long: `Queue the next step of an existing job, or create a job from --brief-file and queue
its first step. Requires a store shared with the worker (postgres or redis).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	enqueueCmd.Flags().StringVar(&enqueueBriefFile, "brief-file", "", "create a job from this JSON brief")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (enqueueBriefFile == "") {
		return fmt.Errorf("either a job id or --brief-file is required")
	}

	ctx := cmd.Context()
	log.Info("Enqueue configuration",
		"store", viper.GetString("store.backend"),
		"amqp_url", viper.GetString("amqp.url"),
	)

	deps, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermillLogger(),
	)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	var jobID string
	if len(args) == 1 {
		job, err := deps.stepper.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return fmt.Errorf("job %s is already %s", job.ID, job.Status)
		}
		jobID = job.ID
	} else {
		brief, err := readBriefFile(enqueueBriefFile)
		if err != nil {
			return err
		}
		job, err := deps.stepper.CreateJob(ctx, brief)
		if err != nil {
			return err
		}
		jobID = job.ID
	}

	dispatcher := jobctrl.NewStepDispatcher(publisher, deps.stepper, watermillLogger())
	if err := dispatcher.Dispatch(ctx, jobID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully enqueued job %s\n", jobID)
	return nil
}
