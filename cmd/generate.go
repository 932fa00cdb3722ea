package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"blogforge/src/core/blogflow"
)

var (
	briefFile    string
	briefInput   blogflow.Brief
	showMarkdown bool
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a blog draft from a brief in this process",
	Long: `Create a job from the brief and step it until it completes or fails, showing
progress as it goes. The brief comes from --brief-file (JSON) or from the individual flags.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&briefFile, "brief-file", "", "path to a JSON brief")
	generateCmd.Flags().StringVarP(&briefInput.Title, "title", "t", "", "article title")
	generateCmd.Flags().IntVarP(&briefInput.WordCount, "word-count", "w", 1500, "target word count")
	generateCmd.Flags().StringVarP(&briefInput.PrimaryKeyword, "keyword", "k", "", "primary keyword")
	generateCmd.Flags().StringSliceVar(&briefInput.SecondaryKeywords, "secondary-keyword", nil, "secondary keywords")
	generateCmd.Flags().StringSliceVar(&briefInput.InternalLinks, "internal-link", nil, "internal link URLs")
	generateCmd.Flags().StringSliceVar(&briefInput.ExternalLinks, "external-link", nil, "external link URLs")
	generateCmd.Flags().StringVar(&briefInput.AdditionalInstructions, "instructions", "", "additional instructions for the writer")
	generateCmd.Flags().BoolVar(&showMarkdown, "print-markdown", false, "print the assembled markdown when done")
}

func loadBrief() (blogflow.Brief, error) {
	if briefFile == "" {
		return briefInput, nil
	}
	return readBriefFile(briefFile)
}

func readBriefFile(path string) (blogflow.Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return blogflow.Brief{}, fmt.Errorf("failed to read brief file: %w", err)
	}
	var brief blogflow.Brief
	if err := json.Unmarshal(data, &brief); err != nil {
		return blogflow.Brief{}, fmt.Errorf("failed to parse brief file: %w", err)
	}
	return brief, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	brief, err := loadBrief()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	job, err := deps.stepper.CreateJob(ctx, brief)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Created job %s\n", job.ID)

	job, err = runToCompletion(ctx, deps.stepper, job.ID, progressbar.NewOptions(100,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("pending"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	))
	if err != nil {
		return err
	}

	if job.Status == blogflow.StatusFailed {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Draft created: %s\n", job.Result.DocumentID)
	fmt.Fprintf(out, "Studio: %s\n", job.Result.StudioURL)
	fmt.Fprintf(out, "URL: %s\n", job.Result.PublishedURL)
	if showMarkdown {
		fmt.Fprintln(out)
		fmt.Fprintln(out, job.FullMarkdown)
	}
	return nil
}

// runToCompletion steps the job until it reaches a terminal status.
func runToCompletion(ctx context.Context, stepper *blogflow.Stepper, id string, bar *progressbar.ProgressBar) (*blogflow.Job, error) {
	for {
		job, err := stepper.Step(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("interrupted, job %s can be resumed: %w", id, err)
			}
			return nil, err
		}

		bar.Describe(job.CurrentStep)
		_ = bar.Set(job.Progress)

		if job.Status.Terminal() {
			_ = bar.Finish()
			return job, nil
		}
	}
}
