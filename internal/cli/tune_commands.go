package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"studio-service/internal/app"
	"studio-service/internal/core/domain"
)

func newTuneCommand(ctx *commandContext) *cobra.Command {
	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "Create and inspect fine-tuning jobs",
	}

	tuneCmd.AddCommand(newTuneCreateCommand(ctx))
	tuneCmd.AddCommand(newTuneStatusCommand(ctx))
	tuneCmd.AddCommand(newTuneEventsCommand(ctx))
	tuneCmd.AddCommand(newTuneCheckpointsCommand(ctx))
	tuneCmd.AddCommand(newTuneDownloadCommand(ctx))

	return tuneCmd
}

type hyperparameterFlags struct {
	batchSize    int
	learningRate float64
	nEpochs      int
	warmupRatio  float64
	weightDecay  float64
	lora         bool
	loraR        int
	loraAlpha    int
	loraDropout  float64
	packing      bool
}

func (f *hyperparameterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.batchSize, "batch-size", 0, "Training batch size")
	flags.Float64Var(&f.learningRate, "learning-rate", 0, "Learning rate multiplier")
	flags.IntVar(&f.nEpochs, "epochs", 0, "Number of training epochs")
	flags.Float64Var(&f.warmupRatio, "warmup-ratio", 0, "Warmup ratio")
	flags.Float64Var(&f.weightDecay, "weight-decay", 0, "Weight decay")
	flags.BoolVar(&f.lora, "lora", false, "Train a LoRA adapter")
	flags.IntVar(&f.loraR, "lora-r", 0, "LoRA rank")
	flags.IntVar(&f.loraAlpha, "lora-alpha", 0, "LoRA alpha")
	flags.Float64Var(&f.loraDropout, "lora-dropout", 0, "LoRA dropout")
	flags.BoolVar(&f.packing, "packing", false, "Pack short examples together")
}

// build returns only the knobs set on the command line.
func (f *hyperparameterFlags) build(cmd *cobra.Command) *domain.Hyperparameters {
	changed := cmd.Flags().Changed
	var hp domain.Hyperparameters
	if changed("batch-size") {
		hp.BatchSize = &f.batchSize
	}
	if changed("learning-rate") {
		hp.LearningRate = &f.learningRate
	}
	if changed("epochs") {
		hp.NEpochs = &f.nEpochs
	}
	if changed("warmup-ratio") {
		hp.WarmupRatio = &f.warmupRatio
	}
	if changed("weight-decay") {
		hp.WeightDecay = &f.weightDecay
	}
	if changed("lora") {
		hp.Lora = &f.lora
	}
	if changed("lora-r") {
		hp.LoraR = &f.loraR
	}
	if changed("lora-alpha") {
		hp.LoraAlpha = &f.loraAlpha
	}
	if changed("lora-dropout") {
		hp.LoraDropout = &f.loraDropout
	}
	if changed("packing") {
		hp.Packing = &f.packing
	}
	if hp.IsEmpty() {
		return nil
	}
	return &hp
}

func newTuneCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		model          string
		trainingPath   string
		validationPath string
		suffix         string
		hp             hyperparameterFlags
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Upload training data and start a fine-tuning job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			training, err := readUploadedFile(trainingPath)
			if err != nil {
				return err
			}
			var validation *domain.UploadedFile
			if validationPath != "" {
				if validation, err = readUploadedFile(validationPath); err != nil {
					return err
				}
			}

			return ctx.withApp(cmd, func(a *app.App) error {
				job, err := a.FineTuning.CreateJob(cmd.Context(), domain.FineTuningParams{
					Model:           model,
					TrainingFile:    training,
					ValidationFile:  validation,
					Hyperparameters: hp.build(cmd),
					Suffix:          suffix,
				})
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, job)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderJobStatus(job))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Base model to fine-tune")
	cmd.Flags().StringVarP(&trainingPath, "training-file", "t", "", "Training data (.jsonl)")
	cmd.Flags().StringVarP(&validationPath, "validation-file", "v", "", "Validation data (.jsonl)")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Suffix appended to the fine-tuned model name")
	hp.register(cmd)
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("training-file")

	return cmd
}

func newTuneStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				job, err := a.FineTuning.GetJobStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, job)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderJobStatus(job))
				return nil
			})
		},
	}
}

func newTuneEventsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "events <job-id>",
		Short: "List the events of a fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				events, err := a.FineTuning.ListJobEvents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, events)
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No events")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{domain.EpochToISO(e.CreatedAt), e.Level, e.Message})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Created", "Level", "Message"}, rows, nil))
				return nil
			})
		},
	}
}

func newTuneCheckpointsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints <job-id>",
		Short: "List the checkpoints of a fine-tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				checkpoints, err := a.FineTuning.ListJobCheckpoints(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, checkpoints)
				}
				if len(checkpoints) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints")
					return nil
				}
				rows := make([][]string, 0, len(checkpoints))
				for _, cp := range checkpoints {
					rows = append(rows, []string{
						cp.ID,
						strconv.Itoa(cp.StepNumber),
						domain.EpochToISO(cp.CreatedAt),
						strings.Join(cp.ResultFiles, ", "),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Step", "Created", "Result files"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newTuneDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <file-id> <filename>",
		Short: "Download a checkpoint result file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				path, err := a.Checkpoints.Download(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if ctx.wantJSON() {
					return writeJSON(cmd, map[string]string{"filePath": path})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
				return nil
			})
		},
	}
}

func renderJobStatus(job *domain.FineTuningStatus) string {
	return renderKeyValues([][2]string{
		{"Job ID", job.JobID},
		{"Status", string(job.Status)},
		{"Model", job.Model},
		{"Created", job.CreatedAt},
		{"Finished", job.FinishedAt},
		{"Fine-tuned model", job.FineTunedModel},
		{"Training file", job.TrainingFile},
		{"Validation file", job.ValidationFile},
	})
}

func readUploadedFile(path string) (*domain.UploadedFile, error) {
	if !domain.HasJSONLExtension(path) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrInvalidExtension)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &domain.UploadedFile{Name: filepath.Base(path), Content: content}, nil
}
