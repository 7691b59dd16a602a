package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hark/asr"
	"hark/blob"
	"hark/codec"
	"hark/job"
	"hark/llm"
	"hark/notify"
	"hark/store"
	"hark/web"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(listJobsCmd)
	rootCmd.AddCommand(showJobCmd)
	rootCmd.AddCommand(analyzeCmd)

	rootCmd.PersistentFlags().
		String("database-url", "", "Postgres connection URL for the record store")
	rootCmd.PersistentFlags().
		String("bucket", "", "Google Cloud Storage bucket for audio objects")
	rootCmd.PersistentFlags().
		String("blob-dir", "blobs", "Local object directory when no bucket is set")
	rootCmd.PersistentFlags().
		String("upload-dir", "", "Directory for staging raw uploads")
	rootCmd.PersistentFlags().
		String("openai-api-key", "", "OpenAI API key for transcript analysis")
	serveCmd.Flags().IntP("port", "p", 1337, "HTTP server port")

	viper.BindPFlag(
		"database_url",
		rootCmd.PersistentFlags().Lookup("database-url"),
	)
	viper.BindPFlag("bucket", rootCmd.PersistentFlags().Lookup("bucket"))
	viper.BindPFlag("blob_dir", rootCmd.PersistentFlags().Lookup("blob-dir"))
	viper.BindPFlag("upload_dir", rootCmd.PersistentFlags().Lookup("upload-dir"))
	viper.BindPFlag(
		"openai_api_key",
		rootCmd.PersistentFlags().Lookup("openai-api-key"),
	)
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	logger = log.New(os.Stdout)
}

var rootCmd = &cobra.Command{
	Use:   "hark",
	Short: "hark turns uploaded audio into searchable, time-aligned transcripts",
	Long: `hark ingests audio files and runs them through an asynchronous
pipeline: mono conversion, durable storage, speech recognition, and
transcript materialization, with live progress events for observers.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		orch, hub, cleanup, err := buildPipeline(ctx)
		if err != nil {
			logger.Fatal("initialize pipeline", "error", err)
		}
		defer cleanup()

		handler := web.NewHandler(orch, hub, logger)
		if err := web.Serve(viper.GetInt("port"), handler); err != nil {
			logger.Fatal("http server", "error", err)
		}
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Submit a local audio file for transcription",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		orch, hub, cleanup, err := buildPipeline(ctx)
		if err != nil {
			logger.Fatal("initialize pipeline", "error", err)
		}
		defer cleanup()

		f, err := os.Open(args[0])
		if err != nil {
			logger.Fatal("open file", "error", err)
		}
		defer f.Close()

		sub := hub.Subscribe(64)
		defer sub.Close()

		id, err := orch.Submit(ctx, job.Intake{
			Reader:       f,
			OriginalName: filepath.Base(args[0]),
		})
		if err != nil {
			logger.Fatal("submit", "error", err)
		}
		logger.Info("submitted", "job", id)

		for ev := range sub.Events() {
			if ev.JobID != id {
				continue
			}
			switch ev.Kind {
			case notify.EventUploadProgress:
				logger.Info("converting", "progress",
					fmt.Sprintf("%.0f%%", ev.Fraction*100))
			case notify.EventConverted:
				logger.Info("converted")
			case notify.EventTranscribing:
				logger.Info("transcribing")
			case notify.EventCompleted:
				j, _, err := orch.Get(ctx, id)
				if err != nil {
					logger.Fatal("fetch result", "error", err)
				}
				fmt.Println(j.TranscriptText)
				return
			case notify.EventFailed:
				logger.Fatal("job failed", "reason", ev.Reason)
			}
		}
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List jobs in a table",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		records, cleanup, err := openRecords(ctx)
		if err != nil {
			logger.Fatal("open record store", "error", err)
		}
		defer cleanup()

		recs, err := records.Query(ctx, job.Collection)
		if err != nil {
			logger.Fatal("query jobs", "error", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "State", "File", "Created", "Error"})
		for _, rec := range recs {
			j := job.FromRecord(rec)
			created := ""
			if !j.CreatedAt.IsZero() {
				created = j.CreatedAt.Format("2006-01-02 15:04:05")
			}
			table.Append([]string{
				j.ID,
				string(j.State),
				j.OriginalName,
				created,
				j.ErrorCause,
			})
		}
		table.Render()
	},
}

var showJobCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one job and its transcript",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		j, cleanup := fetchJob(ctx, args[0])
		defer cleanup()

		fmt.Printf("id:     %s\n", j.ID)
		fmt.Printf("state:  %s\n", j.State)
		fmt.Printf("file:   %s\n", j.OriginalName)
		if j.Notes != "" {
			fmt.Printf("notes:  %s\n", j.Notes)
		}
		if j.ErrorCause != "" {
			fmt.Printf("error:  %s\n", j.ErrorCause)
		}
		if j.TranscriptText != "" {
			fmt.Printf("\n%s\n", j.TranscriptText)
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Summarize a completed job's transcript with OpenAI",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		j, cleanup := fetchJob(ctx, args[0])
		defer cleanup()

		if j.State != job.StateCompleted {
			logger.Fatal("job has no transcript yet", "state", j.State)
		}

		synopsis, err := llm.AnalyzeTranscript(
			ctx,
			viper.GetString("openai_api_key"),
			j.TranscriptText,
		)
		if err != nil {
			logger.Fatal("analyze transcript", "error", err)
		}
		fmt.Println(synopsis)
	},
}

func fetchJob(ctx context.Context, id string) (job.Job, func()) {
	records, cleanup, err := openRecords(ctx)
	if err != nil {
		logger.Fatal("open record store", "error", err)
	}

	rec, ok, err := records.Get(ctx, job.Collection, id)
	if err != nil {
		logger.Fatal("get job", "error", err)
	}
	if !ok {
		logger.Fatal("no such job", "id", id)
	}
	return job.FromRecord(rec), cleanup
}

func openRecords(ctx context.Context) (store.Store, func(), error) {
	if url := viper.GetString("database_url"); url != "" {
		pg, err := store.OpenPostgres(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	logger.Warn("no database_url configured, job records will not survive restart")
	return store.NewMemory(), func() {}, nil
}

func buildPipeline(
	ctx context.Context,
) (*job.Orchestrator, *notify.Hub, func(), error) {
	records, cleanup, err := openRecords(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("record store: %w", err)
	}

	var blobs blob.Store
	if bucket := viper.GetString("bucket"); bucket != "" {
		blobs, err = blob.NewGCS(ctx, bucket)
	} else {
		blobs, err = blob.NewDir(viper.GetString("blob_dir"))
	}
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("object storage: %w", err)
	}

	engine, err := asr.NewGoogle(ctx, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("recognition engine: %w", err)
	}

	hub := notify.NewHub()
	orch := &job.Orchestrator{
		Records:   records,
		Blobs:     blobs,
		Codec:     &codec.FFmpeg{Blobs: blobs, Logger: logger},
		Engine:    engine,
		Hub:       hub,
		Poller:    &job.Poller{Blobs: blobs, Logger: logger},
		Logger:    logger,
		UploadDir: viper.GetString("upload_dir"),
	}
	return orch, hub, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
