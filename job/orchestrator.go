package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"hark/asr"
	"hark/blob"
	"hark/notify"
	"hark/store"
	"hark/transcript"
)

// Transcoder converts a complete local file into a normalized object in
// blob storage, reporting fractional progress along the way.
type Transcoder interface {
	TranscodeToStorage(
		ctx context.Context,
		inputPath string,
		key string,
		onProgress func(float64),
	) error
}

// Intake is what the upload surface hands the orchestrator: a readable
// byte stream plus the original filename.
type Intake struct {
	Reader       io.Reader
	OriginalName string
	Notes        string
}

// Orchestrator sequences a job through transcode, durability confirmation,
// recognition, and result materialization. It is the sole writer of job
// state; every stage reports back to it rather than touching the record.
type Orchestrator struct {
	Records store.Store
	Blobs   blob.Store
	Codec   Transcoder
	Engine  asr.Engine
	Hub     *notify.Hub
	Poller  *Poller
	Logger  *log.Logger

	// UploadDir holds raw uploads until conversion. Empty means the
	// system temp dir.
	UploadDir string
}

// Submit creates the job record in state Created and returns its id. The
// rest of the pipeline runs on a detached goroutine whose lifetime is
// independent of the caller; once submitted, a job runs to Completed or
// Failed with no cancellation.
func (o *Orchestrator) Submit(ctx context.Context, in Intake) (string, error) {
	if in.Reader == nil {
		return "", &IntakeError{Err: errors.New("missing upload stream")}
	}
	if in.OriginalName == "" {
		return "", &IntakeError{Err: errors.New("missing original filename")}
	}

	id := uuid.NewString()

	rawPath, err := o.saveUpload(id, in.Reader)
	if err != nil {
		return "", &IntakeError{Err: err}
	}

	now := time.Now()
	j := Job{
		ID:            id,
		State:         StateCreated,
		OriginalName:  in.OriginalName,
		Notes:         in.Notes,
		StorageRefRaw: rawPath,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.Records.Upsert(ctx, Collection, id, j.Fields()); err != nil {
		os.Remove(rawPath)
		return "", &PersistenceError{Err: err}
	}

	o.Logger.Info("job created", "job", id, "file", in.OriginalName)
	go o.run(context.Background(), j)
	return id, nil
}

func (o *Orchestrator) saveUpload(id string, r io.Reader) (string, error) {
	dir := o.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "upload-"+id+"-*")
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("read upload stream: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return f.Name(), nil
}

// run drives one job end to end. It runs on its own goroutine; jobs share
// nothing with each other beyond the record store and the hub.
func (o *Orchestrator) run(ctx context.Context, j Job) {
	cur := j.State

	advance := func(to State, extra store.Record) {
		if !CanTransition(cur, to) {
			// Single-owner sequencing makes this unreachable; a hit
			// means the pipeline itself is broken.
			o.Logger.Error("invalid state transition",
				"job", j.ID, "from", cur, "to", to)
			return
		}
		cur = to
		fields := store.Record{
			"state":     string(to),
			"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
		}
		for k, v := range extra {
			fields[k] = v
		}
		if err := o.Records.Upsert(ctx, Collection, j.ID, fields); err != nil {
			o.logPersistence(j.ID, err)
		}
	}

	fail := func(cause error) {
		o.Logger.Error("job failed", "job", j.ID, "cause", cause)
		advance(StateFailed, store.Record{"errorCause": cause.Error()})
		o.Hub.Publish(notify.Event{
			Kind:   notify.EventFailed,
			JobID:  j.ID,
			Reason: cause.Error(),
		})
	}

	// Transcode: stream the raw upload through the codec into storage,
	// forwarding the codec's progress fractions verbatim.
	convertedKey := fmt.Sprintf("converted_%s_%s.wav", j.OriginalName, j.ID)
	advance(StateUploading, nil)
	err := o.Codec.TranscodeToStorage(ctx, j.StorageRefRaw, convertedKey,
		func(fraction float64) {
			o.Hub.Publish(notify.Event{
				Kind:     notify.EventUploadProgress,
				JobID:    j.ID,
				Fraction: fraction,
			})
		})
	if err != nil {
		// The raw upload stays behind on this path; see DESIGN.md.
		fail(&TranscodeError{Err: err})
		return
	}

	if err := os.Remove(j.StorageRefRaw); err != nil {
		o.Logger.Warn("could not remove raw upload",
			"job", j.ID, "path", j.StorageRefRaw, "error", err)
	}
	advance(StateConverted, store.Record{"storageRefConverted": convertedKey})
	o.Hub.Publish(notify.Event{Kind: notify.EventConverted, JobID: j.ID})

	// Confirm the converted object is actually visible downstream before
	// pointing the recognizer at it.
	if err := o.Poller.Confirm(ctx, convertedKey); err != nil {
		fail(err)
		return
	}
	advance(StateConfirmed, nil)

	// Recognition: submit and await the engine's single pushed outcome.
	// There is no timeout here; a stalled engine stalls this job only.
	op, err := o.Engine.Submit(ctx, o.Blobs.URI(convertedKey), asr.DefaultConfig())
	if err != nil {
		fail(&RecognitionError{Err: err})
		return
	}
	advance(StateTranscribing, nil)
	o.Hub.Publish(notify.Event{Kind: notify.EventTranscribing, JobID: j.ID})

	go func() {
		for percent := range op.Progress() {
			o.Logger.Debug("recognition progress",
				"job", j.ID, "percent", percent)
		}
	}()

	result, err := op.Wait(ctx)
	if err != nil {
		fail(&RecognitionError{Err: err})
		return
	}

	// Materialize: one final merge carrying the transcript fields, then a
	// terminal signal with just the id; observers re-fetch full state.
	text := transcript.Text(result)
	markup := transcript.Markup(result)
	raw, err := json.Marshal(result)
	if err != nil {
		o.Logger.Error("could not encode raw result", "job", j.ID, "error", err)
	}
	advance(StateCompleted, store.Record{
		"transcriptText":   text,
		"transcriptMarkup": markup,
		"transcriptRaw":    string(raw),
	})
	o.saveTranscriptObject(ctx, j.ID, text)
	o.Hub.Publish(notify.Event{Kind: notify.EventCompleted, JobID: j.ID})
	o.Logger.Info("job completed", "job", j.ID)
}

// saveTranscriptObject keeps a plain-text copy of the transcript next to
// the audio. Best-effort: the job is already complete.
func (o *Orchestrator) saveTranscriptObject(
	ctx context.Context,
	id, text string,
) {
	key := fmt.Sprintf("transcriptions_%s.txt", id)
	w, err := o.Blobs.Put(ctx, key)
	if err != nil {
		o.Logger.Warn("could not save transcript object",
			"job", id, "error", err)
		return
	}
	if _, err := io.WriteString(w, text); err != nil {
		w.Abort()
		o.Logger.Warn("could not save transcript object",
			"job", id, "error", err)
		return
	}
	if err := w.Close(); err != nil {
		o.Logger.Warn("could not save transcript object",
			"job", id, "error", err)
	}
}

func (o *Orchestrator) logPersistence(id string, err error) {
	o.Logger.Error("job record write failed",
		"job", id, "error", &PersistenceError{Err: err})
}

// Get fetches one job record.
func (o *Orchestrator) Get(ctx context.Context, id string) (Job, bool, error) {
	rec, ok, err := o.Records.Get(ctx, Collection, id)
	if err != nil || !ok {
		return Job{}, ok, err
	}
	return FromRecord(rec), true, nil
}

// List fetches all job records in submission order.
func (o *Orchestrator) List(ctx context.Context) ([]Job, error) {
	recs, err := o.Records.Query(ctx, Collection)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(recs))
	for _, rec := range recs {
		jobs = append(jobs, FromRecord(rec))
	}
	return jobs, nil
}
