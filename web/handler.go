// Package web is the thin HTTP surface over the pipeline: upload intake,
// job reads, the transcript page, and the websocket event bridge. All real
// work happens in the job orchestrator.
package web

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hark/job"
	"hark/notify"
)

type Handler struct {
	orch   *job.Orchestrator
	hub    *notify.Hub
	logger *log.Logger
}

func NewHandler(
	orch *job.Orchestrator,
	hub *notify.Hub,
	logger *log.Logger,
) *Handler {
	return &Handler{orch: orch, hub: hub, logger: logger}
}

func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleIndex)
	r.Post("/transcribe", h.handleTranscribe)
	r.Get("/jobs", h.handleListJobs)
	r.Get("/jobs/{id}", h.handleGetJob)
	r.Get("/ws", notify.SocketHandler(h.hub, h.logger))
	return r
}

// handleTranscribe accepts a multipart upload, submits it, and answers with
// the job id. Its only contract is "job created, processing started".
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "missing audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	id, err := h.orch.Submit(r.Context(), job.Intake{
		Reader:       file,
		OriginalName: header.Filename,
		Notes:        r.FormValue("notes"),
	})
	if err != nil {
		h.logger.Error("submit failed", "error", err)
		http.Error(w, "could not start job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

type jobView struct {
	ID               string `json:"id"`
	State            string `json:"state"`
	OriginalName     string `json:"originalName"`
	Notes            string `json:"notes,omitempty"`
	TranscriptText   string `json:"transcriptText,omitempty"`
	TranscriptMarkup string `json:"transcriptMarkup,omitempty"`
	ErrorCause       string `json:"errorCause,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
}

func viewOf(j job.Job) jobView {
	v := jobView{
		ID:               j.ID,
		State:            string(j.State),
		OriginalName:     j.OriginalName,
		Notes:            j.Notes,
		TranscriptText:   j.TranscriptText,
		TranscriptMarkup: j.TranscriptMarkup,
		ErrorCause:       j.ErrorCause,
	}
	if !j.CreatedAt.IsZero() {
		v.CreatedAt = j.CreatedAt.Format("2006-01-02 15:04:05")
	}
	return v
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.orch.List(r.Context())
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, viewOf(j))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok, err := h.orch.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get job", "job", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewOf(j))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.orch.List(r.Context())
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	type row struct {
		jobView
		Markup template.HTML
	}
	rows := make([]row, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, row{
			jobView: viewOf(j),
			Markup:  template.HTML(j.TranscriptMarkup),
		})
	}

	if err := indexTemplate.Execute(w, rows); err != nil {
		h.logger.Error("render index", "error", err)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Transcriptions</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100">
    <div class="container mx-auto px-4 py-8">
        <h1 class="text-2xl font-bold mb-4">Transcriptions</h1>
        <form method="post" action="/transcribe" enctype="multipart/form-data"
              class="mb-8 bg-white p-4 rounded shadow">
            <input type="file" name="audio" required>
            <input type="text" name="notes" placeholder="notes"
                   class="border px-2 py-1">
            <button type="submit" class="bg-blue-500 text-white px-4 py-1 rounded">
                Transcribe
            </button>
        </form>
        {{range .}}
        <div class="bg-white p-4 mb-4 rounded shadow">
            <div class="flex justify-between">
                <span class="font-semibold">{{.OriginalName}}</span>
                <span class="text-sm text-gray-500">{{.State}} {{.CreatedAt}}</span>
            </div>
            {{if .ErrorCause}}<p class="text-red-600">{{.ErrorCause}}</p>{{end}}
            {{if .Markup}}<div class="transcription mt-2">{{.Markup}}</div>{{end}}
        </div>
        {{end}}
    </div>
    <script>
        const socket = new WebSocket("ws://" + location.host + "/ws");
        socket.onmessage = (msg) => {
            const ev = JSON.parse(msg.data);
            if (ev.event === "completed" || ev.event === "failed") {
                location.reload();
            }
        };
        document.querySelectorAll(".transcription span[data-start-time]").forEach((span) => {
            span.addEventListener("click", () => {
                const player = document.getElementById("audioPlayer");
                if (player) {
                    player.currentTime = parseFloat(span.dataset.startTime);
                    player.play();
                }
            });
        });
    </script>
</body>
</html>
`))
