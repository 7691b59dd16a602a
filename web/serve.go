package web

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
)

func Serve(port int, h *Handler) error {
	log.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), h.Router())
}
