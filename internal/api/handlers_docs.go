package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists finished markdown artifacts in the output
// directory.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	dir := s.orchestrator.OutputDir()
	if dir == "" {
		jsonError(w, "no output directory configured", http.StatusNotFound)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, map[string]any{"documents": []any{}})
			return
		}
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	docs := []map[string]any{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		docs = append(docs, map[string]any{
			"name":        entry.Name(),
			"size_bytes":  info.Size(),
			"modified_at": info.ModTime(),
		})
	}

	writeJSON(w, map[string]any{"documents": docs})
}

// handleDeleteDocument removes one finished artifact by name.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	dir := s.orchestrator.OutputDir()
	if dir == "" {
		jsonError(w, "no output directory configured", http.StatusNotFound)
		return
	}

	name := sanitizeFilename(chi.URLParam(r, "name"))
	if !strings.HasSuffix(name, ".md") {
		jsonError(w, "only markdown artifacts can be deleted", http.StatusBadRequest)
		return
	}

	path := filepath.Join(dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"deleted": name})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
