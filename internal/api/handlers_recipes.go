package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/cookgest/internal/export"
	"github.com/dgallion1/cookgest/internal/recipe"
)

// handleAnalyze converts a document without storing it. The document is the
// raw request body, or the "file" part of a multipart form.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	format := export.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	var body io.Reader
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if name == "" {
			name = recipe.NameFromPath(sanitizeFilename(header.Filename))
		}
		body = file
	} else {
		body = r.Body
	}
	if name == "" {
		jsonError(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read document", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, "document exceeds max size", http.StatusRequestEntityTooLarge)
		return
	}

	rec, err := s.orchestrator.Converter().Analyzer().AnalyzeReader(bytes.NewReader(data), name+".md")
	if err != nil {
		s.log.Info("analysis rejected", "name", name, "error", err)
		recipeError(w, err)
		return
	}
	writeRecipe(w, format, rec)
}

// handleListRecipes lists the names of exported recipes.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	names, err := s.orchestrator.Converter().Writer().List()
	if err != nil {
		recipeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"recipes": names})
}

// handleGetRecipe returns a stored record.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	writer := s.orchestrator.Converter().Writer()
	rec, err := writer.Read(chi.URLParam(r, "name"))
	if err != nil {
		recipeError(w, err)
		return
	}
	writeRecipe(w, writer.Format(), rec)
}

// handleDeleteRecipe removes a stored record.
func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.orchestrator.Converter().Writer().Remove(name); err != nil {
		recipeError(w, err)
		return
	}
	s.log.Info("recipe deleted", "name", name)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": name})
}

func writeRecipe(w http.ResponseWriter, format export.Format, rec *recipe.Recipe) {
	var buf bytes.Buffer
	if err := export.Encode(&buf, format, rec); err != nil {
		jsonError(w, "encode recipe: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if format == export.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(buf.Bytes())
}

// recipeError maps a classified error to a status and writes
// {"error", "kind"}.
func recipeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, export.ErrInvalidName):
		code = http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		code = http.StatusNotFound
	case errors.Is(err, recipe.ErrMalformedDocument):
		code = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  string(recipe.CodeOf(err)),
	})
}
