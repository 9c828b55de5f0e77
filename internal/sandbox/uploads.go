package sandbox

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

const maxUploadBytes = 16 << 20

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeProblem(w, http.StatusBadRequest, "invalid multipart form")
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, "file field is required")
		return nil, "", false
	}
	return file, header.Filename, true
}

func cardIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "cardID"), 10, 64)
}

func (s *Server) uploadCardImage(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, "invalid card id")
		return
	}
	if _, err := s.store.GetCard(cardID); err != nil {
		s.writeProblem(w, http.StatusNotFound, "card not found")
		return
	}
	file, filename, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	stored := filepath.Join(s.uploads, fmt.Sprintf("card-%d-%d-%s", cardID, time.Now().UnixNano(), filepath.Base(filename)))
	out, err := os.Create(stored)
	if err != nil {
		s.writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		s.writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := out.Close(); err != nil {
		s.writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}

	image, err := s.store.AddImage(cardID, nil, stored, filepath.Base(filename))
	if err != nil {
		s.writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("image uploaded", "card_id", cardID, "file_name", image.FileName)
	s.publishEvent(model.Event{Type: model.EventTypeCardUpdated, CardID: cardID, Timestamp: time.Now().UTC()})
	s.writeJSON(w, http.StatusCreated, image)
}

// processCardImage fakes OCR-driven suggestion extraction. The upload is
// discarded after the suggestion is derived from the card itself.
func (s *Server) processCardImage(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, "invalid card id")
		return
	}
	card, err := s.store.GetCard(cardID)
	if err != nil {
		s.writeProblem(w, http.StatusNotFound, "card not found")
		return
	}
	file, _, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		s.writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, suggestCard(card))
}

// importBM ingests the legacy BM export: semicolon-separated lines of
// title;description;priority. Rows without a title or with an unknown
// priority are skipped, not fatal.
func (s *Server) importBM(w http.ResponseWriter, r *http.Request) {
	file, _, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	firstColumn := defaultColumns[0].ID
	imported, skipped := 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		title := ""
		description := ""
		priority := model.PriorityMedia
		if len(record) > 0 {
			title = strings.TrimSpace(record[0])
		}
		if len(record) > 1 {
			description = strings.TrimSpace(record[1])
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			candidate := model.Priority(strings.TrimSpace(record[2]))
			if _, allowed := model.AllowedPriorities[candidate]; !allowed {
				skipped++
				continue
			}
			priority = candidate
		}
		if title == "" {
			skipped++
			continue
		}

		card, err := s.store.CreateProposedCard(title, description, firstColumn, priority, nil)
		if err != nil {
			skipped++
			continue
		}
		if _, err := s.store.ConfirmCard(card.ID, title, description, priority, nil, nil); err != nil {
			skipped++
			continue
		}
		imported++
	}

	s.logger.Info("bm import finished", "imported", imported, "skipped", skipped)
	s.writeJSON(w, http.StatusOK, map[string]int{"imported": imported, "skipped": skipped})
}

func (s *Server) importBMXLSX(w http.ResponseWriter, r *http.Request) {
	file, _, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	_, _ = io.Copy(io.Discard, file)
	s.writeProblem(w, http.StatusUnprocessableEntity, "xlsx import is only available on the full backend; convert to CSV and use /kanban/import-bm")
}
