package routes

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/training"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const defaultTagColor = "#6b7280"

type tagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.Store.ListTags(r.Context(), currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]training.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, db.ToTag(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var in tagInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 64 {
		s.fail(w, r, badRequest("name must be 1-64 characters"))
		return
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = defaultTagColor
	}
	if !hexColor.MatchString(color) {
		s.fail(w, r, badRequest("color must look like #rrggbb"))
		return
	}

	tag, err := s.Store.CreateTag(r.Context(), db.CreateTagParams{UserID: currentUser(r), Name: name, Color: strings.ToLower(color)})
	if err != nil {
		if db.IsUniqueViolation(err) {
			s.fail(w, r, ErrConflict)
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, db.ToTag(tag))
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.Store.DeleteTag(r.Context(), db.DeleteTagParams{ID: id, UserID: currentUser(r)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		s.fail(w, r, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAttachTag is idempotent: attaching an attached tag succeeds
func (s *Server) handleAttachTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	userID := currentUser(r)
	n, err := s.Store.AttachTag(r.Context(), db.AttachTagParams{TrainingID: id, TagID: tagID, UserID: userID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		// nothing inserted: either already attached or not ours
		t, err := s.loadTraining(r.Context(), userID, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		attached := false
		for _, tag := range t.Tags {
			if tag.ID == tagID {
				attached = true
				break
			}
		}
		if !attached {
			s.fail(w, r, ErrNotFound)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDetachTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.Store.DetachTag(r.Context(), db.DetachTagParams{TrainingID: id, TagID: tagID, UserID: currentUser(r)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		s.fail(w, r, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
