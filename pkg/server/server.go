package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/iin-community/kehila/pkg/adapter"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/repository"
	"github.com/iin-community/kehila/pkg/usecase/post"
	"github.com/iin-community/kehila/pkg/usecase/search"
	"github.com/iin-community/kehila/pkg/usecase/summary"
	"github.com/iin-community/kehila/pkg/utils/logging"
)

// defaultFeedLimit caps the feed page when the client does not ask for a
// specific size.
const defaultFeedLimit = 25

// avatarPathMarker separates the public URL prefix from the storage key in
// stored profile image paths.
const avatarPathMarker = "/profile-images/"

// Server wires the HTTP surface to the usecases. All /api routes except the
// job trigger require a verified bearer token; the job trigger uses its own
// shared secret header.
type Server struct {
	search   *search.UseCase
	posts    *post.UseCase
	job      *summary.Job
	repo     repository.Repository
	storage  adapter.Storage
	verifier adapter.TokenVerifier
	jobToken string
}

func New(searchUC *search.UseCase, postUC *post.UseCase, job *summary.Job, repo repository.Repository, storage adapter.Storage, verifier adapter.TokenVerifier, jobToken string) *Server {
	return &Server{
		search:   searchUC,
		posts:    postUC,
		job:      job,
		repo:     repo,
		storage:  storage,
		verifier: verifier,
		jobToken: jobToken,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/search", s.requireUser(s.handleSearch))
	mux.HandleFunc("GET /api/posts", s.requireUser(s.handleFeed))
	mux.HandleFunc("POST /api/posts", s.requireUser(s.handleCreatePost))
	mux.HandleFunc("POST /api/posts/{id}/comments", s.requireUser(s.handleCreateComment))
	mux.HandleFunc("GET /api/summary", s.requireUser(s.handleSummary))
	mux.HandleFunc("GET /api/avatar", s.requireUser(s.handleAvatar))
	mux.HandleFunc("POST /api/jobs/summary", s.handleSummaryJob)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(ctx, w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := s.search.Search(ctx, req.Query)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(ctx, w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	feed, err := s.posts.Feed(ctx, limit)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{"data": feed})
}

type createPostRequest struct {
	Subject     string   `json:"subject"`
	Message     string   `json:"message"`
	Attachments []string `json:"attachments"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFrom(ctx)

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.posts.CreatePost(ctx, post.CreatePostInput{
		Sender:      identity.Email,
		Subject:     req.Subject,
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, map[string]any{"data": created})
}

type createCommentRequest struct {
	Message     string   `json:"message"`
	Attachments []string `json:"attachments"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFrom(ctx)
	postID := model.PostID(r.PathValue("id"))

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.posts.CreateComment(ctx, post.CreateCommentInput{
		PostID:      postID,
		Sender:      identity.Email,
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, map[string]any{"data": created})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latest, err := s.repo.LatestSummary(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeJSON(ctx, w, http.StatusOK, map[string]any{
				"data":    nil,
				"message": "No summaries yet",
			})
			return
		}
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]any{"data": latest})
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	targetID := r.URL.Query().Get("id")
	if targetID == "" {
		writeError(ctx, w, http.StatusBadRequest, "missing id parameter")
		return
	}

	user, err := s.repo.GetUserByUUID(ctx, targetID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	if user.Image == nil || *user.Image == "" {
		writeError(ctx, w, http.StatusNotFound, "no image set for user")
		return
	}

	_, key, found := strings.Cut(*user.Image, avatarPathMarker)
	if !found || key == "" {
		writeError(ctx, w, http.StatusInternalServerError, "invalid image path")
		return
	}

	reader, contentType, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "image not found in storage")
			return
		}
		handleError(ctx, w, err)
		return
	}
	defer reader.Close()

	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		logging.From(ctx).Warn("failed to stream avatar", "error", err)
	}
}

func (s *Server) handleSummaryJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provided := r.Header.Get("X-Custom-Auth")
	if s.jobToken == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(s.jobToken)) != 1 {
		logging.From(ctx).Warn("unauthorized summary job trigger")
		writeError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	outcome, err := s.job.Run(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, outcome)
}
