package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-social-client/internal/models"
)

const maxMultipartMemory = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.DetailResponse{Detail: detail})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}

	fields := map[string][]string{}
	if in.Username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(in.Password) < 8 {
		fields["password"] = []string{"This password is too short. It must contain at least 8 characters."}
	}
	if in.Password != in.PasswordConfirm {
		fields["password_confirm"] = []string{"Passwords do not match."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[in.Email]; taken {
		fields["email"] = append(fields["email"], "user with this email already exists.")
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	s.addUserLocked(in.Username, in.Email, in.Password)
	writeDetail(w, http.StatusCreated, "Registration successful. Check your email to verify your account.")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.byEmail[in.Email]
	if !ok || s.users[uid].password != in.Password {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	writeJSON(w, http.StatusOK, s.issueLocked(uid))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	hold := s.refreshHold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	var in models.RefreshRequest
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshFail != 0 {
		writeDetail(w, s.refreshFail, http.StatusText(s.refreshFail))
		return
	}

	uid, ok := s.refresh[in.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	access := s.signLocked(uid, "access", s.accessTTL)
	s.access[access] = uid
	writeJSON(w, http.StatusOK, models.AccessToken{Access: access})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, s.userViewLocked(viewer, viewer))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	var id int64
	if chi.URLParam(r, "id") == "me" {
		id = viewer
	} else {
		var ok bool
		if id, ok = pathID(r); !ok {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		writeDetail(w, http.StatusNotFound, "No User matches the given query.")
		return
	}
	writeJSON(w, http.StatusOK, s.userViewLocked(id, viewer))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if id != viewer {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeDetail(w, http.StatusBadRequest, "Multipart form parse error.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[id]
	if v := r.FormValue("username"); v != "" {
		u.Username = v
	}
	u.Bio = r.FormValue("bio")
	u.Website = r.FormValue("website")
	u.Location = r.FormValue("location")
	if _, fh, err := r.FormFile("avatar"); err == nil {
		p := "/media/avatars/" + filepath.Base(fh.Filename)
		u.Avatar = &p
	}
	if _, fh, err := r.FormFile("cover"); err == nil {
		p := "/media/covers/" + filepath.Base(fh.Filename)
		u.Cover = &p
	}

	writeJSON(w, http.StatusOK, s.userViewLocked(id, viewer))
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		writeDetail(w, http.StatusNotFound, "No User matches the given query.")
		return
	}
	if id == viewer {
		writeDetail(w, http.StatusBadRequest, "You cannot follow yourself.")
		return
	}

	key := pair{viewer, id}
	if _, ok := s.follows[key]; ok {
		delete(s.follows, key)
		writeDetail(w, http.StatusOK, "Unfollowed.")
		return
	}
	s.nextID++
	s.follows[key] = follow{id: s.nextID, createdAt: time.Now().UTC()}
	writeDetail(w, http.StatusCreated, "Followed.")
}

// handleFollowers отвечает DRF-пагинацией, handleFollowing — массивом:
// клиент обязан понимать оба вида.
func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	rels, ok := s.relations(w, r, func(p pair, id int64) bool { return p.b == id })
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(rels),
		"next":     nil,
		"previous": nil,
		"results":  rels,
	})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	rels, ok := s.relations(w, r, func(p pair, id int64) bool { return p.a == id })
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (s *Server) relations(w http.ResponseWriter, r *http.Request, match func(pair, int64) bool) ([]models.FollowRelation, bool) {
	viewer := userFrom(r.Context())
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		writeDetail(w, http.StatusNotFound, "No User matches the given query.")
		return nil, false
	}

	rels := []models.FollowRelation{}
	for p, f := range s.follows {
		if !match(p, id) {
			continue
		}
		rels = append(rels, models.FollowRelation{
			ID:        f.id,
			Follower:  s.userViewLocked(p.a, viewer),
			Following: s.userViewLocked(p.b, viewer),
			CreatedAt: f.createdAt,
		})
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID > rels[j].ID })

	return rels, true
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Post
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		p := s.posts[s.postOrder[i]]
		if p == nil {
			continue
		}
		if p.Author.ID == viewer || s.isFollowingLocked(viewer, p.Author.ID) {
			all = append(all, s.postViewLocked(p, viewer))
		}
	}

	page := []models.Post{}
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page = all[offset:end]
	}

	writeJSON(w, http.StatusOK, models.FeedResponse{Results: page, Offset: offset, Limit: limit})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	var author int64
	if v := r.URL.Query().Get("author"); v != "" {
		var err error
		if author, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"author": {"A valid integer is required."}})
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Post{}
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		p := s.posts[s.postOrder[i]]
		if p == nil || (author != 0 && p.Author.ID != author) {
			continue
		}
		if p.Visibility == models.VisibilityPrivate && p.Author.ID != viewer {
			continue
		}
		out = append(out, s.postViewLocked(p, viewer))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeDetail(w, http.StatusBadRequest, "Multipart form parse error.")
		return
	}

	vis, err := models.ParseVisibility(r.FormValue("visibility"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"visibility": {fmt.Sprintf("%q is not a valid choice.", r.FormValue("visibility"))},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var media []models.PostMedia
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["media"] {
			s.nextID++
			media = append(media, models.PostMedia{
				ID:        s.nextID,
				File:      "/media/posts/" + filepath.Base(fh.Filename),
				MediaType: mediaType(fh.Filename),
			})
		}
	}

	body := r.FormValue("body")
	if body == "" && len(media) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Post must have body or media."},
		})
		return
	}

	p := s.addPostLocked(viewer, body, vis, media)
	writeJSON(w, http.StatusCreated, s.postViewLocked(p, viewer))
}

func mediaType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov", ".webm":
		return "video"
	default:
		return "image"
	}
}

func (s *Server) postFor(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return nil, false
	}
	p, ok := s.posts[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "No Post matches the given query.")
		return nil, false
	}
	return p, true
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.postViewLocked(p, viewer))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeDetail(w, http.StatusBadRequest, "Multipart form parse error.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}
	if p.Author.ID != viewer {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	if v := r.FormValue("body"); v != "" {
		p.Body = v
	}
	if v := r.FormValue("visibility"); v != "" {
		vis, err := models.ParseVisibility(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"visibility": {fmt.Sprintf("%q is not a valid choice.", v)}})
			return
		}
		p.Visibility = vis
	}
	p.UpdatedAt = time.Now().UTC()

	writeJSON(w, http.StatusOK, s.postViewLocked(p, viewer))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}
	if p.Author.ID != viewer {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	delete(s.posts, p.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}

	key := pair{p.ID, viewer}
	if s.saves[key] {
		delete(s.saves, key)
		writeDetail(w, http.StatusOK, "Unsaved.")
		return
	}
	s.saves[key] = true
	writeDetail(w, http.StatusOK, "Saved.")
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	var in struct {
		Type string `json:"type"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}
	typ, err := models.ParseReaction(in.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"type": {fmt.Sprintf("%q is not a valid choice.", in.Type)}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}

	key := pair{p.ID, viewer}
	if cur, ok := s.reactions[key]; ok && cur == typ {
		delete(s.reactions, key)
		writeDetail(w, http.StatusOK, "Reaction removed.")
		return
	}
	s.reactions[key] = typ
	writeDetail(w, http.StatusOK, "Reaction saved.")
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}

	list := s.comments[p.ID]
	out := make([]models.Comment, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"next":     nil,
		"previous": nil,
		"results":  out,
	})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	viewer := userFrom(r.Context())

	var in struct {
		Body string `json:"body"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}
	if strings.TrimSpace(in.Body) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"body": {"This field may not be blank."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postFor(w, r)
	if !ok {
		return
	}

	s.nextID++
	now := time.Now().UTC()
	c := models.Comment{
		ID:        s.nextID,
		User:      s.userViewLocked(viewer, viewer),
		Body:      in.Body,
		Replies:   []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[p.ID] = append(s.comments[p.ID], c)

	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) isFollowingLocked(follower, following int64) bool {
	_, ok := s.follows[pair{follower, following}]
	return ok
}

func (s *Server) userViewLocked(id, viewer int64) models.UserPublic {
	u, ok := s.users[id]
	if !ok {
		return models.UserPublic{ID: id}
	}

	out := u.UserPublic
	out.FollowersCount, out.FollowingCount = 0, 0
	for p := range s.follows {
		if p.b == id {
			out.FollowersCount++
		}
		if p.a == id {
			out.FollowingCount++
		}
	}
	out.IsFollowing = s.isFollowingLocked(viewer, id)
	return out
}

func (s *Server) postViewLocked(p *models.Post, viewer int64) models.Post {
	out := *p
	out.Author = s.userViewLocked(p.Author.ID, viewer)
	out.ReactionsCount = 0
	for k := range s.reactions {
		if k.a == p.ID {
			out.ReactionsCount++
		}
	}
	if typ, ok := s.reactions[pair{p.ID, viewer}]; ok {
		t := typ
		out.UserReaction = &t
	} else {
		out.UserReaction = nil
	}
	out.CommentsCount = len(s.comments[p.ID])
	out.IsSaved = s.saves[pair{p.ID, viewer}]
	return out
}
