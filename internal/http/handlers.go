package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/service/auth"
	"github.com/warble-app/warble/internal/service/user"
	"github.com/warble-app/warble/internal/ws"
)

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		FullName string `json:"fullName"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, token, err := r.auth.Signup(req.Context(), auth.SignupInput{
		FullName: payload.FullName,
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		r.respondError(w, err)
		return
	}
	r.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, userPayload(created))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	logged, token, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		r.respondError(w, err)
		return
	}
	r.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, userPayload(logged))
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	r.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	u, ok := currentUser(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	fresh, err := r.auth.Me(req.Context(), u.ID)
	if err != nil {
		r.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(fresh))
}

func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	u, ok := currentUser(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	rest := strings.TrimPrefix(req.URL.Path, "/users/")
	head, tail, _ := strings.Cut(rest, "/")

	switch {
	case head == "profile" && req.Method == http.MethodGet && tail != "":
		profile, err := r.users.GetProfile(req.Context(), tail)
		if err != nil {
			r.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, userPayload(profile))

	case head == "suggested" && req.Method == http.MethodGet:
		suggested, err := r.users.Suggested(req.Context(), u.ID)
		if err != nil {
			r.respondError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(suggested))
		for i := range suggested {
			payload = append(payload, userPayload(&suggested[i]))
		}
		writeJSON(w, http.StatusOK, payload)

	case head == "follow" && req.Method == http.MethodPost && tail != "":
		followed, err := r.users.FollowUnfollow(req.Context(), u, tail)
		if err != nil {
			r.respondError(w, err)
			return
		}
		msg := "User unfollowed"
		if followed {
			msg = "User followed"
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})

	case head == "update" && req.Method == http.MethodPost:
		r.handleUserUpdate(w, req, u.ID)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (r *Router) handleUserUpdate(w http.ResponseWriter, req *http.Request, userID string) {
	var payload struct {
		FullName        string `json:"fullName"`
		Username        string `json:"username"`
		Email           string `json:"email"`
		Bio             string `json:"bio"`
		Link            string `json:"link"`
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ProfileImg      string `json:"profileImg"`
		CoverImg        string `json:"coverImg"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := r.users.UpdateProfile(req.Context(), userID, user.UpdateInput{
		FullName:        payload.FullName,
		Username:        payload.Username,
		Email:           payload.Email,
		Bio:             payload.Bio,
		Link:            payload.Link,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
		ProfileImg:      payload.ProfileImg,
		CoverImg:        payload.CoverImg,
	})
	if err != nil {
		r.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(updated))
}

func (r *Router) handlePosts(w http.ResponseWriter, req *http.Request) {
	u, ok := currentUser(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	rest := strings.TrimPrefix(req.URL.Path, "/posts/")
	head, tail, _ := strings.Cut(rest, "/")

	switch {
	case head == "all" && req.Method == http.MethodGet:
		r.respondPosts(w, req, func() ([]domain.Post, error) {
			return r.posts.All(req.Context())
		})

	case head == "following" && req.Method == http.MethodGet:
		r.respondPosts(w, req, func() ([]domain.Post, error) {
			return r.posts.Following(req.Context(), u.ID)
		})

	case head == "user" && req.Method == http.MethodGet && tail != "":
		r.respondPosts(w, req, func() ([]domain.Post, error) {
			return r.posts.ByUsername(req.Context(), tail)
		})

	case head == "likes" && req.Method == http.MethodGet && tail != "":
		r.respondPosts(w, req, func() ([]domain.Post, error) {
			return r.posts.LikedBy(req.Context(), tail)
		})

	case head == "create" && req.Method == http.MethodPost:
		var payload struct {
			Text string `json:"text"`
			Img  string `json:"img"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.posts.Create(req.Context(), u, payload.Text, payload.Img)
		if err != nil {
			r.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, postPayload(created))

	case head == "like" && req.Method == http.MethodPost && tail != "":
		liked, err := r.posts.LikeUnlike(req.Context(), u, tail)
		if err != nil {
			r.respondError(w, err)
			return
		}
		msg := "Post unliked"
		if liked {
			msg = "Post liked"
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})

	case head == "comment" && req.Method == http.MethodPost && tail != "":
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		commented, err := r.posts.Comment(req.Context(), u, tail, payload.Text)
		if err != nil {
			r.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, postPayload(commented))

	case req.Method == http.MethodDelete && head != "" && tail == "":
		if err := r.posts.Delete(req.Context(), u.ID, head); err != nil {
			r.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (r *Router) respondPosts(w http.ResponseWriter, req *http.Request, fetch func() ([]domain.Post, error)) {
	posts, err := fetch()
	if err != nil {
		r.respondError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(posts))
	for i := range posts {
		payload = append(payload, postPayload(&posts[i]))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) {
	u, ok := currentUser(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	switch req.Method {
	case http.MethodGet:
		notifications, err := r.notifications.List(req.Context(), u.ID)
		if err != nil {
			r.respondError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(notifications))
		for i := range notifications {
			payload = append(payload, notificationPayload(&notifications[i]))
		}
		writeJSON(w, http.StatusOK, payload)
	case http.MethodDelete:
		if err := r.notifications.Clear(req.Context(), u.ID); err != nil {
			r.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Notifications deleted successfully"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleNotificationsWS(w http.ResponseWriter, req *http.Request) {
	u, ok := currentUser(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(u.ID, client)
	defer func() {
		r.hub.Unregister(u.ID, client)
		client.Close()
	}()

	// Drain control frames until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Router) handleNotificationsSSE(w http.ResponseWriter, req *http.Request) {
	u, ok := currentUser(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(u.ID, client)
	defer func() {
		r.hub.Unregister(u.ID, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
