package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/isdelr/book-review-be/internal/auth"
	"github.com/isdelr/book-review-be/internal/database"
	"github.com/isdelr/book-review-be/internal/models"
	"github.com/isdelr/book-review-be/internal/services"
	"github.com/isdelr/book-review-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *httptest.Server
	books  *services.BookService
	users  *services.UserService
	events *services.EventService
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	env := &testEnv{
		books: services.NewBookService([]models.Book{
			{ISBN: "1234", Title: "Learning JS", Author: "Jane Doe", Reviews: map[string]string{}},
			{ISBN: "2", Title: "Go Basics", Author: "Author A", Reviews: map[string]string{}},
			{ISBN: "3", Title: "Go Advanced", Author: "Author A", Reviews: map[string]string{}},
		}),
		users:  services.NewUserService(),
		events: services.NewEventService(db),
	}

	router := NewRouter(Dependencies{
		Books:    env.books,
		Users:    env.users,
		Events:   env.events,
		Tokens:   auth.NewTokenManager("access", time.Hour),
		Sessions: auth.NewSessionStore(),
		Hub:      hub,
	})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	return doWith(t, http.DefaultClient, e.server.URL, method, path, token, body)
}

func doWith(t *testing.T, client *http.Client, base, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, base+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func messageOf(t *testing.T, body []byte) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m.Message
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/register", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusCreated, status)

	status, body := e.do(t, http.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegister(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"missing username", map[string]string{"password": "pw"}, http.StatusBadRequest, "Username is required"},
		{"missing password", map[string]string{"username": "bob"}, http.StatusBadRequest, "Password is required"},
		{"no body", nil, http.StatusBadRequest, "Username is required"},
		{"created", map[string]string{"username": "bob", "password": "pw"}, http.StatusCreated, "User registered successfully"},
		{"duplicate", map[string]string{"username": "bob", "password": "other"}, http.StatusConflict, "Username already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/register", "", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, messageOf(t, body))
		})
	}
	assert.Equal(t, 1, env.users.CountUsers())
}

func TestLogin(t *testing.T) {
	env := setupTestServer(t)
	status, _ := env.do(t, http.MethodPost, "/register", "", map[string]string{"username": "bob", "password": "pw"})
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name    string
		path    string
		body    map[string]string
		status  int
		message string
	}{
		{"missing password", "/login", map[string]string{"username": "bob"}, http.StatusBadRequest, "Password is required"},
		{"unknown user", "/login", map[string]string{"username": "alice", "password": "pw"}, http.StatusUnauthorized, "Invalid username"},
		{"wrong password", "/login", map[string]string{"username": "bob", "password": "nope"}, http.StatusUnauthorized, "Invalid password"},
		{"ok", "/login", map[string]string{"username": "bob", "password": "pw"}, http.StatusOK, "User successfully logged in"},
		{"customer prefix", "/customer/login", map[string]string{"username": "bob", "password": "pw"}, http.StatusOK, "User successfully logged in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, messageOf(t, body))
		})
	}
}

func TestGetAllBooks(t *testing.T) {
	env := setupTestServer(t)

	status, body := env.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, status)

	var books map[string]models.Book
	require.NoError(t, json.Unmarshal(body, &books))
	assert.Len(t, books, 3)
	assert.Equal(t, "Learning JS", books["1234"].Title)

	for _, variant := range []string{"async", "promise", "await"} {
		t.Run(variant, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, "/books/"+variant, "", nil)
			require.Equal(t, http.StatusOK, status)

			var resp struct {
				Message    string                 `json:"message"`
				TotalBooks int                    `json:"totalBooks"`
				Books      map[string]models.Book `json:"books"`
			}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Contains(t, resp.Message, "Books retrieved successfully")
			assert.Equal(t, 3, resp.TotalBooks)
			assert.Equal(t, books, resp.Books)
		})
	}
}

func TestISBNLookupVariants(t *testing.T) {
	env := setupTestServer(t)

	status, body := env.do(t, http.MethodGet, "/isbn/1234", "", nil)
	require.Equal(t, http.StatusOK, status)
	var want models.Book
	require.NoError(t, json.Unmarshal(body, &want))
	assert.Equal(t, models.Book{ISBN: "1234", Title: "Learning JS", Author: "Jane Doe", Reviews: map[string]string{}}, want)

	wrapped := []struct {
		prefix   string
		echoISBN bool
	}{
		{"/isbn/promise/", false},
		{"/isbn/await/", false},
		{"/isbn-promise/", true},
		{"/isbn-async/", true},
	}

	for _, v := range wrapped {
		t.Run(v.prefix, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, v.prefix+"1234", "", nil)
			require.Equal(t, http.StatusOK, status)

			var resp struct {
				Message string      `json:"message"`
				ISBN    string      `json:"isbn"`
				Book    models.Book `json:"book"`
			}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Contains(t, resp.Message, "Book retrieved successfully")
			assert.Equal(t, want, resp.Book)
			if v.echoISBN {
				assert.Equal(t, "1234", resp.ISBN)
			} else {
				assert.Empty(t, resp.ISBN)
			}
		})
	}
}

func TestISBNLookupNotFound(t *testing.T) {
	env := setupTestServer(t)

	for _, prefix := range []string{"/isbn/", "/isbn/promise/", "/isbn/await/", "/isbn-promise/", "/isbn-async/", "/review/"} {
		t.Run(prefix, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, prefix+"9999", "", nil)
			assert.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, "Book not found", messageOf(t, body))
		})
	}

	_, body := env.do(t, http.MethodGet, "/isbn-async/9999", "", nil)
	assert.JSONEq(t, `{"message":"Book not found","isbn":"9999"}`, string(body))
}

func TestSearchByAuthorAndTitle(t *testing.T) {
	env := setupTestServer(t)

	_, upper := env.do(t, http.MethodGet, "/author/Author%20A", "", nil)
	status, lower := env.do(t, http.MethodGet, "/author/author%20a", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, string(upper), string(lower))

	var books []models.Book
	require.NoError(t, json.Unmarshal(lower, &books))
	require.Len(t, books, 2)
	assert.Equal(t, "2", books[0].ISBN)
	assert.Equal(t, "3", books[1].ISBN)

	status, body := env.do(t, http.MethodGet, "/author/Author", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No books found for this author", messageOf(t, body))

	status, body = env.do(t, http.MethodGet, "/title/LEARNING%20js", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &books))
	require.Len(t, books, 1)
	assert.Equal(t, "1234", books[0].ISBN)

	status, body = env.do(t, http.MethodGet, "/title/Learning", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No books found with this title", messageOf(t, body))
}

func TestReviewLifecycle(t *testing.T) {
	env := setupTestServer(t)
	token := env.login(t, "bob", "pw")

	status, body := env.do(t, http.MethodPut, "/auth/review/1234", token, map[string]string{"review": "Great!"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Review added/updated successfully","book":"Learning JS","review":"Great!"}`, string(body))

	_, body = env.do(t, http.MethodGet, "/review/1234", "", nil)
	assert.JSONEq(t, `{"bob":"Great!"}`, string(body))

	status, _ = env.do(t, http.MethodPut, "/customer/auth/review/1234", token, map[string]string{"review": "Even better"})
	require.Equal(t, http.StatusOK, status)
	_, body = env.do(t, http.MethodGet, "/review/1234", "", nil)
	assert.JSONEq(t, `{"bob":"Even better"}`, string(body), "second review overwrites the first")

	status, body = env.do(t, http.MethodDelete, "/auth/review/1234", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Review deleted successfully","book":"Learning JS"}`, string(body))

	_, body = env.do(t, http.MethodGet, "/review/1234", "", nil)
	assert.JSONEq(t, `{}`, string(body))

	status, body = env.do(t, http.MethodDelete, "/auth/review/1234", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No review found for this user", messageOf(t, body))

	events, err := env.events.GetRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, services.EventReviewDelete, events[0].Type)
	assert.Equal(t, services.EventUserRegister, events[4].Type)
}

func TestReviewErrors(t *testing.T) {
	env := setupTestServer(t)
	token := env.login(t, "bob", "pw")

	tests := []struct {
		name    string
		method  string
		path    string
		token   string
		body    interface{}
		status  int
		message string
	}{
		{"no token", http.MethodPut, "/auth/review/1234", "", map[string]string{"review": "x"}, http.StatusUnauthorized, "User not logged in"},
		{"bad token", http.MethodPut, "/auth/review/1234", "garbage", map[string]string{"review": "x"}, http.StatusUnauthorized, "User not authenticated"},
		{"empty review", http.MethodPut, "/auth/review/1234", token, map[string]string{"review": ""}, http.StatusBadRequest, "Review content is required"},
		{"missing review", http.MethodPut, "/auth/review/1234", token, nil, http.StatusBadRequest, "Review content is required"},
		{"unknown book put", http.MethodPut, "/auth/review/9999", token, map[string]string{"review": "x"}, http.StatusNotFound, "Book not found"},
		{"unknown book delete", http.MethodDelete, "/auth/review/9999", token, nil, http.StatusNotFound, "Book not found"},
		{"no review to delete", http.MethodDelete, "/auth/review/2", token, nil, http.StatusNotFound, "No review found for this user"},
		{"delete without token", http.MethodDelete, "/auth/review/2", "", nil, http.StatusUnauthorized, "User not logged in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, messageOf(t, body))
		})
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	env := setupTestServer(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	status, _ := doWith(t, client, env.server.URL, http.MethodPost, "/register", "", map[string]string{"username": "carol", "password": "pw"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = doWith(t, client, env.server.URL, http.MethodPost, "/customer/login", "", map[string]string{"username": "carol", "password": "pw"})
	require.Equal(t, http.StatusOK, status)

	// No Authorization header: the session cookie carries the identity.
	status, _ = doWith(t, client, env.server.URL, http.MethodPut, "/customer/auth/review/2", "", map[string]string{"review": "Solid"})
	require.Equal(t, http.StatusOK, status)

	reviews, err := env.books.GetReviews("2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"carol": "Solid"}, reviews)
}

func TestEventsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.login(t, "bob", "pw")

	status, body := env.do(t, http.MethodGet, "/events?limit=1", "", nil)
	require.Equal(t, http.StatusOK, status)

	var events []models.Event
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 1)
	assert.Equal(t, services.EventUserLogin, events[0].Type)
}

func TestNotFoundAndHealth(t *testing.T) {
	env := setupTestServer(t)

	status, body := env.do(t, http.MethodGet, "/nope/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not found", messageOf(t, body))

	status, body = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestWebSocketReviewFeed(t *testing.T) {
	env := setupTestServer(t)
	token := env.login(t, "bob", "pw")

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/books/1234"
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Round-trip a request so the client is registered before the review is posted.
	require.NoError(t, conn.WriteJSON(websocket.Message{Action: "get_reviews"}))
	var msg websocket.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reviews", msg.Action)

	status, _ := env.do(t, http.MethodPut, "/auth/review/1234", token, map[string]string{"review": "Great!"})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.ActionReviewUpdated, msg.Action)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "bob", payload["username"])
	assert.Equal(t, "Great!", payload["review"])

	require.NoError(t, conn.WriteJSON(websocket.Message{Action: "dance"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.ActionError, msg.Action)
}

func TestWebSocketUnknownBook(t *testing.T) {
	env := setupTestServer(t)

	status, body := env.do(t, http.MethodGet, "/ws/books/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Book not found", messageOf(t, body))
}
