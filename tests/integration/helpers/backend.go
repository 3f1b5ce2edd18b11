//go:build integration

// Package helpers provides the mock GraphQL backend the integration
// tests run against. It implements just enough of the wire contract:
// the public endpoint serves sign-up/sign-in/forgot-password, the app
// endpoint requires a bearer token it has issued, and both speak the
// standard {data, errors} envelope with the control codes the SDK
// classifies.
package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Test credentials accepted by the backend.
const (
	Username = "testuser"
	Password = "secret123"
)

// SessionTTL is the lifetime of tokens the backend issues.
const SessionTTL = time.Hour

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Backend is an in-process GraphQL server for integration tests.
type Backend struct {
	srv *httptest.Server

	mu          sync.Mutex
	tokens      map[string]bool
	posts       []map[string]any
	signInCalls int
}

// NewBackend starts the mock server. It stops with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		tokens: make(map[string]bool),
	}

	router := gin.New()
	router.POST("/public", b.handlePublic)
	router.POST("/app", b.handleApp)

	b.srv = httptest.NewServer(router)
	t.Cleanup(b.srv.Close)
	return b
}

// PublicURL is the unauthenticated endpoint.
func (b *Backend) PublicURL() string { return b.srv.URL + "/public" }

// AppURL is the authenticated endpoint.
func (b *Backend) AppURL() string { return b.srv.URL + "/app" }

// SignInCalls reports how many sign-in mutations the backend served.
func (b *Backend) SignInCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signInCalls
}

// RevokeAll invalidates every issued token, so the next authenticated
// call gets invalid_session.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]bool)
}

func (b *Backend) handlePublic(c *gin.Context) {
	var req graphqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "malformed request"}}})
		return
	}

	switch {
	case strings.Contains(req.Query, "signIn"):
		b.signIn(c, req)
	case strings.Contains(req.Query, "signUp"):
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": gin.H{"signUp": gin.H{
			"id":       uuid.NewString(),
			"username": req.Variables["username"],
		}}}})
	case strings.Contains(req.Query, "forgotPassword"):
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": gin.H{"forgotPassword": nil}}})
	default:
		c.JSON(http.StatusOK, gin.H{"errors": []gin.H{{"message": "unknown public operation"}}})
	}
}

func (b *Backend) signIn(c *gin.Context, req graphqlRequest) {
	b.mu.Lock()
	b.signInCalls++
	b.mu.Unlock()

	if req.Variables["username"] != Username || req.Variables["password"] != Password {
		c.JSON(http.StatusOK, gin.H{"errors": []gin.H{{"message": "sign-in failed: invalid credentials"}}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": gin.H{"signIn": b.issueSession()}}})
}

func (b *Backend) handleApp(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	b.mu.Lock()
	valid := b.tokens[token]
	b.mu.Unlock()
	if !valid {
		c.JSON(http.StatusOK, gin.H{"errors": []gin.H{{"message": "invalid_session"}}})
		return
	}

	var req graphqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "malformed request"}}})
		return
	}

	switch {
	case strings.Contains(req.Query, "signOut"):
		b.mu.Lock()
		delete(b.tokens, token)
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": gin.H{"signOut": nil}}})

	case strings.Contains(req.Query, "refreshSession"):
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": gin.H{"refreshSession": b.issueSession()}}})

	case strings.Contains(req.Query, "listAll"):
		b.mu.Lock()
		posts := make([]map[string]any, len(b.posts))
		copy(posts, b.posts)
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"posts": gin.H{"listAll": posts}}})

	case strings.Contains(req.Query, "addItem"):
		input, _ := req.Variables["input"].(map[string]any)
		post := map[string]any{"id": uuid.NewString()}
		for k, v := range input {
			post[k] = v
		}
		b.mu.Lock()
		b.posts = append(b.posts, post)
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"posts": gin.H{"addItem": post}}})

	case strings.Contains(req.Query, "removeItem"):
		id, _ := req.Variables["id"].(string)
		var removed map[string]any
		b.mu.Lock()
		for i, p := range b.posts {
			if p["id"] == id {
				removed = p
				b.posts = append(b.posts[:i], b.posts[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		if removed == nil {
			c.JSON(http.StatusOK, gin.H{"errors": []gin.H{{"message": "post not found"}}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"posts": gin.H{"removeItem": removed}}})

	default:
		c.JSON(http.StatusOK, gin.H{"errors": []gin.H{{"message": "unknown operation"}}})
	}
}

// issueSession mints a fresh token and registers it as valid.
func (b *Backend) issueSession() gin.H {
	token := uuid.NewString()
	now := time.Now()

	b.mu.Lock()
	b.tokens[token] = true
	b.mu.Unlock()

	return gin.H{
		"token":    token,
		"issued":   now.UnixMilli(),
		"expires":  now.Add(SessionTTL).UnixMilli(),
		"userId":   "u-1",
		"username": Username,
	}
}
