// test/helpers/catalog_server.go
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FakeSweet is an item as the fake catalog service stores it.
type FakeSweet struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL *string `json:"image_url"`
}

type fakeUser struct {
	password string
	role     string
}

type failure struct {
	status int
	detail string
}

// FakeCatalog is an in-memory stand-in for the catalog and auth service. It
// speaks the same JSON dialect: HS256 bearer tokens, {"detail": ...} error
// bodies, integer ids and float prices.
type FakeCatalog struct {
	Server *httptest.Server
	Secret []byte
	TTL    time.Duration

	mu       sync.Mutex
	users    map[string]fakeUser
	sweets   map[int]FakeSweet
	nextID   int
	failures map[string][]failure
	calls    map[string]int
	gate     chan struct{}
}

// NewFakeCatalog starts a fake service that is closed when t finishes.
func NewFakeCatalog(t testing.TB) *FakeCatalog {
	t.Helper()

	f := &FakeCatalog{
		Secret:   []byte("test-secret"),
		TTL:      time.Hour,
		users:    make(map[string]fakeUser),
		sweets:   make(map[int]FakeSweet),
		nextID:   1,
		failures: make(map[string][]failure),
		calls:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", f.handleRegister)
	mux.HandleFunc("POST /api/auth/login", f.handleLogin)
	mux.HandleFunc("GET /api/sweets", f.authed(false, f.handleList))
	mux.HandleFunc("GET /api/sweets/search", f.authed(false, f.handleSearch))
	mux.HandleFunc("POST /api/sweets", f.authed(true, f.handleCreate))
	mux.HandleFunc("PUT /api/sweets/{id}", f.authed(true, f.handleUpdate))
	mux.HandleFunc("DELETE /api/sweets/{id}", f.authed(true, f.handleDelete))
	mux.HandleFunc("POST /api/sweets/{id}/purchase", f.authed(false, f.handlePurchase))
	mux.HandleFunc("POST /api/sweets/{id}/restock", f.authed(true, f.handleRestock))

	f.Server = httptest.NewServer(f.intercept(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL of the fake service.
func (f *FakeCatalog) URL() string {
	return f.Server.URL
}

// AddUser registers an account directly. role is "admin" or "user".
func (f *FakeCatalog) AddUser(email, password, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeUser{password: password, role: role}
}

// Seed stores a sweet and returns its id.
func (f *FakeCatalog) Seed(name, category string, price float64, quantity int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.sweets[id] = FakeSweet{ID: id, Name: name, Category: category, Price: price, Quantity: quantity}
	return id
}

// Sweet returns the stored state of id.
func (f *FakeCatalog) Sweet(id int) (FakeSweet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sweets[id]
	return s, ok
}

// SetQuantity changes stock behind the client's back.
func (f *FakeCatalog) SetQuantity(id, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sweets[id]
	s.Quantity = quantity
	f.sweets[id] = s
}

// FailNext makes the next request matching "METHOD /path" answer status with
// detail. An empty detail sends an empty body.
func (f *FakeCatalog) FailNext(route string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = append(f.failures[route], failure{status: status, detail: detail})
}

// Calls returns how many requests hit "METHOD /path".
func (f *FakeCatalog) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// TotalCalls returns the number of requests served.
func (f *FakeCatalog) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// Hold blocks every request until the returned release func is called.
func (f *FakeCatalog) Hold() (release func()) {
	f.mu.Lock()
	gate := make(chan struct{})
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Token signs a token for email with role, valid for the server TTL.
func (f *FakeCatalog) Token(email, role string) string {
	return SignToken(f.Secret, email, role, time.Now().Add(f.TTL))
}

// SignToken creates an HS256 JWT carrying sub, role and exp.
func SignToken(secret []byte, sub, role string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}
	return signed
}

func (f *FakeCatalog) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.calls[route]++
		gate := f.gate
		var fail *failure
		if queued := f.failures[route]; len(queued) > 0 {
			fail = &queued[0]
			f.failures[route] = queued[1:]
		}
		f.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if fail != nil {
			if fail.detail == "" {
				w.WriteHeader(fail.status)
				return
			}
			writeDetail(w, fail.status, fail.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (f *FakeCatalog) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Email and password are required")
		return
	}
	role := body.Role
	if role == "" {
		role = "user"
	}

	f.mu.Lock()
	if _, exists := f.users[body.Email]; exists {
		f.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	f.users[body.Email] = fakeUser{password: body.Password, role: role}
	f.mu.Unlock()

	f.writeToken(w, body.Email, role)
}

func (f *FakeCatalog) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	f.mu.Lock()
	user, ok := f.users[body.Email]
	f.mu.Unlock()
	if !ok || user.password != body.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	f.writeToken(w, body.Email, user.role)
}

func (f *FakeCatalog) writeToken(w http.ResponseWriter, email, role string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": f.Token(email, role),
		"token_type":   "bearer",
		"role":         role,
	})
}

func (f *FakeCatalog) authed(adminOnly bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return f.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		if adminOnly && claims["role"] != "admin" {
			writeDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	}
}

func (f *FakeCatalog) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, f.filter(func(FakeSweet) bool { return true }))
}

func (f *FakeCatalog) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.ToLower(q.Get("name"))
	category := strings.ToLower(q.Get("category"))

	var minPrice, maxPrice *float64
	for key, dst := range map[string]**float64{"min_price": &minPrice, "max_price": &maxPrice} {
		if raw := q.Get(key); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeDetail(w, http.StatusUnprocessableEntity, "Invalid "+key)
				return
			}
			*dst = &v
		}
	}

	writeJSON(w, http.StatusOK, f.filter(func(s FakeSweet) bool {
		switch {
		case name != "" && !strings.Contains(strings.ToLower(s.Name), name):
			return false
		case category != "" && !strings.Contains(strings.ToLower(s.Category), category):
			return false
		case minPrice != nil && s.Price < *minPrice:
			return false
		case maxPrice != nil && s.Price > *maxPrice:
			return false
		}
		return true
	}))
}

func (f *FakeCatalog) filter(keep func(FakeSweet) bool) []FakeSweet {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]FakeSweet, 0, len(f.sweets))
	for _, s := range f.sweets {
		if keep(s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b FakeSweet) int { return a.ID - b.ID })
	return out
}

func decodeSweet(r *http.Request) (FakeSweet, string) {
	var s FakeSweet
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		return FakeSweet{}, "Invalid request body"
	}
	switch {
	case strings.TrimSpace(s.Name) == "":
		return FakeSweet{}, "Name is required"
	case s.Price < 0:
		return FakeSweet{}, "Price must be non-negative"
	case s.Quantity < 0:
		return FakeSweet{}, "Quantity must be non-negative"
	}
	return s, ""
}

func (f *FakeCatalog) handleCreate(w http.ResponseWriter, r *http.Request) {
	s, problem := decodeSweet(r)
	if problem != "" {
		writeDetail(w, http.StatusUnprocessableEntity, problem)
		return
	}

	f.mu.Lock()
	s.ID = f.nextID
	f.nextID++
	f.sweets[s.ID] = s
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, s)
}

func (f *FakeCatalog) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := f.lookup(w, r)
	if !ok {
		return
	}
	s, problem := decodeSweet(r)
	if problem != "" {
		writeDetail(w, http.StatusUnprocessableEntity, problem)
		return
	}

	f.mu.Lock()
	s.ID = id
	f.sweets[id] = s
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, s)
}

func (f *FakeCatalog) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := f.lookup(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	delete(f.sweets, id)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Sweet deleted successfully"})
}

func (f *FakeCatalog) handlePurchase(w http.ResponseWriter, r *http.Request) {
	f.adjust(w, r, func(s *FakeSweet, qty int) string {
		if qty > s.Quantity {
			return "Insufficient stock"
		}
		s.Quantity -= qty
		return ""
	})
}

func (f *FakeCatalog) handleRestock(w http.ResponseWriter, r *http.Request) {
	f.adjust(w, r, func(s *FakeSweet, qty int) string {
		s.Quantity += qty
		return ""
	})
}

func (f *FakeCatalog) adjust(w http.ResponseWriter, r *http.Request, apply func(*FakeSweet, int) string) {
	id, ok := f.lookup(w, r)
	if !ok {
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity < 1 {
		writeDetail(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	f.mu.Lock()
	s := f.sweets[id]
	if problem := apply(&s, body.Quantity); problem != "" {
		f.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, problem)
		return
	}
	f.sweets[id] = s
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, s)
}

func (f *FakeCatalog) lookup(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err == nil {
		f.mu.Lock()
		_, ok := f.sweets[id]
		f.mu.Unlock()
		if ok {
			return id, true
		}
	}
	writeDetail(w, http.StatusNotFound, "Sweet not found")
	return 0, false
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
