package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"banking-ui/auth"
	"banking-ui/models"
	"banking-ui/session"
)

const demoCard = auth.DemoCardNumber

// fakeBackend records calls and answers with canned data.
type fakeBackend struct {
	mu        sync.Mutex
	calls     map[string]int
	submitted []models.TransactionRequest

	balance    models.Balance
	balanceErr error
	history    []models.Transaction
	historyErr error
	all        []models.Transaction
	allErr     error
	submitResp models.TransactionResponse
	submitErr  error
	submitGate chan struct{}
	// onCall runs inside every backend call, after it is recorded.
	onCall func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:   make(map[string]int),
		balance: models.Balance{Exists: true, Balance: decimal.RequireFromString("10000"), CustomerName: "John Doe", CardNumber: demoCard},
		history: []models.Transaction{
			ledgerTx(1, models.TypeTopup, models.StatusSuccess, "25", "Transaction successful"),
		},
		submitResp: models.TransactionResponse{Status: models.StatusSuccess, Message: "Transaction processed successfully"},
	}
}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) reset() {
	f.mu.Lock()
	f.calls = make(map[string]int)
	f.submitted = nil
	f.mu.Unlock()
}

func (f *fakeBackend) SubmitTransaction(ctx context.Context, req models.TransactionRequest) (models.TransactionResponse, error) {
	f.record("submit")
	f.mu.Lock()
	f.submitted = append(f.submitted, req)
	gate := f.submitGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.submitResp, f.submitErr
}

func (f *fakeBackend) GetBalance(ctx context.Context, cardNumber string) (models.Balance, error) {
	f.record("balance")
	return f.balance, f.balanceErr
}

func (f *fakeBackend) GetCustomerTransactions(ctx context.Context, cardNumber string) ([]models.Transaction, error) {
	f.record("history")
	return f.history, f.historyErr
}

func (f *fakeBackend) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	f.record("all")
	return f.all, f.allErr
}

func ledgerTx(id int64, typ models.TransactionType, status models.Status, amount, reason string) models.Transaction {
	return models.Transaction{
		ID:           id,
		CardNumber:   demoCard,
		CustomerName: "John Doe",
		Type:         typ,
		Amount:       decimal.RequireFromString(amount),
		Timestamp:    models.Timestamp{Time: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		Status:       status,
		Reason:       reason,
	}
}

var (
	directoryOnce sync.Once
	directory     *auth.DemoDirectory
	directoryErr  error
)

func demoDirectory(t *testing.T) *auth.DemoDirectory {
	t.Helper()
	directoryOnce.Do(func() {
		directory, directoryErr = auth.NewDemoDirectory()
	})
	if directoryErr != nil {
		t.Fatalf("demo directory: %v", directoryErr)
	}
	return directory
}

func newHandler(t *testing.T, backend Backend, logger *zap.Logger) *Handler {
	t.Helper()
	store := session.NewCookieStore("test-secret", session.CookieOptions{}, logger)
	flashes := session.NewFlashes("test-secret", session.CookieOptions{}, logger)
	h, err := New(demoDirectory(t), store, flashes, backend, logger)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

type testApp struct {
	server  *httptest.Server
	client  *http.Client
	backend *fakeBackend
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	backend := newFakeBackend()
	h := newHandler(t, backend, zaptest.NewLogger(t))
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	c := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{server: ts, client: c, backend: backend}
}

type result struct {
	code     int
	location string
	body     string
}

// send issues one request without following redirects. Safe to call off the test goroutine.
func (a *testApp) send(method, path string, form url.Values) (result, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, a.server.URL+path, body)
	if err != nil {
		return result{}, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return result{}, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{}, err
	}
	return result{resp.StatusCode, resp.Header.Get("Location"), string(b)}, nil
}

// do is send for the test goroutine; it returns status, Location and body.
func (a *testApp) do(t *testing.T, method, path string, form url.Values) (int, string, string) {
	t.Helper()
	res, err := a.send(method, path, form)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return res.code, res.location, res.body
}

func (a *testApp) login(t *testing.T, username, password string) (int, string, string) {
	t.Helper()
	return a.do(t, "POST", "/login", url.Values{"username": {username}, "password": {password}})
}

func (a *testApp) hasSession(t *testing.T) bool {
	t.Helper()
	u, _ := url.Parse(a.server.URL)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == session.CookieName && c.Value != "" {
			return true
		}
	}
	return false
}

func TestRootRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	code, loc, _ := app.do(t, "GET", "/", nil)
	if code != http.StatusFound || loc != "/login" {
		t.Fatalf("code=%d location=%q", code, loc)
	}
}

func TestLoginPageRenders(t *testing.T) {
	app := newTestApp(t)
	code, _, body := app.do(t, "GET", "/login", nil)
	if code != http.StatusOK || !strings.Contains(body, `action="/login"`) {
		t.Fatalf("code=%d body=%s", code, body)
	}
	if strings.Contains(body, "Invalid credentials") {
		t.Fatal("fresh login page must not show an error")
	}
}

func TestLoginRejectsUnknownCredentials(t *testing.T) {
	app := newTestApp(t)
	for _, pair := range [][2]string{{"cust1", "wrong"}, {"admin", "pass"}, {"", ""}, {"bob", "bob"}} {
		code, _, body := app.login(t, pair[0], pair[1])
		if code != http.StatusUnauthorized {
			t.Fatalf("%v: code=%d", pair, code)
		}
		if !strings.Contains(body, "Invalid credentials") {
			t.Fatalf("%v: missing error message", pair)
		}
		if app.hasSession(t) {
			t.Fatalf("%v: failed login must not write a session", pair)
		}
	}
}

func TestCustomerLoginFlow(t *testing.T) {
	app := newTestApp(t)

	code, loc, _ := app.login(t, "cust1", "pass")
	if code != http.StatusSeeOther || loc != "/customer" {
		t.Fatalf("code=%d location=%q", code, loc)
	}
	if !app.hasSession(t) {
		t.Fatal("expected session cookie")
	}

	code, _, body := app.do(t, "GET", "/customer", nil)
	if code != http.StatusOK {
		t.Fatalf("dashboard code=%d", code)
	}
	for _, want := range []string{"Welcome, John Doe", "$10000.00", demoCard, "Transaction successful"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if app.backend.count("balance") != 1 || app.backend.count("history") != 1 {
		t.Fatalf("calls=%v", app.backend.calls)
	}
}

func TestAdminLoginFlow(t *testing.T) {
	app := newTestApp(t)
	app.backend.all = []models.Transaction{
		ledgerTx(1, models.TypeTopup, models.StatusSuccess, "10", "ok"),
		ledgerTx(2, models.TypeTopup, models.StatusSuccess, "20", "ok"),
		ledgerTx(3, models.TypeTopup, models.StatusSuccess, "30", "ok"),
		ledgerTx(4, models.TypeWithdraw, models.StatusFailed, "5", "Insufficient balance"),
	}

	code, loc, _ := app.login(t, "admin", "admin")
	if code != http.StatusSeeOther || loc != "/admin" {
		t.Fatalf("code=%d location=%q", code, loc)
	}

	code, _, body := app.do(t, "GET", "/admin", nil)
	if code != http.StatusOK {
		t.Fatalf("admin code=%d", code)
	}
	for _, want := range []string{
		`id="stat-total" style="color: #2196F3;">4<`,
		`id="stat-successful" style="color: #4CAF50;">3<`,
		`id="stat-failed" style="color: #F44336;">1<`,
		`id="stat-withdrawals" style="color: #FF9800;">$0.00<`,
		`id="stat-topups" style="color: #9C27B0;">$60.00<`,
		"4123 4567 8901 2345",
		"Insufficient balance",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("admin page missing %q", want)
		}
	}
}

func TestAdminLoadFailureIsShownInline(t *testing.T) {
	app := newTestApp(t)
	app.backend.allErr = errors.New("connection refused")
	app.login(t, "admin", "admin")

	code, _, body := app.do(t, "GET", "/admin", nil)
	if code != http.StatusOK || !strings.Contains(body, "Failed to load transactions") {
		t.Fatalf("code=%d", code)
	}
	if !strings.Contains(body, "Refresh") {
		t.Fatal("page must stay interactive")
	}
}

func TestGuardsRedirectToLogin(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/customer", "/customer/topup", "/admin", "/admin/export/pdf"} {
		code, loc, _ := app.do(t, "GET", path, nil)
		if code != http.StatusSeeOther || loc != "/login" {
			t.Errorf("%s without session: code=%d location=%q", path, code, loc)
		}
	}

	app.login(t, "cust1", "pass")
	if code, loc, _ := app.do(t, "GET", "/admin", nil); code != http.StatusSeeOther || loc != "/login" {
		t.Errorf("customer on /admin: code=%d location=%q", code, loc)
	}

	admin := newTestApp(t)
	admin.login(t, "admin", "admin")
	if code, loc, _ := admin.do(t, "GET", "/customer", nil); code != http.StatusSeeOther || loc != "/login" {
		t.Errorf("admin on /customer: code=%d location=%q", code, loc)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "cust1", "pass")

	code, loc, _ := app.do(t, "POST", "/logout", url.Values{})
	if code != http.StatusSeeOther || loc != "/login" {
		t.Fatalf("logout code=%d location=%q", code, loc)
	}
	if app.hasSession(t) {
		t.Fatal("session cookie must be gone")
	}
	for _, path := range []string{"/customer", "/admin"} {
		if code, loc, _ := app.do(t, "GET", path, nil); code != http.StatusSeeOther || loc != "/login" {
			t.Errorf("%s after logout: code=%d location=%q", path, code, loc)
		}
	}
}

func TestTopUpValidationMakesNoNetworkCall(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "cust1", "pass")
	app.backend.reset()

	cases := []struct {
		amount, pin, want string
	}{
		{"0", "1234", "Amount must be greater than 0"},
		{"-5", "1234", "Amount must be greater than 0"},
		{"abc", "1234", "Amount must be a number"},
		{"", "1234", "Please enter amount and PIN"},
		{"10", "", "Please enter amount and PIN"},
	}
	for _, c := range cases {
		code, _, body := app.do(t, "POST", "/customer/topup", url.Values{"amount": {c.amount}, "pin": {c.pin}})
		if code != http.StatusUnprocessableEntity {
			t.Errorf("%q/%q: code=%d", c.amount, c.pin, code)
		}
		if !strings.Contains(body, c.want) {
			t.Errorf("%q/%q: missing %q", c.amount, c.pin, c.want)
		}
	}
	for _, op := range []string{"submit", "balance", "history"} {
		if n := app.backend.count(op); n != 0 {
			t.Fatalf("%s called %d times", op, n)
		}
	}
}

func TestTopUpSuccessRefreshesOnce(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "cust1", "pass")
	app.backend.reset()

	code, loc, _ := app.do(t, "POST", "/customer/topup", url.Values{"amount": {"25"}, "pin": {"1234"}})
	if code != http.StatusSeeOther || loc != "/customer" {
		t.Fatalf("code=%d location=%q", code, loc)
	}
	if len(app.backend.submitted) != 1 {
		t.Fatalf("submitted=%d", len(app.backend.submitted))
	}
	got := app.backend.submitted[0]
	if got.CardNumber != demoCard || got.PIN != "1234" || got.Amount != 25 || got.Type != models.TypeTopup {
		t.Fatalf("submitted %+v", got)
	}

	code, _, body := app.do(t, "GET", loc, nil)
	if code != http.StatusOK {
		t.Fatalf("dashboard code=%d", code)
	}
	if !strings.Contains(body, "Top-up of $25.00 successful!") {
		t.Fatal("missing success message")
	}
	if strings.Contains(body, `id="topup-form"`) {
		t.Fatal("dialog must be closed after success")
	}
	if app.backend.count("balance") != 1 || app.backend.count("history") != 1 {
		t.Fatalf("expected one balance and one history fetch, got %v", app.backend.calls)
	}

	if _, _, body := app.do(t, "GET", "/customer", nil); strings.Contains(body, "successful!") {
		t.Fatal("success message must show only once")
	}
}

func TestTopUpSendsTheAmountItShows(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "cust1", "pass")
	app.backend.reset()

	if code, _, body := app.do(t, "POST", "/customer/topup", url.Values{"amount": {"12.345"}, "pin": {"1234"}}); code != http.StatusUnprocessableEntity ||
		!strings.Contains(body, "Amount can have at most 2 decimal places") {
		t.Fatalf("12.345: code=%d", code)
	}
	if n := app.backend.count("submit"); n != 0 {
		t.Fatalf("submit called %d times for an over-precise amount", n)
	}

	if code, _, _ := app.do(t, "POST", "/customer/topup", url.Values{"amount": {"12.34"}, "pin": {"1234"}}); code != http.StatusSeeOther {
		t.Fatalf("12.34: code=%d", code)
	}
	if got := app.backend.submitted[0].Amount; got != 12.34 {
		t.Fatalf("sent amount=%v", got)
	}
	if _, _, body := app.do(t, "GET", "/customer", nil); !strings.Contains(body, "Top-up of $12.34 successful!") {
		t.Fatal("shown amount must match the sent amount")
	}
}

func TestCustomerIgnoresForgedTopUpNotice(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "cust1", "pass")

	_, _, body := app.do(t, "GET", "/customer?topup=5000", nil)
	if strings.Contains(body, "successful!") {
		t.Fatal("a query string must not produce a success message")
	}
	if n := app.backend.count("submit"); n != 0 {
		t.Fatalf("submit called %d times", n)
	}
}

func TestTopUpFailedKeepsDialogOpen(t *testing.T) {
	app := newTestApp(t)
	app.backend.submitResp = models.TransactionResponse{Status: models.StatusFailed, Message: "FAILED: Invalid PIN"}
	app.login(t, "cust1", "pass")

	code, loc, body := app.do(t, "POST", "/customer/topup", url.Values{"amount": {"25"}, "pin": {"0000"}})
	if code != http.StatusOK || loc != "" {
		t.Fatalf("code=%d location=%q", code, loc)
	}
	if !strings.Contains(body, `id="topup-form"`) || !strings.Contains(body, "FAILED: Invalid PIN") {
		t.Fatal("dialog must stay open with the backend message")
	}
	if !strings.Contains(body, `value="25"`) {
		t.Fatal("amount must be kept")
	}
}

func TestTopUpTransportErrorShowsGenericMessage(t *testing.T) {
	app := newTestApp(t)
	app.backend.submitErr = errors.New("dial tcp: connection refused")
	app.login(t, "cust1", "pass")

	code, _, body := app.do(t, "POST", "/customer/topup", url.Values{"amount": {"5"}, "pin": {"1234"}})
	if code != http.StatusBadGateway {
		t.Fatalf("code=%d", code)
	}
	if !strings.Contains(body, "Error processing transaction") || !strings.Contains(body, `id="topup-form"`) {
		t.Fatal("expected generic error inside the dialog")
	}
	if strings.Contains(body, "connection refused") {
		t.Fatal("transport details must not reach the page")
	}
}

func TestTopUpRejectsConcurrentDuplicate(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "cust1", "pass")
	gate := make(chan struct{})
	app.backend.mu.Lock()
	app.backend.submitGate = gate
	app.backend.mu.Unlock()

	type outcome struct {
		res result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := app.send("POST", "/customer/topup", url.Values{"amount": {"5"}, "pin": {"1234"}})
		first <- outcome{res, err}
	}()
	for app.backend.count("submit") == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	code, _, body := app.do(t, "POST", "/customer/topup", url.Values{"amount": {"5"}, "pin": {"1234"}})
	if code != http.StatusConflict || !strings.Contains(body, "A top-up is already being processed") {
		t.Fatalf("duplicate code=%d", code)
	}
	close(gate)
	got := <-first
	if got.err != nil {
		t.Fatalf("first submit: %v", got.err)
	}
	if got.res.code != http.StatusSeeOther {
		t.Fatalf("first submit code=%d", got.res.code)
	}
	if n := app.backend.count("submit"); n != 1 {
		t.Fatalf("submit called %d times", n)
	}
}

func TestCustomerFetchesFailIndependently(t *testing.T) {
	app := newTestApp(t)
	app.backend.balanceErr = errors.New("timeout")
	app.login(t, "cust1", "pass")

	_, _, body := app.do(t, "GET", "/customer", nil)
	if !strings.Contains(body, "Failed to load balance") {
		t.Fatal("missing balance error")
	}
	if strings.Contains(body, "Failed to load transactions") || !strings.Contains(body, "Transaction successful") {
		t.Fatal("history must still render")
	}
}

func TestCustomerUnknownCard(t *testing.T) {
	app := newTestApp(t)
	app.backend.balance = models.Balance{Exists: false}
	app.backend.history = nil
	app.login(t, "cust1", "pass")

	_, _, body := app.do(t, "GET", "/customer", nil)
	if !strings.Contains(body, "Card not found") || !strings.Contains(body, "No transactions yet") {
		t.Fatal("expected card-not-found state")
	}
}

func TestExport(t *testing.T) {
	app := newTestApp(t)
	app.backend.all = []models.Transaction{ledgerTx(1, models.TypeTopup, models.StatusSuccess, "10", "ok")}
	app.login(t, "admin", "admin")

	for format, ct := range map[string]string{
		"pdf":  "application/pdf",
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	} {
		resp, err := app.client.Get(app.server.URL + "/admin/export/" + format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != ct {
			t.Errorf("%s: code=%d content-type=%q", format, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	}

	if code, _, _ := app.do(t, "GET", "/admin/export/csv", nil); code != http.StatusNotFound {
		t.Fatalf("csv export code=%d want 404", code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)
	resp, err := app.client.Get(app.server.URL + "/login")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestLateResponsesAreDropped(t *testing.T) {
	customer := models.Principal{ID: "1", Username: "cust1", Role: models.RoleCustomer, CardNumber: demoCard, CustomerName: "John Doe"}
	admin := models.Principal{ID: "2", Username: "admin", Role: models.RoleAdmin}

	cases := []struct {
		name   string
		p      models.Principal
		method string
		path   string
		form   url.Values
		serve  func(h *Handler) http.HandlerFunc
	}{
		{"customer", customer, "GET", "/customer", nil, func(h *Handler) http.HandlerFunc { return h.CustomerDashboard }},
		{"topup", customer, "POST", "/customer/topup", url.Values{"amount": {"5"}, "pin": {"1234"}}, func(h *Handler) http.HandlerFunc { return h.TopUp }},
		{"admin", admin, "GET", "/admin", nil, func(h *Handler) http.HandlerFunc { return h.AdminDashboard }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			backend := newFakeBackend()
			h := newHandler(t, backend, zap.New(core))

			// The browser leaves while the fetch is in flight; the backend still answers.
			ctx, cancel := context.WithCancel(session.NewContext(context.Background(), c.p))
			defer cancel()
			backend.onCall = cancel

			var body io.Reader
			if c.form != nil {
				body = strings.NewReader(c.form.Encode())
			}
			req := httptest.NewRequest(c.method, c.path, body).WithContext(ctx)
			if c.form != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			rec := httptest.NewRecorder()
			c.serve(h)(rec, req)

			if rec.Body.Len() != 0 || len(rec.Header()) != 0 {
				t.Fatalf("late result was written: headers=%v body=%q", rec.Header(), rec.Body.String())
			}
			if logs.FilterMessage("request abandoned, dropping response").Len() != 1 {
				t.Fatalf("logs=%v", logs.All())
			}
			if n := logs.FilterMessage("failed to render page").Len(); n != 0 {
				t.Fatalf("render attempted %d times", n)
			}
		})
	}
}
