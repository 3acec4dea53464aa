//go:build unix

package browser_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"rental-scraper/browser"
)

const stubLocation = "https://www.booking.com/searchresults.html"

type cdpMessage struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    any             `json:"result,omitempty"`
}

// fakeDevTools answers just enough of the DevTools protocol for chromedp to
// attach to one tab, evaluate scripts on it and close the browser.
type fakeDevTools struct {
	t        *testing.T
	launches string
}

func (d *fakeDevTools) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		d.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req cdpMessage
		if err := json.Unmarshal(data, &req); err != nil {
			d.t.Errorf("bad command %s: %v", data, err)
			return
		}

		d.send(conn, cdpMessage{ID: req.ID, SessionID: req.SessionID, Result: d.result(req)})

		switch {
		case req.Method == "Target.setDiscoverTargets" && req.SessionID == "":
			d.send(conn, cdpMessage{
				Method: "Target.targetCreated",
				Params: json.RawMessage(`{"targetInfo":{"targetId":"T1","type":"page","title":"","url":"about:blank","attached":false,"canAccessOpener":false}}`),
			})
		case req.Method == "Browser.close":
			d.killBrowsers()
			return
		}
	}
}

func (d *fakeDevTools) result(req cdpMessage) any {
	switch req.Method {
	case "Target.attachToTarget":
		return map[string]string{"sessionId": "S1"}
	case "Page.addScriptToEvaluateOnNewDocument":
		return map[string]string{"identifier": "1"}
	case "Runtime.evaluate":
		var p struct {
			Expression string `json:"expression"`
		}
		_ = json.Unmarshal(req.Params, &p)
		if p.Expression == "self" {
			return map[string]any{"result": map[string]string{"type": "object", "className": "Window"}}
		}
		return map[string]any{"result": map[string]string{"type": "string", "value": stubLocation}}
	}
	return map[string]any{}
}

func (d *fakeDevTools) send(conn interface{ Write([]byte) (int, error) }, msg cdpMessage) {
	buf, err := json.Marshal(msg)
	if err != nil {
		d.t.Errorf("marshal: %v", err)
		return
	}
	if err := wsutil.WriteServerText(conn, buf); err != nil {
		d.t.Logf("write: %v", err)
	}
}

// killBrowsers stops the browser process that asked to close, as Chrome
// exits after answering Browser.close. Only one stub runs at a time, so
// every recorded pid still alive belongs to it.
func (d *fakeDevTools) killBrowsers() {
	for _, pid := range launchedPIDs(d.t, d.launches) {
		if alive(pid) {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	}
}

func launchedPIDs(t *testing.T, path string) []int {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read launches: %v", err)
	}
	var pids []int
	for _, line := range strings.Fields(string(data)) {
		pid, err := strconv.Atoi(line)
		if err != nil {
			t.Fatalf("launches file: %v", err)
		}
		pids = append(pids, pid)
	}
	return pids
}

func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// stubBrowser writes a shell script that records its pid, prints the
// DevTools banner chromedp waits for and then idles like a browser would.
func stubBrowser(t *testing.T) (bin, launches string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	dir := t.TempDir()
	launches = filepath.Join(dir, "launches")
	srv := httptest.NewServer(&fakeDevTools{t: t, launches: launches})
	t.Cleanup(srv.Close)

	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/devtools/browser/stub"
	script := fmt.Sprintf("#!/bin/sh\necho $$ >> %q\necho \"DevTools listening on %s\"\nexec sleep 300\n", launches, wsURL)

	bin = filepath.Join(dir, "chrome")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, launches
}

func newStubSession(t *testing.T) (*browser.Session, string) {
	bin, launches := stubBrowser(t)
	s := browser.NewSession(browser.Options{Headless: true, ChromeBin: bin}, rand.New(rand.NewSource(1)), quietLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s, launches
}

func TestSessionPageUsableAfterStart(t *testing.T) {
	s, launches := newStubSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	pids := launchedPIDs(t, launches)
	if len(pids) != 1 {
		t.Fatalf("launches: got %d, want 1", len(pids))
	}
	if !alive(pids[0]) {
		t.Fatal("browser process gone after Start returned")
	}

	loc, err := p.Location(ctx)
	if err != nil {
		t.Fatalf("Location after Start: %v", err)
	}
	if loc != stubLocation {
		t.Errorf("Location: got %q, want %q", loc, stubLocation)
	}
}

func TestSessionStartReturnsSamePage(t *testing.T) {
	s, launches := newStubSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first != second {
		t.Error("second Start built a new page")
	}
	if n := len(launchedPIDs(t, launches)); n != 1 {
		t.Errorf("launches: got %d, want 1", n)
	}
}

func TestSessionCloseThenStartRelaunches(t *testing.T) {
	s, launches := newStubSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	pids := launchedPIDs(t, launches)
	if len(pids) != 1 || alive(pids[0]) {
		t.Fatalf("first browser should be stopped after Close, pids %v", pids)
	}

	p, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start after Close: %v", err)
	}
	pids = launchedPIDs(t, launches)
	if len(pids) != 2 || pids[0] == pids[1] {
		t.Fatalf("expected a second process, pids %v", pids)
	}
	if _, err := p.Location(ctx); err != nil {
		t.Errorf("Location on relaunched page: %v", err)
	}
}

func TestSessionCloseBeforeStart(t *testing.T) {
	s := browser.NewSession(browser.Options{}, rand.New(rand.NewSource(1)), quietLogger())
	if err := s.Close(); err != nil {
		t.Errorf("Close on unstarted session: %v", err)
	}
}

func TestSessionStartAbortedByCaller(t *testing.T) {
	s, _ := newStubSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Start(ctx); err == nil {
		t.Fatal("expected Start to fail on a cancelled context")
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel2()
	p, err := s.Start(ctx2)
	if err != nil {
		t.Fatalf("Start after aborted start: %v", err)
	}
	if _, err := p.Location(ctx2); err != nil {
		t.Errorf("Location: %v", err)
	}
}
