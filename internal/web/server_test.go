package web

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/inbarayasoo/smart-dog-feeder/internal/feeder"
	"github.com/inbarayasoo/smart-dog-feeder/internal/status"
)

func startTestServer(t *testing.T, tracker *status.Tracker) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New("", tracker)
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	return "http://" + ln.Addr().String()
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func testTracker() *status.Tracker {
	tr := status.NewTracker(time.Now().Add(-time.Hour), status.Config{
		Backend:  "rtdb",
		DeviceID: "PET_FEEDER_001",
	})
	tr.Update(false, true, true, false, 140.5, 0, feeder.Counters{FeedingsFired: 3})
	tr.SetLastFeeding(status.Feeding{
		Time:        time.Now(),
		MealName:    "breakfast",
		AmountGrams: 40,
		GramsServed: 38.7,
	})
	return tr
}

func TestIndexPage(t *testing.T) {
	base := startTestServer(t, testTracker())

	code, ctype, body := get(t, base+"/")
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if !strings.HasPrefix(ctype, "text/html") {
		t.Errorf("content type: got %q", ctype)
	}
	for _, want := range []string{"Dog Feeder", "breakfast", "140.5g", "PET_FEEDER_001"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestIndexHTMLAlias(t *testing.T) {
	base := startTestServer(t, testTracker())
	code, _, _ := get(t, base+"/index.html")
	if code != http.StatusOK {
		t.Errorf("status: got %d", code)
	}
}

func TestJSONEndpoint(t *testing.T) {
	base := startTestServer(t, testTracker())

	code, ctype, body := get(t, base+"/index.json")
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if ctype != "application/json" {
		t.Errorf("content type: got %q", ctype)
	}

	var out struct {
		Status struct {
			Online      bool    `json:"online"`
			WeightGrams float64 `json:"weight_grams"`
			LastFeeding *struct {
				MealName string `json:"meal_name"`
			} `json:"last_feeding"`
		} `json:"status"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, body)
	}
	if !out.Status.Online {
		t.Error("online not reported")
	}
	if out.Status.WeightGrams != 140.5 {
		t.Errorf("weight_grams: got %v", out.Status.WeightGrams)
	}
	if out.Status.LastFeeding == nil || out.Status.LastFeeding.MealName != "breakfast" {
		t.Errorf("last_feeding: got %+v", out.Status.LastFeeding)
	}
}

func TestUnknownPath(t *testing.T) {
	base := startTestServer(t, testTracker())
	code, _, _ := get(t, base+"/nope")
	if code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", code)
	}
}
