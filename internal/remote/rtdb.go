package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RTDB paths, matching the database layout the companion app reads.
const (
	pathFeedings        = "/feedings"
	pathWeights         = "/weights"
	pathContainerStatus = "/status/container"
	pathMealLog         = "/logs/meal_notifications"
)

// tokenSlack is how long before the ID token's expiry we refresh it.
const tokenSlack = 2 * time.Minute

// RTDBConfig configures the Firebase Realtime Database client.
type RTDBConfig struct {
	// DatabaseURL is the RTDB base URL, e.g. "https://feeder.firebaseio.com".
	DatabaseURL string

	// APIKey is the Firebase web API key used for authentication.
	APIKey string

	// Email and Password are the device account credentials.
	Email    string
	Password string

	// LinkUp reports whether the network link is believed up. Nil means
	// always reachable; failures then surface through the push results.
	LinkUp func() bool
}

// RTDBStore talks to a Firebase Realtime Database over its REST interface.
type RTDBStore struct {
	cfg    RTDBConfig
	client *http.Client

	idToken      string
	refreshToken string
	tokenExpiry  time.Time
}

// NewRTDBStore creates an RTDB client and signs in. Sign-in failure is not
// fatal: the client retries authentication lazily on the next operation, so
// a device that boots offline still comes up.
func NewRTDBStore(cfg RTDBConfig) *RTDBStore {
	s := &RTDBStore{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
	if err := s.signIn(); err != nil {
		log.Printf("rtdb: initial sign-in failed (will retry): %v", err)
	}
	return s
}

// FetchSchedule fetches the raw schedule document from /feedings.
func (s *RTDBStore) FetchSchedule() ([]byte, bool) {
	raw, err := s.get(pathFeedings, "")
	if err != nil {
		log.Printf("rtdb: fetch schedule: %v", err)
		return nil, false
	}
	if isNull(raw) {
		return nil, false
	}
	return raw, true
}

// PushWeight writes the record under the next free index in /weights.
func (s *RTDBStore) PushWeight(rec WeightRecord) bool {
	idx, err := s.nextIndex(pathWeights)
	if err != nil {
		log.Printf("rtdb: next weight index: %v", err)
		return false
	}

	path := fmt.Sprintf("%s/%d", pathWeights, idx)
	if err := s.put(path, rec); err != nil {
		log.Printf("rtdb: push weight: %v", err)
		return false
	}
	return true
}

// PushMealNotification appends to the daily bucket under
// /logs/meal_notifications/YYYY-MM-DD.
func (s *RTDBStore) PushMealNotification(n MealNotification) bool {
	if n.Date == "" {
		log.Printf("rtdb: meal notification without a date, skipped")
		return false
	}

	bucket := pathMealLog + "/" + n.Date
	idx, err := s.nextIndex(bucket)
	if err != nil {
		log.Printf("rtdb: next meal log index: %v", err)
		return false
	}

	path := fmt.Sprintf("%s/%d", bucket, idx)
	if err := s.put(path, n); err != nil {
		log.Printf("rtdb: push meal notification: %v", err)
		return false
	}
	return true
}

// PushContainerStatus patches /status/container. An empty edge records
// eventId and emptySince; a cleared edge records clearedAt.
func (s *RTDBStore) PushContainerStatus(st ContainerStatus) bool {
	fields := map[string]any{"empty": st.Empty}
	if st.Empty {
		fields["eventId"] = st.EventID
		fields["emptySince"] = st.EventID
	} else {
		fields["clearedAt"] = st.EventID
	}

	if err := s.patch(pathContainerStatus, fields); err != nil {
		log.Printf("rtdb: push container status: %v", err)
		return false
	}
	return true
}

// Reachable reports the configured link-state hint. There is no database
// probe; a live link with a dead database surfaces as failed pushes.
func (s *RTDBStore) Reachable() bool {
	if s.cfg.LinkUp == nil {
		return true
	}
	return s.cfg.LinkUp()
}

// Close releases client resources.
func (s *RTDBStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// nextIndex finds the next free numeric child index under path, using a
// shallow read so the payload stays small.
func (s *RTDBStore) nextIndex(path string) (int, error) {
	raw, err := s.get(path, "shallow=true")
	if err != nil {
		return 0, err
	}
	if isNull(raw) {
		return 0, nil
	}

	// A shallow read of a collection is either an array or an object
	// whose keys are the indices.
	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return len(asArray), nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return 0, fmt.Errorf("parse collection at %s: %w", path, err)
	}

	maxIdx := -1
	for key := range asObject {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx + 1, nil
}

// ---------------- HTTP plumbing ----------------

func (s *RTDBStore) get(path, query string) ([]byte, error) {
	return s.do(http.MethodGet, path, query, nil)
}

func (s *RTDBStore) put(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	_, err = s.do(http.MethodPut, path, "", payload)
	return err
}

func (s *RTDBStore) patch(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	_, err = s.do(http.MethodPatch, path, "", payload)
	return err
}

func (s *RTDBStore) do(method, path, query string, body []byte) ([]byte, error) {
	token, err := s.ensureToken()
	if err != nil {
		return nil, err
	}

	u := strings.TrimRight(s.cfg.DatabaseURL, "/") + path + ".json?auth=" + url.QueryEscape(token)
	if query != "" {
		u += "&" + query
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

func isNull(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// ---------------- Authentication ----------------

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// ensureToken returns a valid ID token, refreshing or re-authenticating as
// needed. The token's own exp claim drives the refresh schedule.
func (s *RTDBStore) ensureToken() (string, error) {
	if s.idToken != "" && time.Now().Before(s.tokenExpiry.Add(-tokenSlack)) {
		return s.idToken, nil
	}

	if s.refreshToken != "" {
		if err := s.refresh(); err == nil {
			return s.idToken, nil
		} else {
			log.Printf("rtdb: token refresh failed, signing in again: %v", err)
		}
	}

	if err := s.signIn(); err != nil {
		return "", err
	}
	return s.idToken, nil
}

func (s *RTDBStore) signIn() error {
	if s.cfg.APIKey == "" {
		return fmt.Errorf("sign in: no API key configured")
	}

	body, _ := json.Marshal(map[string]any{
		"email":             s.cfg.Email,
		"password":          s.cfg.Password,
		"returnSecureToken": true,
	})

	u := "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword?key=" + url.QueryEscape(s.cfg.APIKey)
	var out signInResponse
	if err := s.postJSON(u, body, &out); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	s.adoptToken(out.IDToken, out.RefreshToken)
	return nil
}

func (s *RTDBStore) refresh() error {
	body, _ := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": s.refreshToken,
	})

	u := "https://securetoken.googleapis.com/v1/token?key=" + url.QueryEscape(s.cfg.APIKey)
	var out refreshResponse
	if err := s.postJSON(u, body, &out); err != nil {
		return err
	}

	s.adoptToken(out.IDToken, out.RefreshToken)
	return nil
}

func (s *RTDBStore) postJSON(u string, body []byte, out any) error {
	resp, err := s.client.Post(u, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// adoptToken stores the new tokens and reads the ID token's expiry from its
// exp claim. The token is consumed, not verified: the database does the
// verifying; we only need the deadline.
func (s *RTDBStore) adoptToken(idToken, refreshToken string) {
	s.idToken = idToken
	if refreshToken != "" {
		s.refreshToken = refreshToken
	}
	s.tokenExpiry = tokenExpiry(idToken)
}

func tokenExpiry(idToken string) time.Time {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil {
		// Unreadable token: treat it as good for a conservative window.
		return time.Now().Add(30 * time.Minute)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(30 * time.Minute)
	}
	return exp.Time
}
