package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/imagechat/internal/chat"
	"github.com/ent0n29/imagechat/internal/protocol"
)

type options struct {
	baseURL        string
	turns          int
	imagePath      string
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

var defaultPrompts = []string{
	"Describe this image in one sentence.",
	"What is the main subject?",
	"List three colors you can see.",
	"Summarize the scene in five words.",
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()
	report, err := run(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(report)
}

func parseFlags() (options, error) {
	var cfg options
	var textsRaw string
	var interTurnMS int
	var turnTimeoutMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "imagechat base URL")
	flag.IntVar(&cfg.turns, "turns", 10, "number of turns to send")
	flag.StringVar(&cfg.imagePath, "image", "", "optional JPEG or PNG attached to every turn")
	flag.IntVar(&interTurnMS, "inter-turn-ms", 180, "delay between turns in milliseconds")
	flag.IntVar(&turnTimeoutMS, "turn-timeout-ms", 60000, "timeout waiting for a turn to settle in milliseconds")
	flag.StringVar(&textsRaw, "texts", "", "prompts separated by '|' (optional)")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if turnTimeoutMS < 100 {
		return options{}, fmt.Errorf("turn-timeout-ms must be >= 100")
	}
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond
	cfg.texts = splitPrompts(textsRaw)
	return cfg, nil
}

func splitPrompts(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultPrompts
	}
	return out
}

type turnResult struct {
	latency time.Duration
	status  chat.Status
}

func run(ctx context.Context, cfg options, out io.Writer) (string, error) {
	var image []byte
	if cfg.imagePath != "" {
		data, err := os.ReadFile(cfg.imagePath)
		if err != nil {
			return "", fmt.Errorf("read image: %w", err)
		}
		image = data
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 45 * time.Second, Jar: jar}

	snap, err := postSnapshot(ctx, client, cfg.baseURL+"/v1/chat/session", nil, "")
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if cfg.verbose {
		fmt.Fprintf(out, "perfchat: session=%s turns=%d image=%t\n", snap.State.SessionID, cfg.turns, image != nil)
	}

	conn, err := dialEvents(ctx, jar, cfg.baseURL)
	if err != nil {
		return "", fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	snapshots := make(chan protocol.StateSnapshot, 32)
	readErrCh := make(chan error, 1)
	go readLoop(conn, snapshots, readErrCh)

	results := make([]turnResult, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		if cfg.verbose {
			fmt.Fprintf(out, "perfchat: turn %d/%d text=%q\n", i+1, cfg.turns, text)
		}
		body, contentType, err := turnForm(text, image, cfg.imagePath)
		if err != nil {
			return "", err
		}
		start := time.Now()
		accepted, err := postSnapshot(ctx, client, cfg.baseURL+"/v1/chat/turns", body, contentType)
		if err != nil {
			return "", fmt.Errorf("turn %d submit: %w", i+1, err)
		}
		settled, err := awaitSettled(snapshots, readErrCh, accepted.Version, cfg.turnTimeout)
		if err != nil {
			return "", fmt.Errorf("turn %d: %w", i+1, err)
		}
		results = append(results, turnResult{latency: time.Since(start), status: settled.State.Status})
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	report := summarize(results)
	if server, err := fetchServerLatency(ctx, client, cfg.baseURL); err == nil {
		report += "\nserver: " + server
	}
	return report, nil
}

func turnForm(text string, image []byte, imagePath string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("text", text); err != nil {
		return nil, "", err
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", filepath.Base(imagePath))
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(image); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func postSnapshot(ctx context.Context, client *http.Client, target string, body io.Reader, contentType string) (protocol.StateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return protocol.StateSnapshot{}, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := client.Do(req)
	if err != nil {
		return protocol.StateSnapshot{}, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return protocol.StateSnapshot{}, err
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusAccepted {
		return protocol.StateSnapshot{}, fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	var snap protocol.StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return protocol.StateSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func dialEvents(ctx context.Context, jar http.CookieJar, baseURL string) (*websocket.Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	for _, c := range jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/chat/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	return conn, err
}

func readLoop(conn *websocket.Conn, snapshots chan<- protocol.StateSnapshot, readErrCh chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErrCh <- err
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type != protocol.TypeStateSnapshot {
			continue
		}
		var snap protocol.StateSnapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			snapshots <- snap
		}
	}
}

// awaitSettled waits for a snapshot newer than after whose status is no
// longer pending.
func awaitSettled(snapshots <-chan protocol.StateSnapshot, readErrCh <-chan error, after uint64, timeout time.Duration) (protocol.StateSnapshot, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case snap := <-snapshots:
			if snap.Version > after && snap.State.Status != chat.StatusPending {
				return snap, nil
			}
		case err := <-readErrCh:
			return protocol.StateSnapshot{}, fmt.Errorf("ws read: %w", err)
		case <-timer.C:
			return protocol.StateSnapshot{}, fmt.Errorf("timed out after %s", timeout)
		}
	}
}

func summarize(results []turnResult) string {
	if len(results) == 0 {
		return "no turns"
	}
	latencies := make([]time.Duration, 0, len(results))
	failed := 0
	for _, r := range results {
		latencies = append(latencies, r.latency)
		if r.status == chat.StatusError {
			failed++
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return fmt.Sprintf("turns=%d failed=%d p50=%s p95=%s max=%s",
		len(results), failed,
		percentile(latencies, 50).Round(time.Millisecond),
		percentile(latencies, 95).Round(time.Millisecond),
		latencies[len(latencies)-1].Round(time.Millisecond),
	)
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p + 99) / 100
	if idx < 1 {
		idx = 1
	}
	if idx > len(sorted) {
		idx = len(sorted)
	}
	return sorted[idx-1]
}

func fetchServerLatency(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/perf/latency", nil)
	if err != nil {
		return "", err
	}
	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
