package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fleet_console/internal/api"
	"fleet_console/internal/domain"
)

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(addr string) *client {
	return &client{
		baseURL: strings.TrimRight(addr, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *client) dataset() (domain.Dataset, error) {
	var out domain.Dataset
	if err := c.getJSON("/dashboard", &out); err != nil {
		return domain.Dataset{}, err
	}
	return out, nil
}

func (c *client) script() (domain.Script, error) {
	var out domain.Script
	if err := c.getJSON("/workflow/script", &out); err != nil {
		return domain.Script{}, err
	}
	return out, nil
}

func (c *client) snapshot() (domain.PlayerSnapshot, error) {
	var out domain.PlayerSnapshot
	if err := c.getJSON("/workflow", &out); err != nil {
		return domain.PlayerSnapshot{}, err
	}
	return out, nil
}

func (c *client) runs(limit int) ([]domain.RunSummary, error) {
	var out []domain.RunSummary
	if err := c.getJSON(fmt.Sprintf("/workflow/runs?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// control posts a player action and returns the resulting snapshot.
func (c *client) control(action string) (domain.PlayerSnapshot, error) {
	var out domain.PlayerSnapshot
	if err := c.postJSON("/workflow/"+action, nil, &out); err != nil {
		return domain.PlayerSnapshot{}, err
	}
	return out, nil
}

// stream dials the websocket event feed and calls fn for every frame until
// the connection fails or done is closed.
func (c *client) stream(done <-chan struct{}, fn func(api.Frame)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/workflow/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	go func() {
		<-done
		_ = conn.Close()
	}()
	for {
		var frame api.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-done:
				return nil
			default:
				return fmt.Errorf("read frame: %w", err)
			}
		}
		fn(frame)
	}
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	return nil
}

func (c *client) postJSON(path string, in any, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	return nil
}

func waitHealth(c *client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/healthz", nil)
		if err == nil {
			resp, err := c.http.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode < 300 {
					return nil
				}
			}
		}
		time.Sleep(400 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for /healthz")
}
