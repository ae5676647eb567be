package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markusressel/vent2go/internal/api"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/persistence"
)

const clientTimeout = 10 * time.Second

// Client is a minimal client for the REST API of the daemon
type Client struct {
	baseUrl    string
	httpClient *http.Client
}

func NewClient(baseUrl string) *Client {
	return &Client{
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

// ApiError is returned for non-2xx responses
type ApiError struct {
	StatusCode int
	Result     api.Result
}

func (e *ApiError) Error() string {
	if len(e.Result.Message) > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Result.Name, e.StatusCode, e.Result.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (c *Client) GetDevices() ([]controller.State, error) {
	var states []controller.State
	err := c.do(http.MethodGet, "/device/", nil, &states)
	return states, err
}

func (c *Client) GetDevice(id string) (controller.State, error) {
	var state controller.State
	err := c.do(http.MethodGet, "/device/"+url.PathEscape(id)+"/", nil, &state)
	return state, err
}

func (c *Client) Action(id string, action string, level *int) (controller.State, error) {
	var state controller.State
	body := api.ActionRequest{Action: action, Level: level}
	err := c.do(http.MethodPost, "/device/"+url.PathEscape(id)+"/action/", body, &state)
	return state, err
}

func (c *Client) SetMode(id string, mode string) (controller.State, error) {
	var state controller.State
	body := api.ModeRequest{Mode: mode}
	err := c.do(http.MethodPost, "/device/"+url.PathEscape(id)+"/mode/", body, &state)
	return state, err
}

func (c *Client) History(id string, limit int) ([]persistence.CommandRecord, error) {
	var records []persistence.CommandRecord
	path := "/device/" + url.PathEscape(id) + "/history/?limit=" + strconv.Itoa(limit)
	err := c.do(http.MethodGet, path, nil, &records)
	return records, err
}

func (c *Client) do(method string, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseUrl+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to reach vent2go API at %s: %w", c.baseUrl, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &ApiError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Result)
		return apiErr
	}

	return json.Unmarshal(data, result)
}
