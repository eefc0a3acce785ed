package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inferd/pkg/types"
)

// Exit codes, one per error kind.
const (
	exitOK         = 0
	exitGeneric    = 1
	exitNotFound   = 2
	exitLoadFailed = 3
	exitAdapter    = 4
	exitNoModel    = 5
)

// apiError carries the server's error payload plus its status code so
// commands can map it to an exit code.
type apiError struct {
	Status int
	Msg    string
}

func (e apiError) Error() string { return e.Msg }

// exitCodeFor maps an error to the documented exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	ae, ok := err.(apiError)
	if !ok {
		return exitGeneric
	}
	switch ae.Status {
	case http.StatusNotFound:
		return exitNotFound
	case http.StatusServiceUnavailable:
		return exitLoadFailed
	case http.StatusBadGateway:
		return exitAdapter
	case http.StatusUnprocessableEntity:
		return exitNoModel
	default:
		return exitGeneric
	}
}

// client is a thin JSON client for the inferd HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{base: base, http: &http.Client{Timeout: 60 * time.Second}}
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

func (c *client) post(path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.http.Post(c.base+path, "application/json", body)
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

func (c *client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var er types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return apiError{Status: resp.StatusCode, Msg: fmt.Sprintf("http %d", resp.StatusCode)}
		}
		return apiError{Status: resp.StatusCode, Msg: er.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
