/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package extract

import (
	"cloud.google.com/go/logging"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/ajjensen13/stocker-iex/internal/model"
	"github.com/ajjensen13/stocker-iex/internal/util"
)

const DefaultRootURL = "https://api.iextrading.com/1.0"

// Endpoint is a type accepted by the batch endpoint's types parameter.
type Endpoint string

const (
	CompanyEndpoint Endpoint = "company"
	ChartEndpoint   Endpoint = "chart"
)

var (
	ErrToManyRequests = errors.New("error: too many requests")
	ErrEmptyResponse  = errors.New("returned empty json")
)

// FetchError reports a batch request that produced no usable response.
type FetchError struct {
	Endpoint Endpoint
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("iex %s request failed: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client requests batches for every stock of a universe at once.
type Client struct {
	rootURL  string
	client   *http.Client
	universe model.Universe
	bo       backoff.BackOff
	bon      backoff.Notify
}

// NewClient returns a client for rootURL. bo decides whether failed requests
// are retried; pass backoff.WithMaxRetries(bo, 0) for a single attempt.
func NewClient(rootURL string, client *http.Client, universe model.Universe, bo backoff.BackOff, bon backoff.Notify) *Client {
	return &Client{
		rootURL:  strings.TrimSuffix(rootURL, "/"),
		client:   client,
		universe: universe,
		bo:       bo,
		bon:      bon,
	}
}

func (c *Client) batchURL(endpoint Endpoint, mode model.Mode) (string, error) {
	u, err := url.Parse(c.rootURL + "/stock/market/batch")
	if err != nil {
		return "", fmt.Errorf("failed to parse api root url: %w", err)
	}

	q := u.Query()
	q.Set("symbols", c.universe.Symbols())
	q.Set("types", string(endpoint))
	q.Set("range", mode.Range())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Fetch requests endpoint for the whole universe. The range is one month for
// incremental runs and two years for backfills.
func (c *Client) Fetch(ctx context.Context, endpoint Endpoint, mode model.Mode) (model.BatchResponse, error) {
	ctx = util.WithLoggerValue(ctx, "endpoint", string(endpoint))

	u, err := c.batchURL(endpoint, mode)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	var result model.BatchResponse
	err = backoff.RetryNotify(func() error {
		r, err := c.fetch(ctx, endpoint, u)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, backoff.WithContext(c.bo, ctx), c.bon)

	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	util.Logf(ctx, logging.Debug, "received %s data for %d of %d stocks", endpoint, len(result), c.universe.Len())
	return result, nil
}

func (c *Client) fetch(ctx context.Context, endpoint Endpoint, u string) (model.BatchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create %s request: %w", endpoint, err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while requesting %s batch: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		util.Logf(ctx, logging.Error, "non-200 status code: %d", resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error while reading %s batch: %w", endpoint, err)
	}

	var result model.BatchResponse
	err = json.Unmarshal(body, &result)
	if err != nil {
		return nil, handleErr(fmt.Sprintf("error while decoding %s batch", endpoint), resp, body, err)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%s batch: %w", endpoint, ErrEmptyResponse)
	}

	return result, nil
}

func handleErr(msg string, resp *http.Response, body []byte, err error) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", msg, ErrToManyRequests)
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%s (status %d, %q): %w", msg, resp.StatusCode, body, err)
}
