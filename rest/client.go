// Package rest is the thin HTTP side of the SDK: fetch the gateway endpoint,
// call platform APIs, decode enveloped responses.
package rest

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"PClient/logger"
	decode "PClient/tools/decode"
	errs "PClient/tools/errs"
	ids "PClient/tools/ids"
	security "PClient/tools/security"
)

// envelope is the uniform response wrapper the platform APIs use. Code 0 is
// success; anything else maps onto a CodeError.
type envelope struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data"`
}

type Client struct {
	rc *resty.Client
}

// New builds a client for baseURL authorized by token. An inspectable,
// already-expired token gets a warning up front instead of a confusing 401
// later; opaque tokens pass through silently.
func New(baseURL, token string) *Client {
	if info, err := security.Inspect(token); err == nil && info.Expired(time.Now()) {
		logger.Warnf("[rest] token for subject %q expired at %s", info.Subject, info.ExpiresAt)
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Authorization", token).
		SetHeader("Content-Type", "application/json")
	return &Client{rc: rc}
}

// Get performs a GET and unwraps the envelope.
func (c *Client) Get(ctx context.Context, path string) (map[string]any, error) {
	var env envelope
	resp, err := c.rc.R().SetContext(ctx).SetResult(&env).Get(path)
	return unwrap(&env, resp, err)
}

// Post performs a POST with a JSON body and unwraps the envelope.
func (c *Client) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	var env envelope
	resp, err := c.rc.R().SetContext(ctx).SetBody(body).SetResult(&env).Post(path)
	return unwrap(&env, resp, err)
}

func unwrap(env *envelope, resp *resty.Response, err error) (map[string]any, error) {
	if err != nil {
		return nil, errs.ErrConnection.WrapMsg("http request", "err", err)
	}
	if resp.IsError() {
		return nil, errs.ErrConnection.WrapMsg("http status", "status", resp.Status())
	}
	if env.Code != 0 {
		return nil, errs.NewCodeError(env.Code, env.Msg)
	}
	return env.Data, nil
}

// Fetch GETs path and decodes the envelope data into T.
func Fetch[T any](ctx context.Context, c *Client, path string) (*T, error) {
	data, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	out, err := decode.DecodeMap[T](data)
	if err != nil {
		return nil, errs.ErrDecode.WrapMsg("decode response", "path", path, "err", err)
	}
	return out, nil
}

// FetchEntity GETs the snapshot at {base}/{kind}/{id}, the usual step before
// handing the result to Observe.
func FetchEntity[T any](ctx context.Context, c *Client, kind string, id ids.EntityID) (*T, error) {
	return Fetch[T](ctx, c, "/"+kind+"/"+id.String())
}

// GatewayEndpoint is the advertised websocket endpoint.
type GatewayEndpoint struct {
	URL string `json:"url"`
}

// GetGateway asks the platform where to connect.
func (c *Client) GetGateway(ctx context.Context) (string, error) {
	ep, err := Fetch[GatewayEndpoint](ctx, c, "/gateway")
	if err != nil {
		return "", err
	}
	return ep.URL, nil
}
