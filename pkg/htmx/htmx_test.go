package htmx_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/htmx"
)

type headers map[string]string

func (h headers) Header(name string) string { return h[name] }

var (
	plain  = headers{}
	hxReq  = headers{htmx.HeaderHXRequest: "true", htmx.HeaderHXTarget: "list"}
	boosts = headers{htmx.HeaderHXRequest: "true", htmx.HeaderHXBoosted: "true"}
)

type text string

func (t text) Render(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, string(t))
	return err
}

func render(t *testing.T, body any) string {
	t.Helper()
	c, ok := body.(internal.Component)
	require.True(t, ok, "body is %T", body)
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	assert.False(t, htmx.IsHTMX(plain))
	assert.True(t, htmx.IsHTMX(hxReq))
	assert.True(t, htmx.IsPartial(hxReq))
	assert.False(t, htmx.IsPartial(boosts))
	assert.True(t, htmx.IsBoosted(boosts))
	assert.False(t, htmx.IsPartial(headers{
		htmx.HeaderHXRequest:               "true",
		htmx.HeaderHXHistoryRestoreRequest: "true",
	}))
	assert.Equal(t, "list", htmx.Target(hxReq))
	assert.Empty(t, htmx.Prompt(hxReq))
}

func TestRedirect(t *testing.T) {
	t.Parallel()

	resp := htmx.Redirect(plain, "/next")
	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "/next", resp.Header("Location"))

	resp = htmx.Redirect(hxReq, "/next")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "/next", resp.Header(htmx.HeaderHXRedirect))
	assert.Empty(t, resp.Header("Location"))

	resp = htmx.RedirectWithStatus(plain, "/moved", http.StatusMovedPermanently)
	assert.Equal(t, http.StatusMovedPermanently, resp.Status)
}

func TestRedirectBack(t *testing.T) {
	t.Parallel()

	type site struct{}
	app, err := internal.New(&site{}, internal.WithHandler("back", func(r *internal.Request) *internal.Response {
		return htmx.RedirectBack(r, "/home")
	}))
	require.NoError(t, err)

	cases := map[string]string{
		"/back":                             "/home",
		"/back?redirect=/profile":           "/profile",
		"/back?redirect=//evil.com":         "/home",
		"/back?redirect=https://evil.com/x": "/home",
		"/back?redirect=%2F%5Cevil.com":     "/home",
	}
	for target, want := range cases {
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusFound, w.Code, target)
		assert.Equal(t, want, w.Header().Get("Location"), target)
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()

	resp := htmx.Location(plain, "/dash")
	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "/dash", resp.Header("Location"))

	resp = htmx.Location(hxReq, "/dash")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "/dash", resp.Header(htmx.HeaderHXLocation))

	resp = htmx.LocationTarget(hxReq, "/dash", "#main")
	assert.JSONEq(t, `{"path":"/dash","target":"#main"}`, resp.Header(htmx.HeaderHXLocation))

	resp = htmx.LocationWithOptions(hxReq, htmx.LocationOptions{
		Path:   "/dash",
		Swap:   string(htmx.SwapOuterHTML),
		Values: map[string]string{"tab": "2"},
	})
	assert.JSONEq(t, `{"path":"/dash","swap":"outerHTML","values":{"tab":"2"}}`, resp.Header(htmx.HeaderHXLocation))
}

func TestRespond(t *testing.T) {
	t.Parallel()

	t.Run("headers", func(t *testing.T) {
		t.Parallel()
		resp := htmx.Respond("row",
			htmx.WithRetarget("#rows"),
			htmx.WithReswap(htmx.SwapBeforeEnd),
			htmx.WithReselect(".row"),
			htmx.WithPushURL("false"),
			htmx.WithReplaceURL("/rows"),
			htmx.WithTrigger("saved"),
			htmx.WithTrigger("counted"),
			htmx.WithTriggerAfterSwap("swapped"),
			htmx.WithTriggerAfterSettle("settled"),
			htmx.WithRefresh(),
		)

		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "row", resp.Body)
		assert.Equal(t, "#rows", resp.Header(htmx.HeaderHXRetarget))
		assert.Equal(t, "beforeend", resp.Header(htmx.HeaderHXReswap))
		assert.Equal(t, ".row", resp.Header(htmx.HeaderHXReselect))
		assert.Equal(t, "false", resp.Header(htmx.HeaderHXPushURL))
		assert.Equal(t, "/rows", resp.Header(htmx.HeaderHXReplaceURL))
		assert.Equal(t, "saved, counted", resp.Header(htmx.HeaderHXTrigger))
		assert.Equal(t, "swapped", resp.Header(htmx.HeaderHXTriggerAfterSwap))
		assert.Equal(t, "settled", resp.Header(htmx.HeaderHXTriggerAfterSettle))
		assert.Equal(t, "true", resp.Header(htmx.HeaderHXRefresh))
	})

	t.Run("out of band components", func(t *testing.T) {
		t.Parallel()
		resp := htmx.Respond(text("<tr>1</tr>"),
			htmx.WithOOB(text(`<span id="n" hx-swap-oob="true">1</span>`)),
			htmx.WithOOB(text(`<p id="f" hx-swap-oob="true"></p>`)),
		)
		assert.Equal(t, `<tr>1</tr><span id="n" hx-swap-oob="true">1</span><p id="f" hx-swap-oob="true"></p>`, render(t, resp.Body))

		resp = htmx.Apply(internal.Reply(http.StatusCreated, "ok"), htmx.WithOOB(text("<i>x</i>")))
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.Equal(t, "ok<i>x</i>", render(t, resp.Body))
	})

	t.Run("unsupported body", func(t *testing.T) {
		t.Parallel()
		resp := htmx.Respond(42, htmx.WithOOB(text("x")))
		c := resp.Body.(internal.Component)
		require.Error(t, c.Render(context.Background(), io.Discard))
	})
}
