package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/motorgraph/motorgraph/pkg/resilience"
)

func TestClientParseSuccess(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		fmt.Fprint(w, `{"parse":{"title":"Toyota Corolla","displaytitle":"Toyota Corolla",`+
			`"text":"<p>body</p>","thumbnail":{"source":"https://img.example/corolla.jpg"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res, err := c.Parse(context.Background(), "Toyota Corolla")
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Toyota Corolla" || res.Text != "<p>body</p>" {
		t.Fatalf("result = %+v", res)
	}
	if res.ThumbnailURL != "https://img.example/corolla.jpg" {
		t.Fatalf("thumbnail = %q", res.ThumbnailURL)
	}

	want := map[string]string{
		"action":        "parse",
		"page":          "Toyota Corolla",
		"format":        "json",
		"prop":          "text|pageimages|displaytitle",
		"pithumbsize":   "500",
		"redirects":     "true",
		"formatversion": "2",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestClientParseMissingTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"missingtitle","info":"The page you specified doesn't exist."}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Parse(context.Background(), "Nonexistent Car")
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("err = %v, want ErrMissingTitle", err)
	}
}

func TestClientParseOtherAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"maxlag","info":"Waiting for replication"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Parse(context.Background(), "Anything")
	if errors.Is(err, ErrMissingTitle) {
		t.Fatal("maxlag must not classify as missing title")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "maxlag" {
		t.Fatalf("err = %v, want APIError maxlag", err)
	}
}

func TestClientParseNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"parse":{"title":"Empty Page","text":""}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Parse(context.Background(), "Empty Page")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestClientParseUpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Parse(context.Background(), "Anything")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestClientBreakerTripsOnTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	for i := 0; i < resilience.DefaultBreakerOpts.FailThreshold; i++ {
		if _, err := c.Parse(context.Background(), "Anything"); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := c.Parse(context.Background(), "Anything")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestClientBreakerIgnoresMissingTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"missingtitle","info":"nope"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	for i := 0; i < resilience.DefaultBreakerOpts.FailThreshold+1; i++ {
		if _, err := c.Parse(context.Background(), "Anything"); !errors.Is(err, ErrMissingTitle) {
			t.Fatalf("call %d: err = %v, want ErrMissingTitle", i, err)
		}
	}
}
