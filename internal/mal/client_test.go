package mal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const animeXML = `<?xml version="1.0" encoding="utf-8"?>
<anime>
  <entry>
    <id>1</id>
    <title>Cowboy Bebop</title>
    <english>Cowboy Bebop</english>
    <synonyms></synonyms>
    <episodes>26</episodes>
    <score>8.80</score>
    <type>TV</type>
    <status>Finished Airing</status>
    <synopsis>In the year 2071, humanity has colonized the solar system.&lt;br /&gt;More text.</synopsis>
  </entry>
</anime>`

const userJSON = `{"categories":[{"type":"user","items":[
  {"name":"bebopfan","url":"https://myanimelist.net/profile/bebopfan","image_url":"https://img/u.png"}
]}]}`

func newTestServers(t *testing.T, animeStatus int, animeBody string, userBody string) (*Client, func()) {
	t.Helper()
	animeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _, ok := r.BasicAuth(); !ok || user != "user" {
			t.Errorf("basic auth missing on anime request")
		}
		if animeStatus != 0 {
			w.WriteHeader(animeStatus)
			return
		}
		w.Write([]byte(animeBody))
	}))
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userBody))
	}))
	c := NewClient("user", "pass", WithBaseURLs(animeSrv.URL, userSrv.URL))
	return c, func() {
		animeSrv.Close()
		userSrv.Close()
	}
}

func TestLookupAcceptsCloseAnimeMatch(t *testing.T) {
	c, cleanup := newTestServers(t, 0, animeXML, userJSON)
	defer cleanup()

	res, err := c.Lookup(context.Background(), "cowboy bebop")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Anime == nil {
		t.Fatalf("expected anime result, got %+v", res)
	}
	if res.Anime.Title != "Cowboy Bebop" || res.Anime.Episodes != "26" {
		t.Fatalf("anime = %+v", res.Anime)
	}
	if got := res.Anime.URL(); got != "http://myanimelist.net/anime/1/" {
		t.Fatalf("url = %q", got)
	}
	if line := res.Anime.SynopsisLine(); line != "In the year 2071, humanity has colonized the solar system." {
		t.Fatalf("synopsis line = %q", line)
	}
}

func TestLookupFallsBackToUser(t *testing.T) {
	c, cleanup := newTestServers(t, 0, animeXML, userJSON)
	defer cleanup()

	// Nothing like any Cowboy Bebop title, so the user search wins.
	res, err := c.Lookup(context.Background(), "zzzz_nomatch_zzzz")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.User == nil {
		t.Fatalf("expected user result, got %+v", res)
	}
	if res.User.Name != "bebopfan" {
		t.Fatalf("user = %+v", res.User)
	}
}

func TestLookupAnimeErrorStillFallsBack(t *testing.T) {
	c, cleanup := newTestServers(t, http.StatusServiceUnavailable, "", userJSON)
	defer cleanup()

	res, err := c.Lookup(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.User == nil || res.User.Name != "bebopfan" {
		t.Fatalf("expected user fallback, got %+v", res)
	}
}

func TestLookupNoResults(t *testing.T) {
	c, cleanup := newTestServers(t, http.StatusNotFound, "", `{"categories":[]}`)
	defer cleanup()

	if _, err := c.Lookup(context.Background(), "nothing"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestLookupEmptyTerm(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.Lookup(context.Background(), "   "); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestTitleDeviation(t *testing.T) {
	a := &Anime{Title: "Cowboy Bebop", Synonyms: "CB;Space Jazz", English: "Cowboy Bebop"}
	if d := titleDeviation(a, "cowboy+bebop"); d > maxTitleDeviation {
		t.Fatalf("exact match deviation = %d", d)
	}
	if d := titleDeviation(a, "zzz+unrelated"); d <= maxTitleDeviation {
		t.Fatalf("mismatch deviation = %d, should exceed threshold", d)
	}
}
