package mal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrNoResults means neither the anime nor the user lookup matched.
var ErrNoResults = errors.New("mal: no results")

const (
	animeSearchURL  = "https://myanimelist.net/api/anime/search.xml"
	userSearchURL   = "https://myanimelist.net/search/prefix.json"
	animeLinkPrefix = "http://myanimelist.net/anime/"

	// A close title match accepts the anime result outright; anything
	// looser falls through to the user search.
	maxTitleDeviation = 3
)

// Anime is one entry from the XML search API.
type Anime struct {
	ID       int    `xml:"id"`
	Title    string `xml:"title"`
	English  string `xml:"english"`
	Synonyms string `xml:"synonyms"`
	Episodes string `xml:"episodes"`
	Score    string `xml:"score"`
	Type     string `xml:"type"`
	Status   string `xml:"status"`
	Synopsis string `xml:"synopsis"`
}

// URL is the canonical page for the entry.
func (a *Anime) URL() string {
	if a.ID == 0 {
		return ""
	}
	return fmt.Sprintf("%s%d/", animeLinkPrefix, a.ID)
}

// SynopsisLine is the first plain-text line of the synopsis, markup stripped.
func (a *Anime) SynopsisLine() string {
	return firstLine(a.Synopsis)
}

// User is one hit from the prefix search API.
type User struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

// Result holds exactly one of the two lookup outcomes.
type Result struct {
	Anime *Anime
	User  *User
}

// Timeouts bounds the round-trips. The API is unreliable, so defaults are
// tight and carried per client rather than mutating any shared setting.
type Timeouts struct {
	Call time.Duration
}

type Client struct {
	http     *fasthttp.Client
	user     string
	password string
	timeouts Timeouts
	logger   *zap.Logger

	animeURL string
	userURL  string
}

type Option func(*Client)

func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		if t.Call > 0 {
			c.timeouts.Call = t.Call
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBaseURLs overrides the endpoints, used by tests.
func WithBaseURLs(animeURL, userURL string) Option {
	return func(c *Client) {
		c.animeURL = animeURL
		c.userURL = userURL
	}
}

func NewClient(user, password string, opts ...Option) *Client {
	c := &Client{
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 4},
		user:     user,
		password: password,
		timeouts: Timeouts{Call: 10 * time.Second},
		logger:   zap.NewNop(),
		animeURL: animeSearchURL,
		userURL:  userSearchURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup tries the anime search first and accepts it only when one of its
// titles is a close match for the term; otherwise it falls back to the user
// prefix search.
func (c *Client) Lookup(ctx context.Context, term string) (*Result, error) {
	term = strings.ReplaceAll(strings.TrimSpace(term), " ", "+")
	if term == "" {
		return nil, ErrNoResults
	}

	anime, err := c.searchAnime(ctx, term)
	if err != nil {
		c.logger.Debug("mal_anime_search_failed", zap.String("term", term), zap.Error(err))
	} else if anime != nil && titleDeviation(anime, term) <= maxTitleDeviation {
		return &Result{Anime: anime}, nil
	}

	user, err := c.searchUser(ctx, term)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoResults
	}
	return &Result{User: user}, nil
}

func (c *Client) searchAnime(ctx context.Context, term string) (*Anime, error) {
	body, err := c.get(ctx, c.animeURL, map[string]string{"q": term})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var doc struct {
		Entries []Anime `xml:"entry"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse anime xml: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, nil
	}
	return &doc.Entries[0], nil
}

func (c *Client) searchUser(ctx context.Context, term string) (*User, error) {
	body, err := c.get(ctx, c.userURL, map[string]string{"type": "user", "keyword": term})
	if err != nil {
		return nil, err
	}

	var doc struct {
		Categories []struct {
			Items []User `json:"items"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse user json: %w", err)
	}
	if len(doc.Categories) == 0 || len(doc.Categories[0].Items) == 0 {
		return nil, nil
	}
	return &doc.Categories[0].Items[0], nil
}

func (c *Client) get(ctx context.Context, rawURL string, args map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(rawURL)
	for k, v := range args {
		req.URI().QueryArgs().Set(k, v)
	}
	if c.user != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(c.user + ":" + c.password))
		req.Header.Set("Authorization", "Basic "+cred)
	}

	deadline := time.Now().Add(c.timeouts.Call)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("mal request: %w", err)
	}
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("mal api error: status=%d", status)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// titleDeviation scores how far the best-matching known title is from the
// search term: the case-insensitive rune distance at the first mismatch.
// Pure length differences (one is a prefix of the other) score zero.
func titleDeviation(a *Anime, term string) int {
	titles := []string{a.Title}
	if a.Synonyms != "" {
		titles = append(titles, strings.Split(a.Synonyms, ";")...)
	}
	if a.English != "" {
		titles = append(titles, a.English)
	}

	min := int(^uint(0) >> 1)
	for _, title := range titles {
		title = strings.TrimSpace(strings.ReplaceAll(title, " ", "+"))
		if title == "" {
			continue
		}
		if d := foldDeviation(title, term); d < min {
			min = d
		}
	}
	return min
}

func foldDeviation(a, b string) int {
	ra, rb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			d := int(ra[i]) - int(rb[i])
			if d < 0 {
				d = -d
			}
			return d
		}
	}
	return 0
}

var firstLineRe = regexp.MustCompile(`^[^\n\r<]+`)

func firstLine(s string) string {
	return firstLineRe.FindString(strings.TrimSpace(s))
}
