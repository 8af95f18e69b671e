package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"
)

const (
	pixabayEndpoint = "https://pixabay.com/api/"
	imageTimeout    = 10 * time.Second
	freeImageURL    = "https://cdn.pixabay.com/photo/2013/07/12/17/39/star-152151_150.png"
)

// ErrNoImage is returned when a search yields no image.
var ErrNoImage = errors.New("no image found")

// ImageSource searches stock images and returns candidate URLs.
type ImageSource interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// PixabayClient searches the Pixabay image API.
type PixabayClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewPixabayClient creates a client for the given API key.
func NewPixabayClient(apiKey string) *PixabayClient {
	return &PixabayClient{
		apiKey:   apiKey,
		endpoint: pixabayEndpoint,
		http:     &http.Client{Timeout: imageTimeout},
	}
}

// Search returns the web-format URLs of the images matching query.
func (p *PixabayClient) Search(ctx context.Context, query string) ([]string, error) {
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", query)
	q.Set("image_type", "photo")
	q.Set("orientation", "horizontal")
	q.Set("safesearch", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pixabay request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pixabay search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay search: status %d", resp.StatusCode)
	}

	var body struct {
		Hits []struct {
			WebformatURL string `json:"webformatURL"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("pixabay decode: %w", err)
	}

	urls := make([]string, 0, len(body.Hits))
	for _, h := range body.Hits {
		if h.WebformatURL != "" {
			urls = append(urls, h.WebformatURL)
		}
	}
	return urls, nil
}

var searchTerms = map[string]string{
	"pray":   "praying hands clipart",
	"faith":  "cross christian clipart",
	"jesus":  "jesus christ clipart",
	"god":    "divine light rays clipart",
	"bible":  "holy bible book clipart",
	"church": "church building clipart",
	"cross":  "christian cross clipart",
	"angel":  "angel wings clipart",
	"love":   "heart symbol clipart",
	"sing":   "music note clipart",
	"help":   "helping hands clipart",
	"give":   "gift box clipart",
	"serve":  "serving hands clipart",
	"bread":  "bread loaf clipart",
	"water":  "water drop clipart",
	"light":  "sunlight rays clipart",
	"fish":   "christian fish symbol",
	"dove":   "white dove peace",
	"lamp":   "oil lamp ancient",
	"scroll": "ancient scroll clipart",
	"crown":  "royal crown clipart",
	"tree":   "tree of life clipart",
	"star":   "bethlehem star clipart",
	"sun":    "sun rays clipart",
	"moon":   "crescent moon clipart",
	"garden": "eden garden clipart",
	"lamb":   "lamb sheep clipart",
	"sheep":  "flock sheep clipart",
	"lion":   "lion judah clipart",
	"moses":  "moses staff clipart",
	"david":  "david sling clipart",
	"mary":   "virgin mary clipart",
	"paul":   "apostle paul clipart",
	"peter":  "apostle peter clipart",
	"hope":   "anchor hope clipart",
	"peace":  "dove olive branch",
	"joy":    "celebration clipart",
	"grace":  "divine grace clipart",
	"holy":   "holy spirit dove",
	"trust":  "handshake trust clipart",
	"good":   "thumbs up clipart",
	"kind":   "helping heart clipart",
}

// searchTerm turns an image description into an image search query.
func searchTerm(desc string) string {
	desc = strings.ToLower(strings.TrimSpace(desc))
	if term, ok := searchTerms[desc]; ok {
		return term
	}
	return desc + " christian"
}

// placeholderImage returns a green SVG data URL whose shade depends only on
// desc.
func placeholderImage(desc string) string {
	var hash int32
	for _, r := range desc {
		hash = int32(r) + (hash << 5) - hash
	}
	abs := func(v int32) int64 {
		if v < 0 {
			return -int64(v)
		}
		return int64(v)
	}
	h := 90 + abs(hash)%60
	s := 40 + abs(hash>>8)%30
	l := 75 + abs(hash>>16)%15

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100"><rect width="100" height="100" fill="hsl(%d, %d%%, %d%%)" /></svg>`, h, s, l)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// ImageResolver picks the image of each cell of one board. It caches by
// description and avoids showing the same image twice on the board.
// A nil source always yields placeholders.
type ImageResolver struct {
	source ImageSource

	mu    sync.Mutex
	cache map[string]string
	used  mapset.Set[string]
	rng   *rand.Rand
}

// NewImageResolver creates a resolver for a single board.
func NewImageResolver(src ImageSource, rng *rand.Rand) *ImageResolver {
	return &ImageResolver{
		source: src,
		cache:  make(map[string]string),
		used:   mapset.New[string](),
		rng:    rng,
	}
}

// Resolve returns an image reference for desc. Failures degrade to a
// placeholder and are returned alongside it for logging.
func (r *ImageResolver) Resolve(ctx context.Context, desc string) (string, error) {
	term := searchTerm(desc)

	r.mu.Lock()
	if u, ok := r.cache[term]; ok && !r.used.Has(u) {
		r.used.Put(u)
		r.mu.Unlock()
		return u, nil
	}
	r.mu.Unlock()

	if r.source == nil {
		return placeholderImage(desc), nil
	}

	urls, err := r.source.Search(ctx, term)
	if err != nil {
		return placeholderImage(desc), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var unused []string
	for _, u := range urls {
		if !r.used.Has(u) {
			unused = append(unused, u)
		}
	}
	if len(unused) == 0 {
		return placeholderImage(desc), fmt.Errorf("search %q: %w", term, ErrNoImage)
	}
	u := unused[r.rng.IntN(len(unused))]
	r.cache[term] = u
	r.used.Put(u)
	return u, nil
}

// Release gives back an image that was resolved but never shown, so a later
// Resolve can hand it out again.
func (r *ImageResolver) Release(image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used.Remove(image)
}
