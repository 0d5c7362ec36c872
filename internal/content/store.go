package content

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/ratelimit"
)

// Config holds configuration for the content store
type Config struct {
	// IPFSGateways are tried in order until one serves the content
	IPFSGateways []string
	// CacheSize bounds the number of resolved documents kept in memory, 0 disables caching
	CacheSize int
	// Limiter throttles requests per gateway, nil leaves them unthrottled
	Limiter ratelimit.Limiter
}

// Store resolves content-addressed documents referenced by data links
//
//go:generate mockgen -source=store.go -destination=../mocks/content_store.go -package=mocks -mock_names=Store=MockContentStore
type Store interface {
	// Resolve fetches the JSON object stored under hash. Content no gateway knows of is nil, nil.
	Resolve(ctx context.Context, hash string) (map[string]any, error)

	// ResolveText fetches the raw text stored under hash, "" when absent
	ResolveText(ctx context.Context, hash string) (string, error)
}

type gatewayStore struct {
	httpClient adapter.HTTPClient
	gateways   []string
	limiter    ratelimit.Limiter
	cache      *lru.Cache[string, map[string]any]
}

// NewStore creates a store reading from IPFS HTTP gateways
func NewStore(httpClient adapter.HTTPClient, cfg Config) (Store, error) {
	gateways := make([]string, 0, len(cfg.IPFSGateways))
	for _, gw := range cfg.IPFSGateways {
		if gw = strings.TrimRight(strings.TrimSpace(gw), "/"); gw != "" {
			gateways = append(gateways, gw)
		}
	}
	if len(gateways) == 0 {
		gateways = []string{domain.DefaultIPFSGateway}
	}

	s := &gatewayStore{httpClient: httpClient, gateways: gateways, limiter: cfg.Limiter}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, map[string]any](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create content cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *gatewayStore) Resolve(ctx context.Context, hash string) (map[string]any, error) {
	cid := CID(hash)
	if cid == "" {
		return nil, nil
	}
	if s.cache != nil {
		if doc, ok := s.cache.Get(cid); ok {
			return doc, nil
		}
	}

	body, err := s.fetch(ctx, cid)
	if err != nil || body == nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode content %s: %w", cid, err)
	}
	if s.cache != nil {
		s.cache.Add(cid, doc)
	}
	return doc, nil
}

func (s *gatewayStore) ResolveText(ctx context.Context, hash string) (string, error) {
	cid := CID(hash)
	if cid == "" {
		return "", nil
	}
	body, err := s.fetch(ctx, cid)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// fetch returns nil without error when every gateway answered 404
func (s *gatewayStore) fetch(ctx context.Context, cid string) ([]byte, error) {
	var lastErr error
	for _, gw := range s.gateways {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, gw); err != nil {
				return nil, err
			}
		}
		url := fmt.Sprintf("%s/ipfs/%s", gw, cid)
		body, err := s.httpClient.GetBytes(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !adapter.IsNotFound(err) {
			lastErr = err
		}
		logger.DebugCtx(ctx, "Gateway could not serve content", zap.String("url", url), zap.Error(err))
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to fetch content %s: %w", cid, lastErr)
	}
	return nil, nil
}

var (
	cidV0 = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1 = regexp.MustCompile(`^b[a-z2-7]{58,}$`)
)

// CID extracts the content id of a link in bare, ipfs:// or gateway form. It returns "" for
// anything that is not a content hash.
func CID(link string) string {
	link = strings.TrimSpace(link)
	if rest, ok := strings.CutPrefix(link, "ipfs://"); ok {
		link = rest
	} else if i := strings.Index(link, "/ipfs/"); i >= 0 {
		link = link[i+len("/ipfs/"):]
	}
	if i := strings.IndexAny(link, "/?#"); i >= 0 {
		link = link[:i]
	}
	if cidV0.MatchString(link) || cidV1.MatchString(link) {
		return link
	}
	return ""
}

// IsContentHash reports whether link points at content-addressed data
func IsContentHash(link string) bool {
	return CID(link) != ""
}

// LangValue picks the english text of a localized value like {"lang": true, "en": "...", "ru": "..."}.
// Plain strings are returned as is.
func LangValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		if _, localized := t["lang"]; !localized {
			return ""
		}
		for _, lang := range []string{"en", "ru"} {
			if s, ok := t[lang].(string); ok && s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}
