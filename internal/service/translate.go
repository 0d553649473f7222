package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
)

const (
	DefaultSourceLanguage = "ko"
	DefaultTargetLanguage = "ru"

	cacheWriteTimeout = 2 * time.Second
)

type Translator interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
}

type TranslationCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type TranslateService struct {
	Vendor Translator
	Cache  TranslationCache

	writes sync.WaitGroup
}

type TranslateInput struct {
	Texts  []string
	Source string
	Target string
}

// Translate is cache-aside: a hit skips the vendor, a miss stores the result
// in the background. Cache failures only downgrade to a vendor call.
func (s *TranslateService) Translate(ctx context.Context, in TranslateInput) ([]string, error) {
	l := logging.FromContext(ctx).With("svc", "translate")

	if len(in.Texts) == 0 {
		return nil, validation("text is required")
	}
	if in.Source == "" {
		in.Source = DefaultSourceLanguage
	}
	if in.Target == "" {
		in.Target = DefaultTargetLanguage
	}

	key := cacheKey(in)
	if s.Cache != nil {
		var cached []string
		hit, err := s.Cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			metrics.TranslateCacheTotal.WithLabelValues("error").Inc()
			l.Warn("translate_cache_read_failed", "error", err)
		case hit:
			metrics.TranslateCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.TranslateCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	out, err := s.Vendor.Translate(ctx, in.Texts, in.Source, in.Target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.Error("translate_vendor_failed", "status", 502, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if s.Cache != nil {
		s.store(ctx, key, out)
	}
	return out, nil
}

// Wait blocks until pending cache writes finish.
func (s *TranslateService) Wait() {
	s.writes.Wait()
}

func (s *TranslateService) store(ctx context.Context, key string, value []string) {
	l := logging.FromContext(ctx)
	bg := context.WithoutCancel(ctx)

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		wctx, cancel := context.WithTimeout(bg, cacheWriteTimeout)
		defer cancel()
		if err := s.Cache.Set(wctx, key, value); err != nil {
			l.Warn("translate_cache_write_failed", "error", err)
		}
	}()
}

func cacheKey(in TranslateInput) string {
	h := sha256.New()
	h.Write([]byte(in.Source + "\x00" + in.Target + "\x00"))
	h.Write([]byte(strings.Join(in.Texts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}
