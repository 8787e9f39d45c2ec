package agent

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/hyperengineering/tinyleap/internal/types"
)

// CachedValidator memoizes successful verdicts by (language, vision, text)
// and collapses concurrent identical requests into one call. Fallback
// verdicts are never cached.
type CachedValidator struct {
	validator *Validator
	cache     *expirable.LRU[string, types.ValidationResult]
	group     singleflight.Group
}

// NewCachedValidator wraps v with an LRU of the given size and TTL.
// A non-positive size disables caching but keeps call collapsing.
func NewCachedValidator(v *Validator, size int, ttl time.Duration) *CachedValidator {
	cv := &CachedValidator{validator: v}
	if size > 0 {
		cv.cache = expirable.NewLRU[string, types.ValidationResult](size, nil, ttl)
	}
	return cv
}

// Validate behaves like Validator.Validate.
func (cv *CachedValidator) Validate(ctx context.Context, behaviorText, vision string, lang types.Language) types.ValidationResult {
	key := verdictKey(behaviorText, vision, lang)
	if cv.cache != nil {
		if result, ok := cv.cache.Get(key); ok {
			return result
		}
	}

	v, err, _ := cv.group.Do(key, func() (any, error) {
		result, err := cv.validator.Judge(ctx, behaviorText, vision, lang)
		if err != nil {
			return nil, err
		}
		if cv.cache != nil {
			cv.cache.Add(key, result)
		}
		return result, nil
	})
	if err != nil {
		cv.validator.fallback(err, "cached", true)
		return ValidatorFallback(lang)
	}
	return v.(types.ValidationResult)
}

// Forget drops the memoized verdicts for behaviorText in every language and
// vision.
func (cv *CachedValidator) Forget(behaviorText string) {
	if cv.cache == nil {
		return
	}
	for _, key := range cv.cache.Keys() {
		if key[strings.LastIndexByte(key, 0)+1:] == behaviorText {
			cv.cache.Remove(key)
		}
	}
}

func verdictKey(behaviorText, vision string, lang types.Language) string {
	return string(lang) + "\x00" + vision + "\x00" + behaviorText
}
