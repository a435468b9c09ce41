package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// reportCache is a time-boxed single-entry cache keyed by the account
// configuration set. A nil cache is a no-op, so the base design (no
// caching) costs nothing.
type reportCache struct {
	ttl time.Duration
	key string

	mu        sync.Mutex
	report    *domain.Report
	expiresAt time.Time

	// now is injectable for testing.
	now func() time.Time
}

func newReportCache(ttl time.Duration, key string) *reportCache {
	return &reportCache{ttl: ttl, key: key, now: time.Now}
}

func (c *reportCache) get() (domain.Report, bool) {
	if c == nil {
		return domain.Report{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil || c.now().After(c.expiresAt) {
		return domain.Report{}, false
	}
	return *c.report, true
}

func (c *reportCache) put(report domain.Report) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = &report
	c.expiresAt = c.now().Add(c.ttl)
}

// accountsKey hashes the account configuration set so a cache built for
// one set is never served for another.
func accountsKey(accounts []domain.AccountConfig) string {
	h := sha256.New()
	for _, a := range accounts {
		fmt.Fprintf(h, "%s|%s|", a.Ref, a.Profile)
		if a.StaticKeys != nil {
			fmt.Fprintf(h, "static:%s|", a.StaticKeys.AccessKeyID)
		}
		if a.AssumeRole != nil {
			fmt.Fprintf(h, "role:%s:%s|", a.AssumeRole.RoleARN, a.AssumeRole.ExternalID)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
