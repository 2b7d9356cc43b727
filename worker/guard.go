package worker

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// redeliveryGuard remembers recently handled batch IDs.
type redeliveryGuard struct {
	seen *lru.Cache[string, struct{}]
}

func newRedeliveryGuard(size int) (*redeliveryGuard, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &redeliveryGuard{seen: cache}, nil
}

// firstDelivery records id and reports whether it was not seen before.
func (g *redeliveryGuard) firstDelivery(id string) bool {
	found, _ := g.seen.ContainsOrAdd(id, struct{}{})
	return !found
}

// forget drops id so a later delivery is handled again.
func (g *redeliveryGuard) forget(id string) {
	g.seen.Remove(id)
}
