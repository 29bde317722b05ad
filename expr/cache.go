package expr

import "github.com/engsuite/resolve/quantity"

// Cache memoizes evaluation results for one solving session. It is an
// explicit, scoped object: create one per solve call and drop it afterwards.
//
// Constant subtrees are cached unconditionally (they can never go stale).
// Full results are cached only when the context reports a revision, and are
// discarded as soon as the revision moves, so a cached value is never
// returned after a referenced variable becomes known.
type Cache struct {
	consts map[Expr]quantity.Quantity
	memo   map[Expr]memoEntry
}

type memoEntry struct {
	rev uint64
	q   quantity.Quantity
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		consts: map[Expr]quantity.Quantity{},
		memo:   map[Expr]memoEntry{},
	}
}

// Evaluate computes e against ctx through the cache.
func (c *Cache) Evaluate(e Expr, ctx Context) (quantity.Quantity, error) {
	if e.IsConstant() {
		if q, ok := c.consts[e]; ok {
			return q, nil
		}
		q, err := e.Evaluate(ctx)
		if err != nil {
			return quantity.Quantity{}, err
		}
		c.consts[e] = q
		return q, nil
	}

	rv, versioned := ctx.(Revisioned)
	if versioned {
		if ent, ok := c.memo[e]; ok && ent.rev == rv.Revision() {
			return ent.q, nil
		}
	}
	q, err := e.Evaluate(ctx)
	if err != nil {
		return quantity.Quantity{}, err
	}
	if versioned {
		c.memo[e] = memoEntry{rev: rv.Revision(), q: q}
	}
	return q, nil
}
