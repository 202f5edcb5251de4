// Package app is the demo application: a small shop whose catalog is a
// singleton, whose cart lives in the session and whose audit trail is
// collected per request.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/autowire"
	"github.com/km-arc/go-dicontainer/framework/container"
	gohttp "github.com/km-arc/go-dicontainer/framework/http"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

// ── Components ───────────────────────────────────────────────────────────────

// Catalog lists the products for sale.
type Catalog struct {
	prices map[string]int
}

func NewCatalog() *Catalog {
	return &Catalog{prices: map[string]int{"apple": 120, "pear": 150, "plum": 90}}
}

func (c *Catalog) Price(item string) (int, bool) {
	p, ok := c.prices[item]
	return p, ok
}

// Cart is one session's basket.
type Cart struct {
	mu    sync.Mutex
	items []string
	total int
}

func (c *Cart) Add(item string, price int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	c.total += price
}

func (c *Cart) Snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.items...), c.total
}

// Audit records what happened during one request and logs it when the
// request ends.
type Audit struct {
	Log *zap.Logger `inject:""`

	entries []string
}

func (a *Audit) Record(format string, args ...any) {
	a.entries = append(a.entries, fmt.Sprintf(format, args...))
}

func (a *Audit) Destroy(context.Context) error {
	if len(a.entries) > 0 {
		a.Log.Info("request audit", zap.Strings("entries", a.entries))
	}
	return nil
}

// ItemAdded is fired after an item lands in a cart.
type ItemAdded struct {
	Item  string
	Price int
}

// Sales counts items sold across all sessions.
type Sales struct {
	mu   sync.Mutex
	sold map[string]int
}

func NewSales() *Sales { return &Sales{sold: make(map[string]int)} }

func (s *Sales) Count(item string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sold[item]
}

func (s *Sales) record(e ItemAdded) {
	s.mu.Lock()
	s.sold[e.Item]++
	s.mu.Unlock()
}

// Shop serves one request. It is request scoped: the audit trail is
// fresh per request and the cart is the caller's session cart.
type Shop struct {
	Catalog   *Catalog             `inject:""`
	Audit     *Audit               `inject:""`
	Cart      *Cart                `inject:""`
	Container *container.Container `inject:""`
}

func (s *Shop) Add(ctx context.Context, item string) error {
	price, ok := s.Catalog.Price(item)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownItem, item)
	}
	s.Cart.Add(item, price)
	s.Audit.Record("added %s for %d", item, price)
	return s.Container.Fire(ctx, ItemAdded{Item: item, Price: price})
}

var errUnknownItem = errors.New("unknown item")

// ── Provider ─────────────────────────────────────────────────────────────────

// ShopServiceProvider registers the shop components and routes.
//
//	GET  /shop/cart          → the session cart
//	POST /shop/cart/{item}   → add an item
//	GET  /shop/sales/{item}  → items sold so far
type ShopServiceProvider struct{}

func (p *ShopServiceProvider) Register(b *container.Builder) {
	autowire.Register(b, NewCatalog, autowire.Singleton())
	autowire.Register(b, NewSales, autowire.Singleton(),
		autowire.Observe(func(_ context.Context, s *Sales, e ItemAdded) error {
			s.record(e)
			return nil
		}))
	autowire.Struct[Cart](b, autowire.InScope(routing.SessionScopeName))
	autowire.Struct[Audit](b, autowire.InScope(routing.RequestScopeName))
	autowire.Struct[Shop](b, autowire.InScope(routing.RequestScopeName))
}

func (p *ShopServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	router, err := container.Resolve[*routing.Router](ctx, c)
	if err != nil {
		return err
	}
	router.Prefix("/shop", func(r *routing.Router) {
		r.Get("/cart", func(w http.ResponseWriter, req *http.Request) {
			shop, err := gohttp.Component[*Shop](gohttp.NewRequest(req), c)
			if err != nil {
				gohttp.NewResponse(w).Failure(err)
				return
			}
			items, total := shop.Cart.Snapshot()
			gohttp.NewResponse(w).Success(map[string]any{"items": items, "total": total})
		})
		r.Post("/cart/{item}", func(w http.ResponseWriter, req *http.Request) {
			greq := gohttp.NewRequest(req)
			res := gohttp.NewResponse(w)
			shop, err := gohttp.Component[*Shop](greq, c)
			if err != nil {
				res.Failure(err)
				return
			}
			if err := shop.Add(req.Context(), greq.RouteParam("item")); err != nil {
				if errors.Is(err, errUnknownItem) {
					res.NotFound(err.Error())
					return
				}
				res.Failure(err)
				return
			}
			items, total := shop.Cart.Snapshot()
			res.Success(map[string]any{"items": items, "total": total})
		})
		r.Get("/sales/{item}", func(w http.ResponseWriter, req *http.Request) {
			sales, err := container.Resolve[*Sales](req.Context(), c)
			if err != nil {
				gohttp.NewResponse(w).Failure(err)
				return
			}
			gohttp.NewResponse(w).Success(sales.Count(routing.Param(req, "item")))
		})
	})
	return nil
}
