// Package shopping keeps per-user wishlists and carts in memory.
package shopping

import (
	"errors"
	"hash/maphash"
	"sync"
)

const shardCount = 32

// ErrInvalidQuantity is returned for non-positive cart quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

type shard struct {
	mu        sync.Mutex
	wishlists map[string][]string
	carts     map[string]map[string]int
}

// Store is safe for concurrent use. Users are spread over shards so that
// writers to different users rarely contend; all access to one user is
// serialised by its shard lock.
type Store struct {
	seed   maphash.Seed
	shards [shardCount]*shard
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i] = &shard{
			wishlists: make(map[string][]string),
			carts:     make(map[string]map[string]int),
		}
	}
	return s
}

func (s *Store) shardFor(user string) *shard {
	return s.shards[maphash.String(s.seed, user)%shardCount]
}

// AddToWishlist appends productID unless already present and returns the
// user's wishlist in insertion order.
func (s *Store) AddToWishlist(user, productID string) []string {
	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	list := sh.wishlists[user]
	for _, id := range list {
		if id == productID {
			return clone(list)
		}
	}
	list = append(list, productID)
	sh.wishlists[user] = list
	return clone(list)
}

// Wishlist returns a copy of the user's wishlist, empty when unknown.
func (s *Store) Wishlist(user string) []string {
	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return clone(sh.wishlists[user])
}

// AddToCart adds quantity of productID to the user's cart and returns the
// updated cart.
func (s *Store) AddToCart(user, productID string, quantity int) (map[string]int, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cart := sh.carts[user]
	if cart == nil {
		cart = make(map[string]int)
		sh.carts[user] = cart
	}
	cart[productID] += quantity
	return cloneCart(cart), nil
}

// Cart returns a copy of the user's cart, empty when unknown.
func (s *Store) Cart(user string) map[string]int {
	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return cloneCart(sh.carts[user])
}

func clone(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func cloneCart(cart map[string]int) map[string]int {
	out := make(map[string]int, len(cart))
	for k, v := range cart {
		out[k] = v
	}
	return out
}
