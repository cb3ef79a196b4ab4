package shopping

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlist(t *testing.T) {
	s := NewStore()

	assert.Equal(t, []string{}, s.Wishlist("u1"))
	assert.Equal(t, []string{"p1"}, s.AddToWishlist("u1", "p1"))
	assert.Equal(t, []string{"p1", "p2"}, s.AddToWishlist("u1", "p2"))
	assert.Equal(t, []string{"p1", "p2"}, s.AddToWishlist("u1", "p1"), "duplicates are ignored")
	assert.Equal(t, []string{}, s.Wishlist("u2"))

	got := s.Wishlist("u1")
	got[0] = "mutated"
	assert.Equal(t, "p1", s.Wishlist("u1")[0])
}

func TestCart(t *testing.T) {
	s := NewStore()

	cart, err := s.AddToCart("u1", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 1}, cart)

	cart, err = s.AddToCart("u1", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 3}, cart)

	_, err = s.AddToCart("u1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Equal(t, map[string]int{}, s.Cart("nobody"))

	got := s.Cart("u1")
	got["p1"] = 99
	assert.Equal(t, 3, s.Cart("u1")["p1"])
}

func TestConcurrentWritersSameUser(t *testing.T) {
	s := NewStore()

	const writers = 16
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.AddToCart("shared", "p", 1)
				assert.NoError(t, err)
				s.AddToWishlist("shared", fmt.Sprintf("w%d-%d", w, i%10))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, s.Cart("shared")["p"])
	assert.Len(t, s.Wishlist("shared"), writers*10)
}

func TestConcurrentWritersManyUsers(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for u := 0; u < 64; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", u)
			for i := 0; i < 50; i++ {
				_, _ = s.AddToCart(user, "p", 2)
			}
		}(u)
	}
	wg.Wait()

	for u := 0; u < 64; u++ {
		assert.Equal(t, 100, s.Cart(fmt.Sprintf("user-%d", u))["p"])
	}
}
