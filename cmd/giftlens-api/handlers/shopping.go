package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/giftlens/giftlens/internal/observability"
	"github.com/giftlens/giftlens/internal/shopping"
)

// ShoppingHandler serves wishlists and carts.
type ShoppingHandler struct {
	logger *observability.Logger
	store  *shopping.Store
}

// NewShoppingHandler creates a new shopping handler.
func NewShoppingHandler(logger *observability.Logger, store *shopping.Store) *ShoppingHandler {
	return &ShoppingHandler{
		logger: logger.WithComponent("shopping_handler"),
		store:  store,
	}
}

// WishlistResponse is returned by the wishlist routes.
type WishlistResponse struct {
	Message  string   `json:"message,omitempty"`
	Wishlist []string `json:"wishlist"`
}

// CartResponse is returned by the cart routes.
type CartResponse struct {
	Message string         `json:"message,omitempty"`
	Cart    map[string]int `json:"cart"`
}

// AddToWishlist handles POST /wishlist/{userID}?product_id=.
func (h *ShoppingHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "product_id is required", "")
		return
	}

	list := h.store.AddToWishlist(userID, productID)
	writeJSON(w, h.logger, http.StatusOK, WishlistResponse{Message: "Added to wishlist", Wishlist: list})
}

// Wishlist handles GET /wishlist/{userID}.
func (h *ShoppingHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	list := h.store.Wishlist(chi.URLParam(r, "userID"))
	writeJSON(w, h.logger, http.StatusOK, WishlistResponse{Wishlist: list})
}

// AddToCart handles POST /cart/{userID}?product_id=&quantity=. Quantity
// defaults to 1.
func (h *ShoppingHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()
	productID := q.Get("product_id")
	if productID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "product_id is required", "")
		return
	}

	quantity := 1
	if raw := q.Get("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "quantity must be an integer", err.Error())
			return
		}
		quantity = n
	}

	cart, err := h.store.AddToCart(userID, productID, quantity)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shopping.ErrInvalidQuantity) {
			status = http.StatusBadRequest
		}
		writeError(w, h.logger, status, "invalid quantity", err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CartResponse{Message: "Added to cart", Cart: cart})
}

// Cart handles GET /cart/{userID}.
func (h *ShoppingHandler) Cart(w http.ResponseWriter, r *http.Request) {
	cart := h.store.Cart(chi.URLParam(r, "userID"))
	writeJSON(w, h.logger, http.StatusOK, CartResponse{Cart: cart})
}
