package checkout

import "errors"

var (
	ErrEmptyCart   = errors.New("cart is empty, nothing to checkout")
	ErrMissingUser = errors.New("checkout requires a signed-in user")
)
