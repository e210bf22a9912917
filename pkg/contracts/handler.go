package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by anything that mounts routes on the checkout
// server's router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(*httprouter.Router)

func (f HandlerFunc) RegisterRoutes(r *httprouter.Router) {
	f(r)
}
