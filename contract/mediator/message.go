package mediator

// Request is implemented by request types whose single handler produces an R.
// A request type opts in by embedding Returns[R]; the response type is then fixed
// at compile time and Send[R] refuses requests declared with another response.
type Request[R any] interface {
	respondsWith(R)
}

// Returns binds the embedding request type to its response type R.
//
//	type CreateUser struct {
//		mediator.Returns[User]
//		Name string
//	}
type Returns[R any] struct{}

func (Returns[R]) respondsWith(R) {}

// Command is a request that produces no meaningful response.
type Command = Request[Unit]

// Notification is a marker for values broadcast to zero or more handlers.
// Routing uses the dynamic type only.
type Notification interface{}

// Routable lets a notification choose the subject it is forwarded under by a Relay.
type Routable interface{ Subject() string }
