package registry

// EntityID identifies a controller or pawn. Ids are opaque to the engine.
type EntityID uint64

// None is the EntityID of an absent pawn.
const None EntityID = 0

// ContextID identifies a candidate target an action may be performed on.
type ContextID uint64

// WorldView is the read-only host state handed to fetchers, considerations
// and handlers during a tick. Hosts usually expose a richer interface that
// callbacks type-assert to.
type WorldView interface {
	Alive(id EntityID) bool
}

// ContextFetcher enumerates the contexts a template may be performed on.
// Results must be finite and deterministic for a given view.
type ContextFetcher interface {
	FetchContexts(v WorldView, controller, pawn EntityID) []ContextID
}

// FetcherFunc adapts a function to ContextFetcher.
type FetcherFunc func(v WorldView, controller, pawn EntityID) []ContextID

// FetchContexts implements ContextFetcher.
func (f FetcherFunc) FetchContexts(v WorldView, controller, pawn EntityID) []ContextID {
	return f(v, controller, pawn)
}

// Consideration measures one aspect of a candidate. Returning ok=false
// discards the candidate.
type Consideration interface {
	Evaluate(v WorldView, controller, pawn EntityID, ctx ContextID) (raw float64, ok bool)
}

// ConsiderationFunc adapts a function to Consideration.
type ConsiderationFunc func(v WorldView, controller, pawn EntityID, ctx ContextID) (float64, bool)

// Evaluate implements Consideration.
func (f ConsiderationFunc) Evaluate(v WorldView, controller, pawn EntityID, ctx ContextID) (float64, bool) {
	return f(v, controller, pawn, ctx)
}

// Dispatch describes a selected action handed to its handler.
type Dispatch struct {
	Controller EntityID
	Pawn       EntityID
	Context    ContextID
	Name       string
	Key        string
	Score      float64
	Tick       uint64
	Retained   bool // Same action as the previous tick
}

// ActionHandler turns a selected action into deferred commands. Handlers
// must not mutate host state directly.
type ActionHandler interface {
	Handle(v WorldView, d Dispatch, cmds *Commands) error
}

// HandlerFunc adapts a function to ActionHandler.
type HandlerFunc func(v WorldView, d Dispatch, cmds *Commands) error

// Handle implements ActionHandler.
func (f HandlerFunc) Handle(v WorldView, d Dispatch, cmds *Commands) error {
	return f(v, d, cmds)
}

// Command is a deferred host mutation. Hosts define the concrete types and
// apply them once the decision phase has finished.
type Command any

// Commands buffers commands emitted during dispatch.
type Commands struct {
	list []Command
}

// Push appends a command.
func (c *Commands) Push(cmd Command) {
	c.list = append(c.list, cmd)
}

// Len returns the number of buffered commands.
func (c *Commands) Len() int { return len(c.list) }

// Truncate drops commands pushed after the buffer held n.
func (c *Commands) Truncate(n int) {
	if n < len(c.list) {
		c.list = c.list[:n]
	}
}

// Drain returns the buffered commands in push order and resets the buffer.
func (c *Commands) Drain() []Command {
	out := c.list
	c.list = nil
	return out
}
