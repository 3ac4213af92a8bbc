package components

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity in units per second.
type Velocity struct {
	X, Y float32
}
