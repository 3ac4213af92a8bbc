package systems

import (
	"math"

	"github.com/pthm-cable/cortex/components"
)

// SteerToward sets vel to move pos toward (tx, ty) at speed without
// overshooting within dt. Returns the remaining distance.
func SteerToward(pos components.Position, vel *components.Velocity, tx, ty, speed, dt float32) float32 {
	dx := tx - pos.X
	dy := ty - pos.Y
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if dist == 0 || speed <= 0 || dt <= 0 {
		vel.X, vel.Y = 0, 0
		return dist
	}
	step := speed
	if step*dt > dist {
		step = dist / dt
	}
	vel.X = dx / dist * step
	vel.Y = dy / dist * step
	return dist
}

// SetHeading points vel along heading (radians) at speed.
func SetHeading(vel *components.Velocity, heading, speed float32) {
	s, c := math.Sincos(float64(heading))
	vel.X = float32(c) * speed
	vel.Y = float32(s) * speed
}

// Integrate advances pos by vel over dt and keeps it inside the world
// bounds. Velocity components that hit a wall are zeroed.
func Integrate(pos *components.Position, vel *components.Velocity, width, height, dt float32) {
	pos.X += vel.X * dt
	pos.Y += vel.Y * dt

	if pos.X < 0 {
		pos.X, vel.X = 0, 0
	} else if pos.X > width {
		pos.X, vel.X = width, 0
	}
	if pos.Y < 0 {
		pos.Y, vel.Y = 0, 0
	} else if pos.Y > height {
		pos.Y, vel.Y = height, 0
	}
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b components.Position) float32 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}
