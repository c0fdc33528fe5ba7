package utility

import (
	"fmt"
	"math/rand"
)

// RandomColorHex returns a random #rrggbb color, avoiding near-black and
// near-white so player names stay readable on any background.
func RandomColorHex() string {
	r := 4 + rand.Intn(248)
	g := 4 + rand.Intn(248)
	b := 4 + rand.Intn(248)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
