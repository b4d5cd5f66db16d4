package strip

const (
	boostLow    = 50
	boostHigh   = 200
	boostAmount = 40
)

// Boost adds 40 to every channel equal to the color's maximum channel when
// that maximum lies in (50, 200]. Ties are all lifted. Other colors pass
// through unchanged.
func Boost(c RGB) RGB {
	peak := max(c.R, c.G, c.B)
	if peak <= boostLow || peak > boostHigh {
		return c
	}
	if c.R == peak {
		c.R += boostAmount
	}
	if c.G == peak {
		c.G += boostAmount
	}
	if c.B == peak {
		c.B += boostAmount
	}
	return c
}
