package timeline

import "github.com/fogleman/ease"

// easeFuncs maps declaration names to easing curves.
var easeFuncs = map[string]func(float64) float64{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-sine":      ease.InSine,
	"out-sine":     ease.OutSine,
	"in-out-sine":  ease.InOutSine,
	"in-elastic":   ease.InElastic,
	"out-elastic":  ease.OutElastic,
	"in-bounce":    ease.InBounce,
	"out-bounce":   ease.OutBounce,
}

// EaseByName resolves an easing curve by declaration name. The empty name
// resolves to linear.
func EaseByName(name string) (func(float64) float64, bool) {
	if name == "" {
		return ease.Linear, true
	}
	f, ok := easeFuncs[name]
	return f, ok
}
