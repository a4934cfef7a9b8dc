package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/golang/geo/r2"
	"go.uber.org/zap"
)

// TravelPose is one x,y,theta triple of a travel string, in the AGV frame.
type TravelPose struct {
	X     float64
	Y     float64
	Theta float64
}

// Point returns the pose position.
func (p TravelPose) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// TravelSegment is one leg between two consecutive poses. Radius is 0 when
// the heading does not change; otherwise it is the radius of the arc that
// turns the start heading into the end heading, positive for a
// counter-clockwise turn in the AGV frame.
type TravelSegment struct {
	Forward bool
	Start   TravelPose
	End     TravelPose
	Radius  float64
}

// ParseTravel parses an AGV travel string "<F|B>;x,y,theta;x,y,theta;...".
// Malformed tokens are logged and skipped; parsing continues with the
// next token, and the following segment starts from the last valid pose.
func ParseTravel(s string, logger *zap.Logger) []TravelSegment {
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := strings.Split(s, ";")
	if len(tokens) == 0 {
		return nil
	}

	forward := true
	switch dir := strings.ToUpper(strings.TrimSpace(tokens[0])); dir {
	case "F":
	case "B":
		forward = false
	default:
		logger.Warn("malformed travel direction, assuming forward",
			zap.String("token", tokens[0]))
	}

	var (
		segments []TravelSegment
		prev     *TravelPose
	)
	for i, tok := range tokens[1:] {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		pose, ok := parsePose(tok)
		if !ok {
			logger.Warn("skipping malformed travel token",
				zap.Int("index", i+1),
				zap.String("token", tok))
			continue
		}
		if prev != nil {
			segments = append(segments, TravelSegment{
				Forward: forward,
				Start:   *prev,
				End:     pose,
				Radius:  turnRadius(*prev, pose),
			})
		}
		prev = &pose
	}
	return segments
}

func parsePose(tok string) (TravelPose, bool) {
	parts := strings.Split(tok, ",")
	if len(parts) != 3 {
		return TravelPose{}, false
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return TravelPose{}, false
		}
		vals[i] = v
	}
	return TravelPose{X: vals[0], Y: vals[1], Theta: vals[2]}, true
}

func turnRadius(a, b TravelPose) float64 {
	delta := geometry.NormalizeTheta(b.Theta - a.Theta)
	if math.Abs(delta) < 1e-9 {
		return 0
	}
	chord := geometry.Distance(a.Point(), b.Point())
	if chord == 0 {
		return 0
	}
	half := math.Abs(geometry.DegToRad(delta)) / 2
	r := chord / (2 * math.Sin(half))
	if delta < 0 {
		r = -r
	}
	return r
}
