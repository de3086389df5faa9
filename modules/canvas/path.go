package canvas

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/example/whiteboard-relay/domain/canvas"
)

const (
	pointSeparator = ";"
	coordSeparator = ","
)

// ErrMalformedPath is returned when a stored path cannot be decoded.
var ErrMalformedPath = errors.New("malformed path encoding")

// EncodePath flattens points into "x1,y1;x2,y2;...".
// Coordinates use the shortest representation that parses back to the same float64.
func EncodePath(points []domain.Point) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteString(pointSeparator)
		}
		b.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		b.WriteString(coordSeparator)
		b.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
	}
	return b.String()
}

// DecodePath is the inverse of EncodePath.
func DecodePath(s string) ([]domain.Point, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, pointSeparator)
	points := make([]domain.Point, 0, len(parts))
	for i, part := range parts {
		xs, ys, ok := strings.Cut(part, coordSeparator)
		if !ok {
			return nil, fmt.Errorf("%w: point %d has no separator", ErrMalformedPath, i)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrMalformedPath, i, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %v", ErrMalformedPath, i, err)
		}
		points = append(points, domain.Point{X: x, Y: y})
	}
	return points, nil
}
