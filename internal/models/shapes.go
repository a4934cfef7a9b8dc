package models

// Mark is a QR marker: center and size in screen units.
type Mark struct {
	ID     int     `msgpack:"id" json:"id"`
	MarkID string  `msgpack:"markId" json:"markId"`
	X      float64 `msgpack:"x" json:"x"`
	Y      float64 `msgpack:"y" json:"y"`
	W      float64 `msgpack:"w" json:"w"`
	H      float64 `msgpack:"h" json:"h"`
}

// LineShape is a free-standing line between two screen points.
type LineShape struct {
	ID    int     `msgpack:"id" json:"id"`
	X1    float64 `msgpack:"x1" json:"x1"`
	Y1    float64 `msgpack:"y1" json:"y1"`
	X2    float64 `msgpack:"x2" json:"x2"`
	Y2    float64 `msgpack:"y2" json:"y2"`
	Color string  `msgpack:"color,omitempty" json:"color,omitempty"`
	Width float64 `msgpack:"width" json:"width"`
}

// Text is a free-standing label. Angle is in screen degrees.
type Text struct {
	ID      int     `msgpack:"id" json:"id"`
	X       float64 `msgpack:"x" json:"x"`
	Y       float64 `msgpack:"y" json:"y"`
	Angle   float64 `msgpack:"angle" json:"angle"`
	Content string  `msgpack:"content" json:"content"`
	Color   string  `msgpack:"color,omitempty" json:"color,omitempty"`
	Size    float64 `msgpack:"size" json:"size"`
}
