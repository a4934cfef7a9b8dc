package models

// Stroke is a colour/width/opacity triple.
type Stroke struct {
	Color   string  `json:"color" yaml:"color"`
	Width   float64 `json:"width" yaml:"width"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// ParkStyle styles park outlines by type and state.
type ParkStyle struct {
	Normal        Stroke  `json:"normal" yaml:"normal"`
	AGV           Stroke  `json:"agv" yaml:"agv"`
	Charging      Stroke  `json:"charging" yaml:"charging"`
	Truck         Stroke  `json:"truck" yaml:"truck"`
	Selected      Stroke  `json:"selected" yaml:"selected"`
	Stock         Stroke  `json:"stock" yaml:"stock"`
	FillOpacity   float64 `json:"fillOpacity" yaml:"fill_opacity"`
	ArrowSize     float64 `json:"arrowSize" yaml:"arrow_size"`
	LabelColor    string  `json:"labelColor" yaml:"label_color"`
	LabelFontSize float64 `json:"labelFontSize" yaml:"label_font_size"`
}

// PathStyle styles AGV paths and their overlays.
type PathStyle struct {
	Base    Stroke `json:"base" yaml:"base"`
	Move    Stroke `json:"move" yaml:"move"`
	Control Stroke `json:"control" yaml:"control"`
	Assist  Stroke `json:"assist" yaml:"assist"`
}

// PointStyle styles path junction dots.
type PointStyle struct {
	Radius      float64 `json:"radius" yaml:"radius"`
	StrokeWidth float64 `json:"strokeWidth" yaml:"stroke_width"`
	Color       string  `json:"color" yaml:"color"`
	Fill        string  `json:"fill" yaml:"fill"`
}

// CandidateStyle styles the dashed ghost rectangle of candidate parks.
type CandidateStyle struct {
	Stroke Stroke    `json:"stroke" yaml:"stroke"`
	Size   float64   `json:"size" yaml:"size"`
	Dash   []float64 `json:"dash" yaml:"dash"`
}

// TagStyle styles numeric and status tags.
type TagStyle struct {
	Color    string                `json:"color" yaml:"color"`
	FontSize float64               `json:"fontSize" yaml:"font_size"`
	Status   map[ParkStatus]string `json:"status" yaml:"status"`
}

// TextStyle holds defaults for free-standing text.
type TextStyle struct {
	Color    string  `json:"color" yaml:"color"`
	FontSize float64 `json:"fontSize" yaml:"font_size"`
}

// StyleSheet is the single source of truth for colours, widths and
// opacities, one sub-struct per entity category. It is read-only once the
// engine is built.
type StyleSheet struct {
	Background string         `json:"background" yaml:"background"`
	Park       ParkStyle      `json:"park" yaml:"park"`
	Path       PathStyle      `json:"path" yaml:"path"`
	Point      PointStyle     `json:"point" yaml:"point"`
	Mark       Stroke         `json:"mark" yaml:"mark"`
	Line       Stroke         `json:"line" yaml:"line"`
	Text       TextStyle      `json:"text" yaml:"text"`
	Candidate  CandidateStyle `json:"candidate" yaml:"candidate"`
	Tag        TagStyle       `json:"tag" yaml:"tag"`
	Aggregate  Stroke         `json:"aggregate" yaml:"aggregate"`
	Outline    Stroke         `json:"outline" yaml:"outline"`
}

// DefaultStyleSheet returns the built-in style sheet.
func DefaultStyleSheet() *StyleSheet {
	return &StyleSheet{
		Background: "#1e1e1e",
		Park: ParkStyle{
			Normal:        Stroke{Color: "#9e9e9e", Width: 2, Opacity: 1},
			AGV:           Stroke{Color: "#42a5f5", Width: 2, Opacity: 1},
			Charging:      Stroke{Color: "#66bb6a", Width: 2, Opacity: 1},
			Truck:         Stroke{Color: "#ffa726", Width: 2, Opacity: 1},
			Selected:      Stroke{Color: "#ffeb3b", Width: 3, Opacity: 1},
			Stock:         Stroke{Color: "#8d6e63", Width: 1, Opacity: 0.8},
			FillOpacity:   0.25,
			ArrowSize:     12,
			LabelColor:    "#ffffff",
			LabelFontSize: 12,
		},
		Path: PathStyle{
			Base:    Stroke{Color: "#607d8b", Width: 2, Opacity: 1},
			Move:    Stroke{Color: "#00e676", Width: 4, Opacity: 0.9},
			Control: Stroke{Color: "#ff1744", Width: 4, Opacity: 0.9},
			Assist:  Stroke{Color: "#2979ff", Width: 4, Opacity: 0.9},
		},
		Point: PointStyle{Radius: 4, StrokeWidth: 1, Color: "#b0bec5", Fill: "#263238"},
		Mark:  Stroke{Color: "#ce93d8", Width: 1, Opacity: 1},
		Line:  Stroke{Color: "#757575", Width: 1, Opacity: 1},
		Text:  TextStyle{Color: "#e0e0e0", FontSize: 14},
		Candidate: CandidateStyle{
			Stroke: Stroke{Color: "#00e5ff", Width: 2, Opacity: 1},
			Size:   120,
			Dash:   []float64{8, 4},
		},
		Tag: TagStyle{
			Color:    "#ffffff",
			FontSize: 11,
			Status: map[ParkStatus]string{
				ParkStatusEmpty:    "#66bb6a",
				ParkStatusOccupied: "#ef5350",
				ParkStatusLocked:   "#ffa726",
				ParkStatusUnknown:  "#9e9e9e",
			},
		},
		Aggregate: Stroke{Color: "#9e9e9e", Width: 1, Opacity: 0.6},
		Outline:   Stroke{Color: "#00b0ff", Width: 1, Opacity: 1},
	}
}
